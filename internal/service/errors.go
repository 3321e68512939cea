package service

import "errors"

// Typed failures returned by the authentication flows. The handler layer
// maps these to HTTP statuses with errors.Is; anything else is treated as
// an opaque internal failure.
var (
	// ErrDuplicateEmail is returned when registering an email that already has an account
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the two cases stay indistinguishable to callers
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for any access token verification failure
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidRefreshToken is returned for any refresh token verification failure
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidResetToken is returned for any password reset token verification failure
	ErrInvalidResetToken = errors.New("invalid or expired reset token")

	// ErrUserNotFound is returned when a referenced user does not exist or is deleted
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidOrExpiredOTP is returned when no matching unexpired passcode exists
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired passcode")

	// ErrNotAuthorized is returned when acting on another principal's resource
	ErrNotAuthorized = errors.New("not authorized")

	// ErrValidation wraps input validation failures
	ErrValidation = errors.New("validation failed")
)
