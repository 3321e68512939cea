package domain

import "time"

// OTPCredential is a persisted one-time passcode tied to a user and a
// source channel. Verified by exact token match while unexpired.
type OTPCredential struct {
	ID        string    `json:"credential_id" db:"credential_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Source    string    `json:"source" db:"source"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OpenIDCredential links a user to an external identity provider subject
type OpenIDCredential struct {
	ID             string    `json:"credential_id" db:"credential_id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	Provider       string    `json:"provider" db:"provider"`
	ProviderUserID string    `json:"provider_user_id" db:"provider_user_id"`
	Email          string    `json:"email" db:"email"`
	Token          string    `json:"-" db:"token"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// PasswordResetToken is a persisted single-use reset grant. A token with a
// non-null UsedAt or a past ExpiresAt never authorizes a reset.
type PasswordResetToken struct {
	ID        int64      `json:"token_id" db:"token_id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Token     string     `json:"-" db:"token"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	UsedAt    *time.Time `json:"used_at" db:"used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// ProviderUserInfo is the profile payload reported by an identity provider
type ProviderUserInfo struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}
