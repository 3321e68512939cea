package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents a password-grant login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// OpenIDLoginRequest represents an identity-provider login request
type OpenIDLoginRequest struct {
	Provider string `json:"provider" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// OTPIssueRequest represents an OTP issuance request
type OTPIssueRequest struct {
	Source string `json:"source" binding:"required"`
}

// OTPVerifyRequest represents an OTP verification request
type OTPVerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// PasswordResetRequest represents a password reset request
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest represents a password reset submission
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// UpdateStatusRequest represents a user status update
type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// UserResponse represents a user with its profile fields
type UserResponse struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	IsActive    bool    `json:"is_active"`
	FirstName   string  `json:"first_name,omitempty"`
	LastName    string  `json:"last_name,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
}

// OTPResponse represents an issued OTP credential
type OTPResponse struct {
	CredentialID string `json:"credential_id"`
	Token        string `json:"token"`
	Source       string `json:"source"`
	ExpiresAt    string `json:"expires_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
