package service

import (
	"context"

	"github.com/scholar-spark/auth-service/internal/domain"
	"github.com/scholar-spark/auth-service/internal/dto"
	"github.com/scholar-spark/auth-service/internal/utils"
)

// AuthService defines the authentication flows exposed to the handler layer
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	IssueOTP(ctx context.Context, userID int64, source string) (*domain.OTPCredential, error)
	VerifyOTP(ctx context.Context, userID int64, token string) error
	OpenIDLogin(ctx context.Context, provider, code string) (*dto.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	SubmitPasswordReset(ctx context.Context, token, newPassword string) error
	GetUser(ctx context.Context, userID int64) (*dto.UserResponse, error)
	UpdateStatus(ctx context.Context, userID int64, isActive bool) (*dto.UserResponse, error)
	SoftDelete(ctx context.Context, callerID, userID int64) error
	Reactivate(ctx context.Context, callerID, userID int64) error
	ValidateToken(ctx context.Context, token string) (*utils.AccessClaims, error)
}

// EmailDispatcher sends outbound mail. Dispatch failures are logged by the
// caller, never propagated.
type EmailDispatcher interface {
	SendResetEmail(ctx context.Context, email, link string) error
}

// IdentityProvider is the opaque exchange with an external identity
// provider: a code becomes a provider token, a provider token becomes a
// user-info payload.
type IdentityProvider interface {
	ExchangeCodeForToken(ctx context.Context, code string) (string, error)
	FetchUserInfo(ctx context.Context, providerToken string) (*domain.ProviderUserInfo, error)
}
