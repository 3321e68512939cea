package repository

import (
	"context"
	"time"

	"github.com/scholar-spark/auth-service/internal/domain"
)

// UserRepository defines persistence operations on users and their profiles
type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *domain.User, profile *domain.Profile) error
	CreateWithOpenID(ctx context.Context, user *domain.User, profile *domain.Profile, credential *domain.OpenIDCredential) error
	GetByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByProvider(ctx context.Context, provider, providerUserID string) (*domain.User, error)
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	UpdateStatus(ctx context.Context, id int64, isActive bool) (*domain.User, error)
	SoftDelete(ctx context.Context, id int64) error
	Reactivate(ctx context.Context, id int64) error
	UpdateLastLogin(ctx context.Context, id int64) error
	GetRoles(ctx context.Context, userID int64) ([]string, error)
	GetPermissions(ctx context.Context, userID int64) ([]string, error)
}

// CredentialRepository defines persistence operations on OTP, OpenID, and
// password reset credentials
type CredentialRepository interface {
	StoreOTP(ctx context.Context, userID int64, token, source string, expiry time.Duration) (*domain.OTPCredential, error)
	VerifyOTP(ctx context.Context, userID int64, token string) (bool, error)
	UpsertOpenID(ctx context.Context, credential *domain.OpenIDCredential) error
	StoreResetToken(ctx context.Context, userID int64, token string, expiry time.Duration) error
	VerifyResetToken(ctx context.Context, userID int64, token string) (bool, error)
	ConsumeResetToken(ctx context.Context, userID int64, token, newPasswordHash string) error
}
