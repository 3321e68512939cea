package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scholar-spark/auth-service/internal/domain"
	"github.com/scholar-spark/auth-service/internal/dto"
	"github.com/scholar-spark/auth-service/internal/repository"
	"github.com/scholar-spark/auth-service/internal/utils"
	"github.com/scholar-spark/auth-service/pkg/observability"
	"go.uber.org/zap"
)

// otpTokenBytes is the entropy of a generated passcode token
const otpTokenBytes = 16

// AuthConfig carries the scalar knobs of the orchestrator
type AuthConfig struct {
	BCryptCost             int
	TenantID               string
	Audience               string
	OTPExpiry              time.Duration
	OpenIDCredentialExpiry time.Duration
	ResetTokenExpiry       time.Duration
	ResetBaseURL           string
}

// authService implements AuthService
type authService struct {
	userRepo   repository.UserRepository
	credRepo   repository.CredentialRepository
	jwtManager *utils.JWTManager
	denylist   *TokenDenylist
	mailer     EmailDispatcher
	provider   IdentityProvider
	metrics    *observability.AuthMetrics
	logger     *zap.Logger
	cfg        AuthConfig
}

// NewAuthService creates the authentication orchestrator
func NewAuthService(
	userRepo repository.UserRepository,
	credRepo repository.CredentialRepository,
	jwtManager *utils.JWTManager,
	denylist *TokenDenylist,
	mailer EmailDispatcher,
	provider IdentityProvider,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
	cfg AuthConfig,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		credRepo:   credRepo,
		jwtManager: jwtManager,
		denylist:   denylist,
		mailer:     mailer,
		provider:   provider,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Register creates a user with its profile. User, profile, and default role
// are persisted in one transaction; a partial creation is never observable.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if !utils.ValidatePassword(req.Password) {
		return nil, fmt.Errorf("%w: password must be at least 8 characters long and contain uppercase, lowercase, and number", ErrValidation)
	}

	email := utils.SanitizeEmail(req.Email)

	// Deleted accounts still hold their email
	_, err := s.userRepo.GetByEmail(ctx, email, true)
	if err == nil {
		s.metrics.RecordRegistration(ctx, false)
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.cfg.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	profile := &domain.Profile{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: req.DisplayName,
	}

	if err := s.userRepo.CreateWithProfile(ctx, user, profile); err != nil {
		// A concurrent registration can win the race past the pre-check;
		// the unique constraint settles it
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.RecordRegistration(ctx, false)
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.RecordRegistration(ctx, true)
	return toUserResponse(user, profile), nil
}

// Login authenticates an email/password pair. Unknown email and wrong
// password produce the identical error so accounts cannot be enumerated.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email), false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordLogin(ctx, false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.metrics.RecordLogin(ctx, false)
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	response, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin(ctx, true)
	return response, nil
}

// Refresh rotates a refresh token into a fresh access and refresh token
// pair. Roles and permissions are re-read from the store, so privilege
// changes take effect on the next refresh. The spent token is denylisted
// for the rest of its lifetime.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := s.denylist.Contains(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token denylist: %w", err)
	}
	if revoked {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.denylist.Add(ctx, refreshToken, s.jwtManager.RefreshTokenExpiry()); err != nil {
		s.logger.Warn("failed to denylist rotated refresh token", zap.Error(err))
	}

	return s.issueTokenPair(ctx, user)
}

// IssueOTP generates and persists a one-time passcode for the caller
func (s *authService) IssueOTP(ctx context.Context, userID int64, source string) (*domain.OTPCredential, error) {
	token, err := utils.RandomToken(otpTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate passcode: %w", err)
	}

	credential, err := s.credRepo.StoreOTP(ctx, userID, token, source, s.cfg.OTPExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to store passcode: %w", err)
	}

	return credential, nil
}

// VerifyOTP checks a passcode by exact match while unexpired
func (s *authService) VerifyOTP(ctx context.Context, userID int64, token string) error {
	ok, err := s.credRepo.VerifyOTP(ctx, userID, token)
	if err != nil {
		return fmt.Errorf("failed to verify passcode: %w", err)
	}
	if !ok {
		return ErrInvalidOrExpiredOTP
	}
	return nil
}

// OpenIDLogin exchanges an authorization code with the identity provider
// and logs the linked user in, creating the account on first sight of the
// provider subject.
func (s *authService) OpenIDLogin(ctx context.Context, provider, code string) (*dto.AuthResponse, error) {
	providerToken, err := s.provider.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code with provider %s: %w", provider, err)
	}

	info, err := s.provider.FetchUserInfo(ctx, providerToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info from provider %s: %w", provider, err)
	}

	credential := &domain.OpenIDCredential{
		Provider:       provider,
		ProviderUserID: info.Subject,
		Email:          info.Email,
		Token:          providerToken,
		ExpiresAt:      time.Now().Add(s.cfg.OpenIDCredentialExpiry),
	}

	user, err := s.userRepo.GetByProvider(ctx, provider, info.Subject)
	switch {
	case err == nil:
		credential.UserID = user.ID
		if err := s.credRepo.UpsertOpenID(ctx, credential); err != nil {
			return nil, fmt.Errorf("failed to refresh openid credential: %w", err)
		}
	case errors.Is(err, repository.ErrNotFound):
		// First login through this provider subject. Matching is strictly
		// on (provider, provider_user_id), never on email.
		user = &domain.User{
			Email:    info.Email,
			IsActive: true,
			// No password credential; bcrypt verification against an
			// empty hash always fails, so password login stays closed
			PasswordHash: "",
		}
		profile := &domain.Profile{
			FirstName:   info.GivenName,
			LastName:    info.FamilyName,
			DisplayName: info.Name,
		}
		if err := s.userRepo.CreateWithOpenID(ctx, user, profile, credential); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return nil, ErrDuplicateEmail
			}
			return nil, fmt.Errorf("failed to create user from provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up provider user: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return s.issueTokenPair(ctx, user)
}

// RequestPasswordReset creates a reset token and dispatches the reset link.
// An unknown email completes without effect so the response shape never
// signals whether an account exists.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	s.metrics.RecordResetRequest(ctx)

	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email), false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.jwtManager.GenerateResetToken(user.ID)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.credRepo.StoreResetToken(ctx, user.ID, token, s.cfg.ResetTokenExpiry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	s.metrics.RecordTokenIssued(ctx, "reset")

	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.ResetBaseURL, token)
	if err := s.mailer.SendResetEmail(ctx, user.Email, link); err != nil {
		// Fire and forget: delivery failures never reach the caller
		s.logger.Error("failed to send reset email", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// SubmitPasswordReset consumes a reset token and installs the new password
// hash. Consumption and the hash update commit together, so a verified
// token can never be replayed.
func (s *authService) SubmitPasswordReset(ctx context.Context, token, newPassword string) error {
	userID, err := s.jwtManager.ValidateResetToken(token)
	if err != nil {
		return ErrInvalidResetToken
	}

	if !utils.ValidatePassword(newPassword) {
		return fmt.Errorf("%w: password must be at least 8 characters long and contain uppercase, lowercase, and number", ErrValidation)
	}

	passwordHash, err := utils.HashPassword(newPassword, s.cfg.BCryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.credRepo.ConsumeResetToken(ctx, userID, token, passwordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	return nil
}

// GetUser returns a user joined with its profile fields
func (s *authService) GetUser(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return toUserResponse(user, profile), nil
}

// UpdateStatus flips a user's active flag
func (s *authService) UpdateStatus(ctx context.Context, userID int64, isActive bool) (*dto.UserResponse, error) {
	user, err := s.userRepo.UpdateStatus(ctx, userID, isActive)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	return toUserResponse(user, nil), nil
}

// SoftDelete marks the caller's own account deleted
func (s *authService) SoftDelete(ctx context.Context, callerID, userID int64) error {
	if callerID != userID {
		return ErrNotAuthorized
	}

	if err := s.userRepo.SoftDelete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

// Reactivate clears the deleted flag on the caller's own account
func (s *authService) Reactivate(ctx context.Context, callerID, userID int64) error {
	if callerID != userID {
		return ErrNotAuthorized
	}

	if err := s.userRepo.Reactivate(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to reactivate user: %w", err)
	}

	return nil
}

// ValidateToken verifies an access token for the configured audience
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.AccessClaims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token, s.cfg.Audience)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
