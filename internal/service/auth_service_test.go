package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scholar-spark/auth-service/internal/domain"
	"github.com/scholar-spark/auth-service/internal/dto"
	"github.com/scholar-spark/auth-service/internal/mocks"
	"github.com/scholar-spark/auth-service/internal/repository"
	"github.com/scholar-spark/auth-service/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret-key-that-is-at-least-32-characters-long"
	testAudience = "scholar-spark-services"
)

type fixture struct {
	users *mocks.UserRepositoryMock
	creds *mocks.CredentialRepositoryMock
	mail  *mocks.EmailDispatcherMock
	idp   *mocks.IdentityProviderMock
	jwt   *utils.JWTManager
	svc   AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	redis, _ := newTestRedis(t)

	jwtManager := utils.NewJWTManager(testSecret, "auth-service", []string{testAudience},
		15*time.Minute, time.Hour, time.Hour)

	users := &mocks.UserRepositoryMock{
		GetRolesFunc: func(ctx context.Context, userID int64) ([]string, error) {
			return []string{"user"}, nil
		},
		GetPermissionsFunc: func(ctx context.Context, userID int64) ([]string, error) {
			return []string{"profile:read"}, nil
		},
		GetProfileFunc: func(ctx context.Context, userID int64) (*domain.Profile, error) {
			return &domain.Profile{
				UserID:      userID,
				FirstName:   "Ada",
				LastName:    "Lovelace",
				DisplayName: "Ada Lovelace",
			}, nil
		},
		UpdateLastLoginFunc: func(ctx context.Context, id int64) error {
			return nil
		},
	}
	creds := &mocks.CredentialRepositoryMock{}
	mail := &mocks.EmailDispatcherMock{}
	idp := &mocks.IdentityProviderMock{}

	svc := NewAuthService(users, creds, jwtManager, NewTokenDenylist(redis), mail, idp, nil, zap.NewNop(), AuthConfig{
		BCryptCost:             bcrypt.MinCost,
		TenantID:               "tenant-1",
		Audience:               testAudience,
		OTPExpiry:              15 * time.Minute,
		OpenIDCredentialExpiry: time.Hour,
		ResetTokenExpiry:       time.Hour,
		ResetBaseURL:           "http://localhost:8080",
	})

	return &fixture{
		users: users,
		creds: creds,
		mail:  mail,
		idp:   idp,
		jwt:   jwtManager,
		svc:   svc,
	}
}

func storedUser(t *testing.T, id int64, email, password string) *domain.User {
	t.Helper()

	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now()
	return &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRegisterCreatesUserWithProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var createdProfile *domain.Profile
	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		if !includeDeleted {
			t.Error("registration pre-check should include deleted accounts")
		}
		return nil, repository.ErrNotFound
	}
	f.users.CreateWithProfileFunc = func(ctx context.Context, user *domain.User, profile *domain.Profile) error {
		user.ID = 1
		user.CreatedAt = time.Now()
		user.UpdatedAt = time.Now()
		createdProfile = profile
		return nil
	}

	resp, err := f.svc.Register(ctx, &dto.RegisterRequest{
		Email:     "ada@example.com",
		Password:  "Password123",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if resp.ID != 1 {
		t.Errorf("user ID = %d, want 1", resp.ID)
	}
	if resp.Email != "ada@example.com" {
		t.Errorf("email = %q, want ada@example.com", resp.Email)
	}
	if !resp.IsActive {
		t.Error("new user should be active")
	}
	if createdProfile == nil || createdProfile.FirstName != "Ada" {
		t.Error("profile should be created alongside the user")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return storedUser(t, 1, email, "Password123"), nil
	}

	_, err := f.svc.Register(ctx, &dto.RegisterRequest{
		Email:    "taken@example.com",
		Password: "Password123",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("error = %v, want ErrDuplicateEmail", err)
	}
}

func TestRegisterDuplicateRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return nil, repository.ErrNotFound
	}
	f.users.CreateWithProfileFunc = func(ctx context.Context, user *domain.User, profile *domain.Profile) error {
		return repository.ErrDuplicateEmail
	}

	_, err := f.svc.Register(ctx, &dto.RegisterRequest{
		Email:    "raced@example.com",
		Password: "Password123",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("error = %v, want ErrDuplicateEmail", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, &dto.RegisterRequest{
		Email:    "weak@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := storedUser(t, 7, "ada@example.com", "Password123")
	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		if includeDeleted {
			t.Error("login lookup should exclude deleted accounts")
		}
		return user, nil
	}

	resp, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if resp.TokenType != "Bearer" {
		t.Errorf("token type = %q, want Bearer", resp.TokenType)
	}
	if resp.ExpiresIn != int(15*time.Minute/time.Second) {
		t.Errorf("expires_in = %d, want %d", resp.ExpiresIn, int(15*time.Minute/time.Second))
	}

	claims, err := f.jwt.ValidateAccessToken(resp.AccessToken, testAudience)
	if err != nil {
		t.Fatalf("issued access token should validate: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("claims user ID = %d, want 7", claims.UserID)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("claims email = %q", claims.Email)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "user" {
		t.Errorf("claims roles = %v, want [user]", claims.Roles)
	}
	if claims.Metadata["tenant_id"] != "tenant-1" {
		t.Errorf("tenant_id metadata = %v, want tenant-1", claims.Metadata["tenant_id"])
	}
	if claims.Metadata["profile_complete"] != true {
		t.Errorf("profile_complete metadata = %v, want true", claims.Metadata["profile_complete"])
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return nil, repository.ErrNotFound
	}
	_, unknownErr := f.svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "Password123"})

	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return storedUser(t, 1, email, "Password123"), nil
	}
	_, wrongErr := f.svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "WrongPass456"})

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("failure messages differ: %q vs %q", unknownErr.Error(), wrongErr.Error())
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := storedUser(t, 7, "ada@example.com", "Password123")
	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return user, nil
	}
	f.users.GetByIDFunc = func(ctx context.Context, id int64) (*domain.User, error) {
		return user, nil
	}

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("refresh should issue a new token pair")
	}

	// The spent token is denylisted and must not work a second time
	if _, err := f.svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("replayed refresh token error = %v, want ErrInvalidRefreshToken", err)
	}

	if _, err := f.svc.Refresh(ctx, refreshed.RefreshToken); err != nil {
		t.Errorf("rotated refresh token should work: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := storedUser(t, 7, "ada@example.com", "Password123")
	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return user, nil
	}

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("access token used as refresh error = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRefreshReflectsRoleChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := storedUser(t, 7, "ada@example.com", "Password123")
	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return user, nil
	}
	f.users.GetByIDFunc = func(ctx context.Context, id int64) (*domain.User, error) {
		return user, nil
	}

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	f.users.GetRolesFunc = func(ctx context.Context, userID int64) ([]string, error) {
		return []string{"admin", "user"}, nil
	}

	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	claims, err := f.jwt.ValidateAccessToken(refreshed.AccessToken, testAudience)
	if err != nil {
		t.Fatalf("refreshed access token should validate: %v", err)
	}
	if len(claims.Roles) != 2 {
		t.Errorf("refreshed roles = %v, want the updated assignment", claims.Roles)
	}
}

func TestIssueOTPStoresHighEntropyToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var storedToken string
	var storedExpiry time.Duration
	f.creds.StoreOTPFunc = func(ctx context.Context, userID int64, token, source string, expiry time.Duration) (*domain.OTPCredential, error) {
		storedToken = token
		storedExpiry = expiry
		return &domain.OTPCredential{
			ID:        "cred-1",
			UserID:    userID,
			Token:     token,
			Source:    source,
			ExpiresAt: time.Now().Add(expiry),
			CreatedAt: time.Now(),
		}, nil
	}

	credential, err := f.svc.IssueOTP(ctx, 7, "email")
	if err != nil {
		t.Fatalf("issue otp failed: %v", err)
	}

	if len(storedToken) != otpTokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(storedToken), otpTokenBytes*2)
	}
	if storedExpiry != 15*time.Minute {
		t.Errorf("expiry = %v, want 15m", storedExpiry)
	}
	if credential.Source != "email" {
		t.Errorf("source = %q, want email", credential.Source)
	}
}

func TestVerifyOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.creds.VerifyOTPFunc = func(ctx context.Context, userID int64, token string) (bool, error) {
		return token == "valid-token", nil
	}

	if err := f.svc.VerifyOTP(ctx, 7, "valid-token"); err != nil {
		t.Errorf("valid passcode should verify: %v", err)
	}
	if err := f.svc.VerifyOTP(ctx, 7, "bogus"); !errors.Is(err, ErrInvalidOrExpiredOTP) {
		t.Errorf("error = %v, want ErrInvalidOrExpiredOTP", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := storedUser(t, 7, "ada@example.com", "OldPassword1")
	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return user, nil
	}

	var storedToken string
	f.creds.StoreResetTokenFunc = func(ctx context.Context, userID int64, token string, expiry time.Duration) error {
		storedToken = token
		return nil
	}

	var sentLink string
	f.mail.SendResetEmailFunc = func(ctx context.Context, email, link string) error {
		sentLink = link
		return nil
	}

	if err := f.svc.RequestPasswordReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	if storedToken == "" {
		t.Fatal("reset token should be persisted")
	}
	if !strings.HasSuffix(sentLink, storedToken) {
		t.Errorf("reset link %q should carry the stored token", sentLink)
	}

	consumed := false
	f.creds.ConsumeResetTokenFunc = func(ctx context.Context, userID int64, token, newPasswordHash string) error {
		if userID != 7 {
			t.Errorf("consume user ID = %d, want 7", userID)
		}
		if token != storedToken {
			t.Errorf("consumed token does not match the stored one")
		}
		if !utils.CheckPasswordHash("NewPassword1", newPasswordHash) {
			t.Error("stored hash should verify against the new password")
		}
		consumed = true
		return nil
	}

	if err := f.svc.SubmitPasswordReset(ctx, storedToken, "NewPassword1"); err != nil {
		t.Fatalf("reset confirmation failed: %v", err)
	}
	if !consumed {
		t.Error("reset token should be consumed")
	}
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return nil, repository.ErrNotFound
	}
	f.creds.StoreResetTokenFunc = func(ctx context.Context, userID int64, token string, expiry time.Duration) error {
		t.Error("no reset token should be stored for an unknown email")
		return nil
	}
	f.mail.SendResetEmailFunc = func(ctx context.Context, email, link string) error {
		t.Error("no email should be sent for an unknown email")
		return nil
	}

	if err := f.svc.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Errorf("unknown email should complete without error, got %v", err)
	}
}

func TestPasswordResetTokenSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.jwt.GenerateResetToken(7)
	if err != nil {
		t.Fatalf("failed to generate reset token: %v", err)
	}

	f.creds.ConsumeResetTokenFunc = func(ctx context.Context, userID int64, token, newPasswordHash string) error {
		return repository.ErrNotFound
	}

	if err := f.svc.SubmitPasswordReset(ctx, token, "NewPassword1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("spent token error = %v, want ErrInvalidResetToken", err)
	}
}

func TestSubmitPasswordResetRejectsGarbageToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.SubmitPasswordReset(ctx, "not-a-token", "NewPassword1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("error = %v, want ErrInvalidResetToken", err)
	}
}

func TestSoftDeleteRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.SoftDelete(ctx, 1, 2); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("deleting another user error = %v, want ErrNotAuthorized", err)
	}

	deleted := false
	f.users.SoftDeleteFunc = func(ctx context.Context, id int64) error {
		deleted = true
		return nil
	}
	if err := f.svc.SoftDelete(ctx, 1, 1); err != nil {
		t.Errorf("deleting own account failed: %v", err)
	}
	if !deleted {
		t.Error("repository delete should be called")
	}
}

func TestReactivateRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Reactivate(ctx, 1, 2); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("reactivating another user error = %v, want ErrNotAuthorized", err)
	}
}

func TestOpenIDLoginExistingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := storedUser(t, 7, "ada@example.com", "Password123")
	f.idp.ExchangeCodeForTokenFunc = func(ctx context.Context, code string) (string, error) {
		return "provider-token", nil
	}
	f.idp.FetchUserInfoFunc = func(ctx context.Context, token string) (*domain.ProviderUserInfo, error) {
		return &domain.ProviderUserInfo{Subject: "sub-1", Email: "ada@example.com"}, nil
	}
	f.users.GetByProviderFunc = func(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
		if provider != "google" || providerUserID != "sub-1" {
			t.Errorf("lookup key = (%s, %s), want (google, sub-1)", provider, providerUserID)
		}
		return user, nil
	}

	var refreshed *domain.OpenIDCredential
	f.creds.UpsertOpenIDFunc = func(ctx context.Context, credential *domain.OpenIDCredential) error {
		refreshed = credential
		return nil
	}

	resp, err := f.svc.OpenIDLogin(ctx, "google", "auth-code")
	if err != nil {
		t.Fatalf("openid login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("openid login should issue tokens")
	}
	if refreshed == nil || refreshed.UserID != 7 || refreshed.Token != "provider-token" {
		t.Errorf("provider credential should be refreshed for the linked user, got %+v", refreshed)
	}
}

func TestOpenIDLoginCreatesUserOnFirstSight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.idp.ExchangeCodeForTokenFunc = func(ctx context.Context, code string) (string, error) {
		return "provider-token", nil
	}
	f.idp.FetchUserInfoFunc = func(ctx context.Context, token string) (*domain.ProviderUserInfo, error) {
		return &domain.ProviderUserInfo{
			Subject:    "sub-2",
			Email:      "new@example.com",
			GivenName:  "Grace",
			FamilyName: "Hopper",
			Name:       "Grace Hopper",
		}, nil
	}
	f.users.GetByProviderFunc = func(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
		return nil, repository.ErrNotFound
	}

	var createdUser *domain.User
	var createdProfile *domain.Profile
	f.users.CreateWithOpenIDFunc = func(ctx context.Context, user *domain.User, profile *domain.Profile, credential *domain.OpenIDCredential) error {
		user.ID = 42
		createdUser = user
		createdProfile = profile
		return nil
	}

	resp, err := f.svc.OpenIDLogin(ctx, "google", "auth-code")
	if err != nil {
		t.Fatalf("openid login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("openid login should issue tokens")
	}
	if createdUser == nil || createdUser.Email != "new@example.com" {
		t.Fatalf("user should be created from provider info, got %+v", createdUser)
	}
	if createdUser.PasswordHash != "" {
		t.Error("provider-created user should have no password credential")
	}
	if createdProfile.FirstName != "Grace" || createdProfile.LastName != "Hopper" {
		t.Errorf("profile should carry provider names, got %+v", createdProfile)
	}
}

func TestValidateToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := storedUser(t, 7, "ada@example.com", "Password123")
	f.users.GetByEmailFunc = func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
		return user, nil
	}

	login, err := f.svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := f.svc.ValidateToken(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("valid token should validate: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("claims user ID = %d, want 7", claims.UserID)
	}

	if _, err := f.svc.ValidateToken(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token error = %v, want ErrInvalidToken", err)
	}
}
