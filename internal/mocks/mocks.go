// Package mocks provides hand-rolled test doubles with overridable
// function fields. A nil field means the call is unexpected in that test.
package mocks

import (
	"context"
	"time"

	"github.com/scholar-spark/auth-service/internal/domain"
)

type UserRepositoryMock struct {
	CreateWithProfileFunc func(ctx context.Context, user *domain.User, profile *domain.Profile) error
	CreateWithOpenIDFunc  func(ctx context.Context, user *domain.User, profile *domain.Profile, credential *domain.OpenIDCredential) error
	GetByEmailFunc        func(ctx context.Context, email string, includeDeleted bool) (*domain.User, error)
	GetByIDFunc           func(ctx context.Context, id int64) (*domain.User, error)
	GetByProviderFunc     func(ctx context.Context, provider, providerUserID string) (*domain.User, error)
	GetProfileFunc        func(ctx context.Context, userID int64) (*domain.Profile, error)
	UpdateStatusFunc      func(ctx context.Context, id int64, isActive bool) (*domain.User, error)
	SoftDeleteFunc        func(ctx context.Context, id int64) error
	ReactivateFunc        func(ctx context.Context, id int64) error
	UpdateLastLoginFunc   func(ctx context.Context, id int64) error
	GetRolesFunc          func(ctx context.Context, userID int64) ([]string, error)
	GetPermissionsFunc    func(ctx context.Context, userID int64) ([]string, error)
}

func (m *UserRepositoryMock) CreateWithProfile(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	return m.CreateWithProfileFunc(ctx, user, profile)
}

func (m *UserRepositoryMock) CreateWithOpenID(ctx context.Context, user *domain.User, profile *domain.Profile, credential *domain.OpenIDCredential) error {
	return m.CreateWithOpenIDFunc(ctx, user, profile, credential)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	return m.GetByEmailFunc(ctx, email, includeDeleted)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *UserRepositoryMock) GetByProvider(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
	return m.GetByProviderFunc(ctx, provider, providerUserID)
}

func (m *UserRepositoryMock) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	return m.GetProfileFunc(ctx, userID)
}

func (m *UserRepositoryMock) UpdateStatus(ctx context.Context, id int64, isActive bool) (*domain.User, error) {
	return m.UpdateStatusFunc(ctx, id, isActive)
}

func (m *UserRepositoryMock) SoftDelete(ctx context.Context, id int64) error {
	return m.SoftDeleteFunc(ctx, id)
}

func (m *UserRepositoryMock) Reactivate(ctx context.Context, id int64) error {
	return m.ReactivateFunc(ctx, id)
}

func (m *UserRepositoryMock) UpdateLastLogin(ctx context.Context, id int64) error {
	return m.UpdateLastLoginFunc(ctx, id)
}

func (m *UserRepositoryMock) GetRoles(ctx context.Context, userID int64) ([]string, error) {
	return m.GetRolesFunc(ctx, userID)
}

func (m *UserRepositoryMock) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	return m.GetPermissionsFunc(ctx, userID)
}

type CredentialRepositoryMock struct {
	StoreOTPFunc          func(ctx context.Context, userID int64, token, source string, expiry time.Duration) (*domain.OTPCredential, error)
	VerifyOTPFunc         func(ctx context.Context, userID int64, token string) (bool, error)
	UpsertOpenIDFunc      func(ctx context.Context, credential *domain.OpenIDCredential) error
	StoreResetTokenFunc   func(ctx context.Context, userID int64, token string, expiry time.Duration) error
	VerifyResetTokenFunc  func(ctx context.Context, userID int64, token string) (bool, error)
	ConsumeResetTokenFunc func(ctx context.Context, userID int64, token, newPasswordHash string) error
}

func (m *CredentialRepositoryMock) StoreOTP(ctx context.Context, userID int64, token, source string, expiry time.Duration) (*domain.OTPCredential, error) {
	return m.StoreOTPFunc(ctx, userID, token, source, expiry)
}

func (m *CredentialRepositoryMock) VerifyOTP(ctx context.Context, userID int64, token string) (bool, error) {
	return m.VerifyOTPFunc(ctx, userID, token)
}

func (m *CredentialRepositoryMock) UpsertOpenID(ctx context.Context, credential *domain.OpenIDCredential) error {
	return m.UpsertOpenIDFunc(ctx, credential)
}

func (m *CredentialRepositoryMock) StoreResetToken(ctx context.Context, userID int64, token string, expiry time.Duration) error {
	return m.StoreResetTokenFunc(ctx, userID, token, expiry)
}

func (m *CredentialRepositoryMock) VerifyResetToken(ctx context.Context, userID int64, token string) (bool, error) {
	return m.VerifyResetTokenFunc(ctx, userID, token)
}

func (m *CredentialRepositoryMock) ConsumeResetToken(ctx context.Context, userID int64, token, newPasswordHash string) error {
	return m.ConsumeResetTokenFunc(ctx, userID, token, newPasswordHash)
}

type EmailDispatcherMock struct {
	SendResetEmailFunc func(ctx context.Context, email, link string) error
}

func (m *EmailDispatcherMock) SendResetEmail(ctx context.Context, email, link string) error {
	if m.SendResetEmailFunc == nil {
		return nil
	}
	return m.SendResetEmailFunc(ctx, email, link)
}

type IdentityProviderMock struct {
	ExchangeCodeForTokenFunc func(ctx context.Context, code string) (string, error)
	FetchUserInfoFunc        func(ctx context.Context, token string) (*domain.ProviderUserInfo, error)
}

func (m *IdentityProviderMock) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	return m.ExchangeCodeForTokenFunc(ctx, code)
}

func (m *IdentityProviderMock) FetchUserInfo(ctx context.Context, token string) (*domain.ProviderUserInfo, error) {
	return m.FetchUserInfoFunc(ctx, token)
}
