package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scholar-spark/auth-service/internal/domain"
	"github.com/scholar-spark/auth-service/pkg/database"
)

// credentialRepository implements CredentialRepository on Postgres
type credentialRepository struct {
	db *database.Postgres
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *database.Postgres) CredentialRepository {
	return &credentialRepository{db: db}
}

// StoreOTP persists a one-time passcode for a user with the given expiry
func (r *credentialRepository) StoreOTP(ctx context.Context, userID int64, token, source string, expiry time.Duration) (*domain.OTPCredential, error) {
	credential := &domain.OTPCredential{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		Source:    source,
		ExpiresAt: time.Now().Add(expiry),
	}

	err := r.db.DB.QueryRowContext(ctx, `
		INSERT INTO otp_credentials (credential_id, user_id, token, source, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`,
		credential.ID,
		credential.UserID,
		credential.Token,
		credential.Source,
		credential.ExpiresAt,
	).Scan(&credential.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to store otp credential: %w", err)
	}

	return credential, nil
}

// VerifyOTP reports whether an unexpired passcode with the exact token
// exists for the user
func (r *credentialRepository) VerifyOTP(ctx context.Context, userID int64, token string) (bool, error) {
	var exists bool
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM otp_credentials
			WHERE user_id = $1 AND token = $2 AND expires_at > NOW()
		)
	`, userID, token).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to verify otp credential: %w", err)
	}

	return exists, nil
}

// UpsertOpenID inserts a provider credential or refreshes its token, email,
// and expiry when the provider subject is already linked
func (r *credentialRepository) UpsertOpenID(ctx context.Context, credential *domain.OpenIDCredential) error {
	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}

	_, err := r.db.DB.ExecContext(ctx, `
		INSERT INTO openid_credentials (credential_id, user_id, provider, provider_user_id, email, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (provider, provider_user_id) DO UPDATE
		SET token = EXCLUDED.token,
		    email = EXCLUDED.email,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`,
		credential.ID,
		credential.UserID,
		credential.Provider,
		credential.ProviderUserID,
		credential.Email,
		credential.Token,
		credential.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert openid credential: %w", err)
	}

	return nil
}

// StoreResetToken persists a new reset token and marks every prior unused
// token for the user as used, keeping a single active token per user.
// Both steps happen in one transaction.
func (r *credentialRepository) StoreResetToken(ctx context.Context, userID int64, token string, expiry time.Duration) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE password_reset_tokens
		SET used_at = NOW()
		WHERE user_id = $1 AND used_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to invalidate prior reset tokens: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, userID, token, time.Now().Add(expiry))
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset token: %w", err)
	}

	return nil
}

// VerifyResetToken reports whether an unused, unexpired reset token row
// exists for the user
func (r *credentialRepository) VerifyResetToken(ctx context.Context, userID int64, token string) (bool, error) {
	var exists bool
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM password_reset_tokens
			WHERE user_id = $1 AND token = $2 AND used_at IS NULL AND expires_at > NOW()
		)
	`, userID, token).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to verify reset token: %w", err)
	}

	return exists, nil
}

// ConsumeResetToken marks the token used and updates the user's password
// hash in one transaction. A verified-but-not-invalidated token would be
// replayable, so both writes commit together or not at all.
func (r *credentialRepository) ConsumeResetToken(ctx context.Context, userID int64, token, newPasswordHash string) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE password_reset_tokens
		SET used_at = NOW()
		WHERE user_id = $1 AND token = $2 AND used_at IS NULL AND expires_at > NOW()
	`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reset token not found or already used: %w", ErrNotFound)
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE user_id = $1 AND is_deleted = FALSE
	`, userID, newPasswordHash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with id %d not found: %w", userID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit password reset: %w", err)
	}

	return nil
}
