package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/scholar-spark/auth-service/internal/domain"
	"github.com/scholar-spark/auth-service/pkg/database"
)

// userRepository implements UserRepository on Postgres
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// CreateWithProfile creates a user, its profile, and the default role in a
// single transaction. A failure anywhere rolls the whole creation back.
func (r *userRepository) CreateWithProfile(ctx context.Context, user *domain.User, profile *domain.Profile) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := insertProfile(ctx, tx, user.ID, profile); err != nil {
		return err
	}

	if err := assignDefaultRole(ctx, tx, user.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	return nil
}

// CreateWithOpenID creates a user, profile, and provider credential in one
// transaction
func (r *userRepository) CreateWithOpenID(ctx context.Context, user *domain.User, profile *domain.Profile, credential *domain.OpenIDCredential) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := insertProfile(ctx, tx, user.ID, profile); err != nil {
		return err
	}

	if err := assignDefaultRole(ctx, tx, user.ID); err != nil {
		return err
	}

	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}
	credential.UserID = user.ID

	_, err = tx.ExecContext(ctx, `
		INSERT INTO openid_credentials (credential_id, user_id, provider, provider_user_id, email, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
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
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("provider credential for %s already exists: %w", credential.Provider, ErrDuplicateProvider)
		}
		return fmt.Errorf("failed to create openid credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	return nil
}

func insertUser(ctx context.Context, tx *sql.Tx, user *domain.User) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, is_active, is_deleted)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, created_at, updated_at
	`,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.IsDeleted,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func insertProfile(ctx context.Context, tx *sql.Tx, userID int64, profile *domain.Profile) error {
	if profile.DisplayName == "" {
		profile.DisplayName = fmt.Sprintf("%s %s", profile.FirstName, profile.LastName)
	}
	profile.UserID = userID

	preferences := profile.Preferences
	if len(preferences) == 0 {
		preferences = []byte("{}")
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO user_profiles (user_id, first_name, last_name, display_name, preferences, is_active, is_deleted)
		VALUES ($1, $2, $3, $4, $5, TRUE, FALSE)
		RETURNING profile_id, created_at, updated_at
	`,
		userID,
		profile.FirstName,
		profile.LastName,
		profile.DisplayName,
		[]byte(preferences),
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

func assignDefaultRole(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, role_id FROM roles WHERE name = 'user'
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to assign default role: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email. Matching is case-sensitive; soft
// deleted users are excluded unless includeDeleted is set.
func (r *userRepository) GetByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	query := `
		SELECT user_id, email, password_hash, is_active, is_deleted, created_at, updated_at, last_login_at
		FROM users
		WHERE email = $1
	`
	if !includeDeleted {
		query += ` AND is_deleted = FALSE`
	}

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a non-deleted user by id
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(r.db.DB.QueryRowContext(ctx, `
		SELECT user_id, email, password_hash, is_active, is_deleted, created_at, updated_at, last_login_at
		FROM users
		WHERE user_id = $1 AND is_deleted = FALSE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %d not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetByProvider retrieves a non-deleted user linked to the given provider subject
func (r *userRepository) GetByProvider(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
	user, err := scanUser(r.db.DB.QueryRowContext(ctx, `
		SELECT u.user_id, u.email, u.password_hash, u.is_active, u.is_deleted, u.created_at, u.updated_at, u.last_login_at
		FROM users u
		JOIN openid_credentials c ON c.user_id = u.user_id
		WHERE c.provider = $1 AND c.provider_user_id = $2 AND u.is_deleted = FALSE
	`, provider, providerUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user for provider %s not found: %w", provider, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by provider: %w", err)
	}

	return user, nil
}

// GetProfile retrieves the profile for a user
func (r *userRepository) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	profile := &domain.Profile{}
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT profile_id, user_id, first_name, last_name, display_name, preferences, is_active, is_deleted, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.DisplayName,
		&profile.Preferences,
		&profile.IsActive,
		&profile.IsDeleted,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile for user %d not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpdateStatus updates a user's active flag, skipping soft-deleted users
func (r *userRepository) UpdateStatus(ctx context.Context, id int64, isActive bool) (*domain.User, error) {
	user, err := scanUser(r.db.DB.QueryRowContext(ctx, `
		UPDATE users
		SET is_active = $2, updated_at = NOW()
		WHERE user_id = $1 AND is_deleted = FALSE
		RETURNING user_id, email, password_hash, is_active, is_deleted, created_at, updated_at, last_login_at
	`, id, isActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %d not found or deleted: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	return user, nil
}

// SoftDelete marks a user and its profile deleted and inactive
func (r *userRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, true)
}

// Reactivate clears the deleted flag on a user and its profile
func (r *userRepository) Reactivate(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, false)
}

func (r *userRepository) setDeleted(ctx context.Context, id int64, deleted bool) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE users
		SET is_deleted = $2, is_active = $3, updated_at = NOW()
		WHERE user_id = $1
	`, id, deleted, !deleted)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with id %d not found: %w", id, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_profiles
		SET is_deleted = $2, is_active = $3, updated_at = NOW()
		WHERE user_id = $1
	`, id, deleted, !deleted)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user update: %w", err)
	}

	return nil
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	result, err := r.db.DB.ExecContext(ctx, `
		UPDATE users SET last_login_at = NOW() WHERE user_id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user with id %d not found: %w", id, ErrNotFound)
	}

	return nil
}

// GetRoles returns the role names assigned to a user
func (r *userRepository) GetRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// GetPermissions returns the distinct permission names granted through the
// user's roles
func (r *userRepository) GetPermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.permission_id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsDeleted,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		user.LastLoginAt = &t
	}

	return user, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return values, nil
}
