package domain

import (
	"encoding/json"
	"time"
)

// User represents a user identity record. Soft-deleted users are excluded
// from every authentication path.
type User struct {
	ID           int64      `json:"id" db:"user_id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	IsDeleted    bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// Profile holds display fields, one-to-one with User and created in the
// same transaction.
type Profile struct {
	ID          int64           `json:"profile_id" db:"profile_id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	FirstName   string          `json:"first_name" db:"first_name"`
	LastName    string          `json:"last_name" db:"last_name"`
	DisplayName string          `json:"display_name" db:"display_name"`
	Preferences json.RawMessage `json:"preferences" db:"preferences"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	IsDeleted   bool            `json:"is_deleted" db:"is_deleted"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// IsComplete reports whether the profile carries real name fields
func (p *Profile) IsComplete() bool {
	return p != nil && p.FirstName != "" && p.LastName != ""
}

// UserRecord is a user joined with its profile, returned from creation
// and lookup paths.
type UserRecord struct {
	User    User     `json:"user"`
	Profile *Profile `json:"profile,omitempty"`
}
