package repository

import (
	"github.com/scholar-spark/auth-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User       UserRepository
	Credential CredentialRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Credential: NewCredentialRepository(db),
	}
}
