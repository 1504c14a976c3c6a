package repositories

import (
	"context"

	"github.com/rudchat/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	// Create persists a new user, generating a configuration number that
	// is unique across all existing users at issuance time.
	Create(ctx context.Context, name, passwordHash string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByRno(ctx context.Context, rno string) (models.User, error)
	// UpdateName renames a user. Returns ErrNotFound for an unknown id.
	UpdateName(ctx context.Context, id, name string) (models.User, error)
}
