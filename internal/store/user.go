package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. It handles domain validation
	// and password hashing internally.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateTier changes a user's subscription tier. The caller is
	// responsible for validating the transition.
	// Returns ErrUserNotFound if the user does not exist.
	UpdateTier(ctx context.Context, id uuid.UUID, tier domain.Tier) error

	// Delete removes a user from the store by their ID.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a UserStore bound to the provided transaction so
	// multiple operations can share one atomic unit of work.
	WithTx(tx *sql.Tx) UserStore
}
