// Package repository defines the domain persistence contracts.
package repository

import (
	"context"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
)

// UserRepository is the credential store of record for user accounts.
// Implementation: internal/infrastructure/persistence/postgres/user_repo_impl.go
type UserRepository interface {
	// FindByEmail looks up a user by email (case-insensitive).
	// Returns:
	//   - errors.ErrUserNotFound when no account uses the email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID looks up a user by id.
	// Returns:
	//   - errors.ErrUserNotFound when the id does not exist
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// Create inserts user and fills in its ID, CreatedAt and UpdatedAt.
	// Returns:
	//   - errors.ErrEmailExists when the email is already taken
	Create(ctx context.Context, user *models.User) error

	// Update persists every mutable field of user and refreshes UpdatedAt.
	// Returns:
	//   - errors.ErrUserNotFound when the id does not exist
	//   - errors.ErrEmailExists when the new email is already taken
	Update(ctx context.Context, user *models.User) error

	// Delete removes the user with id.
	// Returns:
	//   - errors.ErrUserNotFound when the id does not exist
	Delete(ctx context.Context, id int64) error

	// Count returns the number of users matching filter.
	Count(ctx context.Context, filter models.UserFilter) (int64, error)

	// List returns users matching filter, paginated and ordered by opts.
	List(ctx context.Context, filter models.UserFilter, opts models.ListOptions) ([]*models.User, error)
}
