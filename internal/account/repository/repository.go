package repository

import (
	"context"
	"errors"

	"rms-auth-service/internal/account/domain"
)

var (
	// ErrDuplicateName is returned when an insert or rename collides with an
	// existing account name. The UNIQUE constraint on accounts.name is the
	// source of truth; any service-level pre-check is advisory only.
	ErrDuplicateName = errors.New("account name already exists")
	// ErrNoFields is returned by Update when the field set is empty.
	ErrNoFields = errors.New("no fields to update")
)

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	// Create persists the account and assigns its id. Name collisions return
	// ErrDuplicateName.
	Create(ctx context.Context, a *domain.Account) error
	// Update applies only the present fields. Empty field sets return
	// ErrNoFields; rename collisions return ErrDuplicateName.
	Update(ctx context.Context, id string, fields domain.UpdateFields) error
	// Delete removes the account unconditionally. Deleting a missing id is
	// not an error: the end state (no such account) holds either way.
	Delete(ctx context.Context, id string) error
	// List returns accounts without password hashes, optionally excluding a
	// role (used to hide administrative accounts from listings).
	List(ctx context.Context, excludeRole string) ([]domain.Account, error)
	// ResetPasswordByRole sets the password hash of every account with the
	// given role. Returns the number of accounts updated.
	ResetPasswordByRole(ctx context.Context, role, passwordHash string) (int64, error)
}
