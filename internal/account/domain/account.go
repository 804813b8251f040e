package domain

import (
	"errors"
	"time"
)

// Account is the core account entity. PasswordHash never leaves the
// repository/service boundary; list projections omit it entirely.
type Account struct {
	ID           string
	Name         string
	PasswordHash string
	Role         string
	Mobile       string
	Status       int
	CreatedAt    time.Time
}

// Roles are an open string set; only "admin" carries special privilege.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

// Validate validates the account for persistence and fills role/status
// defaults. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Name == "" {
		return errors.New("name is required")
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	return nil
}

// UpdateFields carries a partial account update. Each field is independently
// present (non-nil) or absent; only present fields are applied.
type UpdateFields struct {
	Name   *string
	Mobile *string
	Role   *string
	Status *int
}

// Empty reports whether no field is present.
func (f UpdateFields) Empty() bool {
	return f.Name == nil && f.Mobile == nil && f.Role == nil && f.Status == nil
}
