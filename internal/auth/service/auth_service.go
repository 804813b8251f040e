package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"rms-auth-service/internal/account/domain"
	"rms-auth-service/internal/account/repository"
	"rms-auth-service/internal/security"
)

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
// Duplicate-name and empty-update failures surface as
// repository.ErrDuplicateName and repository.ErrNoFields.
var (
	ErrMissingCredentials = errors.New("name and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrMissingName        = errors.New("name is required")
)

// DefaultPassword is the fixed initial password assigned on admin-create and
// admin password reset. Accounts are expected to change it on first login.
const DefaultPassword = "1234"

// AccountRepo is the account repository needed by the auth service.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, id string, fields domain.UpdateFields) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, excludeRole string) ([]domain.Account, error)
	ResetPasswordByRole(ctx context.Context, role, passwordHash string) (int64, error)
}

// LoginResult holds the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// AuthService orchestrates login, account creation, listing, updates,
// deletion, and the admin password reset.
type AuthService struct {
	accounts AccountRepo
	hasher   *security.Hasher
	tokens   *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(accounts AccountRepo, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{accounts: accounts, hasher: hasher, tokens: tokens}
}

// Login authenticates name/password and issues a session token carrying the
// account's id, name, and role. An unknown name returns ErrAccountNotFound; a
// password mismatch returns ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, name, password string) (*LoginResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	a, err := s.accounts.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	if !s.hasher.Verify(a.PasswordHash, []byte(password)) {
		return nil, ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Issue(a.ID, a.Name, a.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: a}, nil
}

// Register creates an account with the fixed default password. Role defaults
// to "user" and status to enabled when unset. The pre-insert duplicate check
// is an advisory fast path only; the UNIQUE constraint catches races and also
// surfaces as repository.ErrDuplicateName.
func (s *AuthService) Register(ctx context.Context, name, role, mobile string, status *int) (*domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}
	existing, err := s.accounts.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, repository.ErrDuplicateName
	}
	hash, err := s.hasher.Hash([]byte(DefaultPassword))
	if err != nil {
		return nil, err
	}
	st := domain.StatusEnabled
	if status != nil {
		st = *status
	}
	a := &domain.Account{
		Name:         name,
		PasswordHash: hash,
		Role:         strings.TrimSpace(role),
		Mobile:       strings.TrimSpace(mobile),
		Status:       st,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns all accounts except administrative ones, without password
// hashes.
func (s *AuthService) List(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx, domain.RoleAdmin)
}

// Update applies the present fields to the account. An empty field set
// returns repository.ErrNoFields; a rename onto an existing name returns
// repository.ErrDuplicateName and leaves the row unchanged.
func (s *AuthService) Update(ctx context.Context, id string, fields domain.UpdateFields) error {
	if fields.Empty() {
		return repository.ErrNoFields
	}
	if fields.Name != nil {
		existing, err := s.accounts.GetByName(ctx, *fields.Name)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != id {
			return repository.ErrDuplicateName
		}
	}
	return s.accounts.Update(ctx, id, fields)
}

// Delete removes the account. Deleting an id that does not exist still
// succeeds: the end state holds either way.
func (s *AuthService) Delete(ctx context.Context, id string) error {
	return s.accounts.Delete(ctx, id)
}

// ResetAdminPasswords sets every admin account's password to the fixed
// default and returns the number of accounts reset.
func (s *AuthService) ResetAdminPasswords(ctx context.Context) (int64, error) {
	hash, err := s.hasher.Hash([]byte(DefaultPassword))
	if err != nil {
		return 0, err
	}
	return s.accounts.ResetPasswordByRole(ctx, domain.RoleAdmin, hash)
}
