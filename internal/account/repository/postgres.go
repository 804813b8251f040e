package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"rms-auth-service/internal/account/domain"
)

// PostgresRepository persists accounts in the accounts table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, "id", id)
}

// GetByName returns the account with the given name (case-sensitive match),
// or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	return r.getBy(ctx, "name", name)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT id, name, password_hash, role, mobile, status, created_at FROM accounts WHERE %s = $1`, column)
	var a domain.Account
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&a.ID, &a.Name, &a.PasswordHash, &a.Role, &a.Mobile, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Create persists the account and assigns a fresh id and creation time.
// A name collision surfaces as ErrDuplicateName via the UNIQUE constraint.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, password_hash, role, mobile, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.PasswordHash, a.Role, a.Mobile, a.Status, a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// Update applies only the present fields with a dynamically built SET clause.
// Empty field sets return ErrNoFields without touching the database; a rename
// collision surfaces as ErrDuplicateName.
func (r *PostgresRepository) Update(ctx context.Context, id string, fields domain.UpdateFields) error {
	if fields.Empty() {
		return ErrNoFields
	}
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Mobile != nil {
		add("mobile", *fields.Mobile)
	}
	if fields.Role != nil {
		add("role", *fields.Role)
	}
	if fields.Status != nil {
		add("status", *fields.Status)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	_, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

// Delete removes the account row. Deleting a missing id affects zero rows and
// succeeds.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

// List returns accounts ordered by creation time, optionally excluding a
// role. The password hash column is never selected.
func (r *PostgresRepository) List(ctx context.Context, excludeRole string) ([]domain.Account, error) {
	query := `SELECT id, name, role, mobile, status, created_at FROM accounts`
	var args []interface{}
	if excludeRole != "" {
		query += ` WHERE role != $1`
		args = append(args, excludeRole)
	}
	query += ` ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Role, &a.Mobile, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ResetPasswordByRole sets the password hash of every account with the given
// role and returns the number of rows updated.
func (r *PostgresRepository) ResetPasswordByRole(ctx context.Context, role, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET password_hash = $1 WHERE role = $2`, passwordHash, role)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), e.g. from the UNIQUE constraint on accounts.name.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
