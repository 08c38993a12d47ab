package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/pkg/database"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already registered")
)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

const postgresDDL = `
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL,
  username TEXT NOT NULL,
  hashed_password TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT uq_accounts_email UNIQUE (email),
  CONSTRAINT uq_accounts_username UNIQUE (username)
);`

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS accounts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL UNIQUE,
  hashed_password TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at TIMESTAMP NOT NULL
);`

// EnsureTable creates the accounts table if not exists (idempotent).
// The unique constraints on email and username are the source of truth
// for uniqueness; callers' pre-checks are only a convenience.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	ddl := postgresDDL
	if r.db.DriverName() == database.DriverSQLite {
		ddl = sqliteDDL
	}
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account and fills in its ID. A unique violation is
// reported as ErrDuplicateEmail or ErrDuplicateUsername.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	q := r.db.Rebind(`INSERT INTO accounts (email, username, hashed_password, is_active, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, q, a.Email, a.Username, a.HashedPassword, a.IsActive, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		if constraint, ok := database.ViolatedConstraint(err); ok {
			return duplicateError(constraint)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// duplicateError decides which unique field a violation refers to. Postgres
// names the constraint (uq_accounts_username); sqlite names the column
// (accounts.username). Anything else is treated as the email constraint.
func duplicateError(constraint string) error {
	if strings.Contains(constraint, "username") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

const selectAccount = `SELECT id, email, username, hashed_password, is_active, created_at FROM accounts`

// GetByID fetches an account or ErrNotFound.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE id = ?`, id)
}

// GetByEmail fetches an account by its stored (normalised) email or ErrNotFound.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE email = ?`, email)
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, r.db.Rebind(q), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ExistsByEmail reports whether an account holds email.
func (r *AccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(1) FROM accounts WHERE email = ?`), email); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetActive flips the active flag. Returns ErrNotFound if no row matched.
func (r *AccountRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE accounts SET is_active = ? WHERE id = ?`), active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
