package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NatesHonor/apisite/internal/models"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already taken")
)

// AccountStore defines the interface for account storage operations.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	SetVerified(ctx context.Context, email string, verified bool) error
	Count(ctx context.Context) (int64, error)
}

// SQLAccountStore implements AccountStore on database/sql.
type SQLAccountStore struct {
	db     *sql.DB
	driver string
}

// NewAccountStore creates a SQLAccountStore for the given driver.
func NewAccountStore(db *sql.DB, driver string) *SQLAccountStore {
	return &SQLAccountStore{db: db, driver: driver}
}

// q rewrites ? placeholders to $n for the postgres driver.
func (s *SQLAccountStore) q(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// isUniqueViolation reports whether err is the email UNIQUE constraint firing.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// Create stores a new account. Returns ErrEmailTaken when the email is
// already registered.
func (s *SQLAccountStore) Create(ctx context.Context, account *models.Account) error {
	if s.driver == "postgres" {
		query := s.q(`
			INSERT INTO account_data (email, username, password, role, verified, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		err := s.db.QueryRowContext(ctx, query,
			account.Email, account.Username, account.Password,
			string(account.Role), account.Verified, account.CreatedAt, account.UpdatedAt,
		).Scan(&account.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		return nil
	}

	query := `
		INSERT INTO account_data (email, username, password, role, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		account.Email, account.Username, account.Password,
		string(account.Role), account.Verified, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = id
	return nil
}

// GetByEmail retrieves an account by email.
func (s *SQLAccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := s.q(`
		SELECT id, email, username, password, role, verified, created_at, updated_at
		FROM account_data
		WHERE email = ?
	`)
	return s.scanOne(s.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves an account by ID.
func (s *SQLAccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := s.q(`
		SELECT id, email, username, password, role, verified, created_at, updated_at
		FROM account_data
		WHERE id = ?
	`)
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// SetVerified updates the verified flag for the account with the given email.
func (s *SQLAccountStore) SetVerified(ctx context.Context, email string, verified bool) error {
	query := s.q(`
		UPDATE account_data
		SET verified = ?, updated_at = ?
		WHERE email = ?
	`)
	result, err := s.db.ExecContext(ctx, query, verified, time.Now(), email)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of registered accounts.
func (s *SQLAccountStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account_data`).Scan(&count)
	return count, err
}

func (s *SQLAccountStore) scanOne(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var role string
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.Password,
		&role,
		&account.Verified,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	account.Role = models.Role(role)
	return account, nil
}
