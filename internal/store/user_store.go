package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// ErrDuplicateEmail is returned when an email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetByEmail looks the user up by the already-normalised email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *UserStore) Update(ctx context.Context, u *domain.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, password_hash = ? WHERE id = ?
	`, u.Email, u.Name, u.PasswordHash, u.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOneRow(result)
}

func (s *UserStore) get(ctx context.Context, q string, arg string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// isUniqueViolation masks to the primary result code so it matches whether or
// not extended result codes are enabled on the connection.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
