package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"niblet/internal/domain"
)

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var created string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?", username))
}

// GetByID retrieves a user by ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, created_at FROM users WHERE id = ?", id))
}

// Create creates a new user.
func (s *Store) Create(ctx context.Context, username, passwordHash, role string) (*domain.User, error) {
	if role == "" {
		role = domain.RoleUser
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)",
		username, passwordHash, role, formatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("user %s: %w", username, domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: now}, nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ok, err := affected(s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the total number of users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// CreateReset stores a password reset token.
func (s *Store) CreateReset(ctx context.Context, r domain.PasswordReset) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO password_resets (token, user_id, expires_at) VALUES (?, ?, ?)",
		r.Token, r.UserID, formatTime(r.ExpiresAt))
	return err
}

// ConsumeReset deletes and returns a reset token.
func (s *Store) ConsumeReset(ctx context.Context, token string) (*domain.PasswordReset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r := domain.PasswordReset{Token: token}
	var expires string
	err = tx.QueryRowContext(ctx, "SELECT user_id, expires_at FROM password_resets WHERE token = ?", token).Scan(&r.UserID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM password_resets WHERE token = ?", token); err != nil {
		return nil, err
	}
	return &r, tx.Commit()
}

// SessionRepo implements session persistence on a Store.
type SessionRepo struct {
	s *Store
}

// NewSessionRepo wraps a Store as a SessionRepository.
func NewSessionRepo(s *Store) *SessionRepo {
	return &SessionRepo{s: s}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		token, userID, formatTime(expiresAt), formatTime(time.Now()))
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	sess := domain.Session{Token: token}
	var expires, created string
	err := r.s.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at, created_at FROM sessions WHERE token = ?", token,
	).Scan(&sess.UserID, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpired deletes expired sessions and reset tokens. Timestamps are
// stored as UTC RFC 3339 so they compare as text.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	now := formatTime(time.Now())
	if _, err := r.s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now); err != nil {
		return err
	}
	_, err := r.s.db.ExecContext(ctx, "DELETE FROM password_resets WHERE expires_at < ?", now)
	return err
}
