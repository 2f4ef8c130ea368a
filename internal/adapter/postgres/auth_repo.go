// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"niblet/internal/domain"
)

const userColumns = "id, username, password_hash, role, created_at"

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash, role string) (*domain.User, error) {
	if role == "" {
		role = domain.RoleUser
	}
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users (username, password_hash, role, created_at) VALUES ($1, $2, $3, $4) RETURNING "+userColumns,
		username, passwordHash, role, time.Now().UTC(),
	))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %s: %w", username, domain.ErrConflict)
	}
	return u, err
}

// UpdatePassword replaces a user's password hash.
func (d *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ok, err := affected(d.sql.ExecContext(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateReset stores a password reset token.
func (d *DB) CreateReset(ctx context.Context, r domain.PasswordReset) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)",
		r.Token, r.UserID, r.ExpiresAt.UTC())
	return err
}

// ConsumeReset deletes and returns a reset token in one statement.
func (d *DB) ConsumeReset(ctx context.Context, token string) (*domain.PasswordReset, error) {
	var r domain.PasswordReset
	err := d.sql.QueryRowContext(ctx,
		"DELETE FROM password_resets WHERE token = $1 RETURNING token, user_id, expires_at", token,
	).Scan(&r.Token, &r.UserID, &r.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		userID, token, expiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions and reset tokens.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	now := time.Now().UTC()
	if _, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", now); err != nil {
		return err
	}
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM password_resets WHERE expires_at < $1", now)
	return err
}
