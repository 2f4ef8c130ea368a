package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"niblet/internal/domain"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

var (
	_ domain.UserRepository        = (*DB)(nil)
	_ domain.ResetTokenRepository  = (*DB)(nil)
	_ domain.WeightRepository      = (*DB)(nil)
	_ domain.MealRepository        = (*DB)(nil)
	_ domain.GoalRepository        = (*DB)(nil)
	_ domain.ProfileRepository     = (*DB)(nil)
	_ domain.PersonalityRepository = (*DB)(nil)
	_ domain.TemplateRepository    = (*DB)(nil)
	_ domain.SessionRepository     = (*SessionRepo)(nil)
)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL DEFAULT '', role TEXT NOT NULL DEFAULT 'user', created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
		"CREATE TABLE IF NOT EXISTS password_resets (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, expires_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS weight_entries (id BIGSERIAL PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, day TEXT NOT NULL, weight DOUBLE PRECISION NOT NULL, unit TEXT NOT NULL CHECK(unit IN ('kg','lb')), notes TEXT NOT NULL DEFAULT '', created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_weight_entries_user_day ON weight_entries(user_id, day);",
		"CREATE TABLE IF NOT EXISTS meals (id BIGSERIAL PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, description TEXT NOT NULL, calories INTEGER NOT NULL, meal_type TEXT NOT NULL, day TEXT NOT NULL, protein INTEGER NOT NULL, carbs INTEGER NOT NULL, fat INTEGER NOT NULL, rating INTEGER NOT NULL DEFAULT 0, source TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_meals_user_day ON meals(user_id, day);",
		"CREATE TABLE IF NOT EXISTS meal_foods (id BIGSERIAL PRIMARY KEY, meal_id BIGINT NOT NULL REFERENCES meals(id) ON DELETE CASCADE, name TEXT NOT NULL, calories INTEGER NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_meal_foods_meal_id ON meal_foods(meal_id);",
		"CREATE TABLE IF NOT EXISTS goals (id BIGSERIAL PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, type TEXT NOT NULL, current_weight DOUBLE PRECISION NOT NULL, goal_weight DOUBLE PRECISION NOT NULL, target_date TEXT NOT NULL, weekly_change DOUBLE PRECISION NOT NULL, daily_calories INTEGER NOT NULL, protein INTEGER NOT NULL, carbs INTEGER NOT NULL, fat INTEGER NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_goals_user_id ON goals(user_id);",
		"CREATE TABLE IF NOT EXISTS profiles (user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE, height DOUBLE PRECISION NOT NULL DEFAULT 0, weight DOUBLE PRECISION NOT NULL DEFAULT 0, age INTEGER NOT NULL DEFAULT 0, gender TEXT NOT NULL DEFAULT '', goal_weight DOUBLE PRECISION NOT NULL DEFAULT 0, activity_level TEXT NOT NULL DEFAULT '', onboarding_complete BOOLEAN NOT NULL DEFAULT FALSE, updated_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS personalities (id TEXT PRIMARY KEY, system_prompt TEXT NOT NULL, examples TEXT[] NOT NULL DEFAULT '{}', temperature DOUBLE PRECISION NOT NULL, active BOOLEAN NOT NULL DEFAULT TRUE);",
		"CREATE TABLE IF NOT EXISTS prompt_templates (id TEXT PRIMARY KEY, name TEXT NOT NULL, template TEXT NOT NULL, category TEXT NOT NULL);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// limitArg maps a zero limit to NULL, which PostgreSQL treats as no limit.
func limitArg(n int) any {
	if n <= 0 {
		return nil
	}
	return n
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
