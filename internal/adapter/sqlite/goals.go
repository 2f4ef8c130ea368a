package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"niblet/internal/domain"
)

const goalColumns = "id, user_id, type, current_weight, goal_weight, target_date, weekly_change, daily_calories, protein, carbs, fat, created_at"

func scanGoal(row scanner) (domain.Goal, error) {
	var g domain.Goal
	var created string
	err := row.Scan(&g.ID, &g.UserID, &g.Type, &g.CurrentWeight, &g.GoalWeight, &g.TargetDate, &g.WeeklyChange,
		&g.Target.DailyCalories, &g.Target.Protein, &g.Target.Carbs, &g.Target.Fat, &created)
	if err != nil {
		return g, err
	}
	g.CreatedAt, err = parseTime(created)
	return g, err
}

// AddGoal inserts a goal.
func (s *Store) AddGoal(ctx context.Context, g domain.Goal) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO goals (user_id, type, current_weight, goal_weight, target_date, weekly_change, daily_calories, protein, carbs, fat, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		g.UserID, g.Type, g.CurrentWeight, g.GoalWeight, g.TargetDate, g.WeeklyChange,
		g.Target.DailyCalories, g.Target.Protein, g.Target.Carbs, g.Target.Fat, formatTime(g.CreatedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CurrentGoal returns the user's newest goal, or nil.
func (s *Store) CurrentGoal(ctx context.Context, userID int64) (*domain.Goal, error) {
	g, err := scanGoal(s.db.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGoals returns the user's goals, newest first.
func (s *Store) ListGoals(ctx context.Context, userID int64) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateGoal replaces a goal, keeping its creation time.
func (s *Store) UpdateGoal(ctx context.Context, g domain.Goal) (bool, error) {
	return affected(s.db.ExecContext(ctx,
		"UPDATE goals SET type = ?, current_weight = ?, goal_weight = ?, target_date = ?, weekly_change = ?, daily_calories = ?, protein = ?, carbs = ?, fat = ? WHERE id = ? AND user_id = ?",
		g.Type, g.CurrentWeight, g.GoalWeight, g.TargetDate, g.WeeklyChange,
		g.Target.DailyCalories, g.Target.Protein, g.Target.Carbs, g.Target.Fat, g.ID, g.UserID))
}

// DeleteGoal removes one of the user's goals.
func (s *Store) DeleteGoal(ctx context.Context, userID, id int64) (bool, error) {
	return affected(s.db.ExecContext(ctx, "DELETE FROM goals WHERE id = ? AND user_id = ?", id, userID))
}

// GetProfile returns the user's profile, or nil.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	var updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, height, weight, age, gender, goal_weight, activity_level, onboarding_complete, updated_at FROM profiles WHERE user_id = ?",
		userID,
	).Scan(&p.UserID, &p.Height, &p.Weight, &p.Age, &p.Gender, &p.GoalWeight, &p.ActivityLevel, &p.OnboardingComplete, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile upserts a profile.
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, height, weight, age, gender, goal_weight, activity_level, onboarding_complete, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET height = excluded.height, weight = excluded.weight, age = excluded.age,
			gender = excluded.gender, goal_weight = excluded.goal_weight, activity_level = excluded.activity_level,
			onboarding_complete = excluded.onboarding_complete, updated_at = excluded.updated_at`,
		p.UserID, p.Height, p.Weight, p.Age, p.Gender, p.GoalWeight, p.ActivityLevel, p.OnboardingComplete, formatTime(p.UpdatedAt))
	return err
}
