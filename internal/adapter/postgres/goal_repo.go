package postgres

import (
	"context"
	"database/sql"
	"errors"

	"niblet/internal/domain"
)

const goalColumns = "id, user_id, type, current_weight, goal_weight, target_date, weekly_change, daily_calories, protein, carbs, fat, created_at"

func scanGoal(s interface{ Scan(...any) error }) (domain.Goal, error) {
	var g domain.Goal
	err := s.Scan(&g.ID, &g.UserID, &g.Type, &g.CurrentWeight, &g.GoalWeight, &g.TargetDate, &g.WeeklyChange,
		&g.Target.DailyCalories, &g.Target.Protein, &g.Target.Carbs, &g.Target.Fat, &g.CreatedAt)
	return g, err
}

// AddGoal inserts a goal.
func (d *DB) AddGoal(ctx context.Context, g domain.Goal) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO goals(user_id, type, current_weight, goal_weight, target_date, weekly_change, daily_calories, protein, carbs, fat, created_at) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id;",
		g.UserID, g.Type, g.CurrentWeight, g.GoalWeight, g.TargetDate, g.WeeklyChange,
		g.Target.DailyCalories, g.Target.Protein, g.Target.Carbs, g.Target.Fat, g.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// CurrentGoal returns the user's newest goal, or nil.
func (d *DB) CurrentGoal(ctx context.Context, userID int64) (*domain.Goal, error) {
	g, err := scanGoal(d.sql.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1;", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGoals returns the user's goals, newest first.
func (d *DB) ListGoals(ctx context.Context, userID int64) ([]domain.Goal, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE user_id=$1 ORDER BY created_at DESC, id DESC;", userID)
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
func (d *DB) UpdateGoal(ctx context.Context, g domain.Goal) (bool, error) {
	return affected(d.sql.ExecContext(ctx,
		"UPDATE goals SET type=$1, current_weight=$2, goal_weight=$3, target_date=$4, weekly_change=$5, daily_calories=$6, protein=$7, carbs=$8, fat=$9 WHERE id=$10 AND user_id=$11;",
		g.Type, g.CurrentWeight, g.GoalWeight, g.TargetDate, g.WeeklyChange,
		g.Target.DailyCalories, g.Target.Protein, g.Target.Carbs, g.Target.Fat, g.ID, g.UserID))
}

// DeleteGoal removes one of the user's goals.
func (d *DB) DeleteGoal(ctx context.Context, userID, id int64) (bool, error) {
	return affected(d.sql.ExecContext(ctx, "DELETE FROM goals WHERE id=$1 AND user_id=$2;", id, userID))
}

// GetProfile returns the user's profile, or nil.
func (d *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := d.sql.QueryRowContext(ctx,
		"SELECT user_id, height, weight, age, gender, goal_weight, activity_level, onboarding_complete, updated_at FROM profiles WHERE user_id=$1;",
		userID,
	).Scan(&p.UserID, &p.Height, &p.Weight, &p.Age, &p.Gender, &p.GoalWeight, &p.ActivityLevel, &p.OnboardingComplete, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile upserts a profile.
func (d *DB) SaveProfile(ctx context.Context, p domain.Profile) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO profiles(user_id, height, weight, age, gender, goal_weight, activity_level, onboarding_complete, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET height=EXCLUDED.height, weight=EXCLUDED.weight, age=EXCLUDED.age, gender=EXCLUDED.gender,
			goal_weight=EXCLUDED.goal_weight, activity_level=EXCLUDED.activity_level,
			onboarding_complete=EXCLUDED.onboarding_complete, updated_at=EXCLUDED.updated_at;`,
		p.UserID, p.Height, p.Weight, p.Age, p.Gender, p.GoalWeight, p.ActivityLevel, p.OnboardingComplete, p.UpdatedAt.UTC())
	return err
}
