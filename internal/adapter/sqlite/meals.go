package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"niblet/internal/domain"
)

const mealColumns = "id, user_id, description, calories, meal_type, day, protein, carbs, fat, rating, source, created_at"

func scanMeal(row scanner) (domain.Meal, error) {
	var m domain.Meal
	var created string
	err := row.Scan(&m.ID, &m.UserID, &m.Description, &m.Calories, &m.MealType, &m.Date,
		&m.Nutrition.Protein, &m.Nutrition.Carbs, &m.Nutrition.Fat, &m.Rating, &m.Source, &created)
	if err != nil {
		return m, err
	}
	m.CreatedAt, err = parseTime(created)
	return m, err
}

// AddMeal inserts a meal and its foods in one transaction.
func (s *Store) AddMeal(ctx context.Context, m domain.Meal) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO meals (user_id, description, calories, meal_type, day, protein, carbs, fat, rating, source, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.UserID, m.Description, m.Calories, m.MealType, m.Date,
		m.Nutrition.Protein, m.Nutrition.Carbs, m.Nutrition.Fat, m.Rating, m.Source, formatTime(m.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert meal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get meal ID: %w", err)
	}
	if err := insertFoods(ctx, tx, id, m.Foods); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func insertFoods(ctx context.Context, tx *sql.Tx, mealID int64, foods []domain.FoodItem) error {
	for _, f := range foods {
		if _, err := tx.ExecContext(ctx, "INSERT INTO foods (meal_id, name, calories) VALUES (?, ?, ?)", mealID, f.Name, f.Calories); err != nil {
			return fmt.Errorf("failed to insert food: %w", err)
		}
	}
	return nil
}

// GetMeal returns one of the user's meals, or nil.
func (s *Store) GetMeal(ctx context.Context, userID, id int64) (*domain.Meal, error) {
	m, err := scanMeal(s.db.QueryRowContext(ctx,
		"SELECT "+mealColumns+" FROM meals WHERE id = ? AND user_id = ?", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if m.Foods, err = s.loadFoodsForMeal(ctx, m.ID); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMeal replaces a meal and its foods.
func (s *Store) UpdateMeal(ctx context.Context, m domain.Meal) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := affected(tx.ExecContext(ctx,
		"UPDATE meals SET description = ?, calories = ?, meal_type = ?, day = ?, protein = ?, carbs = ?, fat = ?, rating = ?, source = ? WHERE id = ? AND user_id = ?",
		m.Description, m.Calories, m.MealType, m.Date, m.Nutrition.Protein, m.Nutrition.Carbs, m.Nutrition.Fat,
		m.Rating, m.Source, m.ID, m.UserID))
	if err != nil || !ok {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM foods WHERE meal_id = ?", m.ID); err != nil {
		return false, err
	}
	if err := insertFoods(ctx, tx, m.ID, m.Foods); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// DeleteMeal removes one of the user's meals; foods cascade.
func (s *Store) DeleteMeal(ctx context.Context, userID, id int64) (bool, error) {
	return affected(s.db.ExecContext(ctx, "DELETE FROM meals WHERE id = ? AND user_id = ?", id, userID))
}

// ListMeals returns the user's meals in range, newest first.
func (s *Store) ListMeals(ctx context.Context, userID int64, r domain.DayRange) ([]domain.Meal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+mealColumns+" FROM meals WHERE user_id = ? AND (? = '' OR day >= ?) AND (? = '' OR day <= ?) ORDER BY day DESC, created_at DESC, id DESC LIMIT ?",
		userID, r.From, r.From, r.To, r.To, limitArg(r.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}

	out := make([]domain.Meal, 0)
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, m)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Foods are loaded after the cursor closes; the pool holds one connection.
	for i := range out {
		if out[i].Foods, err = s.loadFoodsForMeal(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadFoodsForMeal(ctx context.Context, mealID int64) ([]domain.FoodItem, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, calories FROM foods WHERE meal_id = ? ORDER BY id", mealID)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	var foods []domain.FoodItem
	for rows.Next() {
		var f domain.FoodItem
		if err := rows.Scan(&f.Name, &f.Calories); err != nil {
			return nil, err
		}
		foods = append(foods, f)
	}
	return foods, rows.Err()
}
