package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"niblet/internal/domain"
)

const mealColumns = "id, user_id, description, calories, meal_type, day, protein, carbs, fat, rating, source, created_at"

func scanMeal(s interface{ Scan(...any) error }) (domain.Meal, error) {
	var m domain.Meal
	err := s.Scan(&m.ID, &m.UserID, &m.Description, &m.Calories, &m.MealType, &m.Date,
		&m.Nutrition.Protein, &m.Nutrition.Carbs, &m.Nutrition.Fat, &m.Rating, &m.Source, &m.CreatedAt)
	return m, err
}

// AddMeal inserts a meal and its foods in one transaction.
func (d *DB) AddMeal(ctx context.Context, m domain.Meal) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO meals(user_id, description, calories, meal_type, day, protein, carbs, fat, rating, source, created_at) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id;",
		m.UserID, m.Description, m.Calories, m.MealType, m.Date,
		m.Nutrition.Protein, m.Nutrition.Carbs, m.Nutrition.Fat, m.Rating, m.Source, m.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert meal: %w", err)
	}
	if err := insertFoods(ctx, tx, id, m.Foods); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func insertFoods(ctx context.Context, tx *sql.Tx, mealID int64, foods []domain.FoodItem) error {
	for _, f := range foods {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meal_foods(meal_id, name, calories) VALUES($1, $2, $3);", mealID, f.Name, f.Calories); err != nil {
			return fmt.Errorf("insert food: %w", err)
		}
	}
	return nil
}

// GetMeal returns one of the user's meals, or nil.
func (d *DB) GetMeal(ctx context.Context, userID, id int64) (*domain.Meal, error) {
	m, err := scanMeal(d.sql.QueryRowContext(ctx,
		"SELECT "+mealColumns+" FROM meals WHERE id=$1 AND user_id=$2;", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	meals := []domain.Meal{m}
	if err := d.loadFoods(ctx, meals); err != nil {
		return nil, err
	}
	return &meals[0], nil
}

// UpdateMeal replaces a meal and its foods.
func (d *DB) UpdateMeal(ctx context.Context, m domain.Meal) (bool, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := affected(tx.ExecContext(ctx,
		"UPDATE meals SET description=$1, calories=$2, meal_type=$3, day=$4, protein=$5, carbs=$6, fat=$7, rating=$8, source=$9 WHERE id=$10 AND user_id=$11;",
		m.Description, m.Calories, m.MealType, m.Date, m.Nutrition.Protein, m.Nutrition.Carbs, m.Nutrition.Fat,
		m.Rating, m.Source, m.ID, m.UserID))
	if err != nil || !ok {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM meal_foods WHERE meal_id=$1;", m.ID); err != nil {
		return false, err
	}
	if err := insertFoods(ctx, tx, m.ID, m.Foods); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// DeleteMeal removes one of the user's meals; foods cascade.
func (d *DB) DeleteMeal(ctx context.Context, userID, id int64) (bool, error) {
	return affected(d.sql.ExecContext(ctx, "DELETE FROM meals WHERE id=$1 AND user_id=$2;", id, userID))
}

// ListMeals returns the user's meals in range, newest first.
func (d *DB) ListMeals(ctx context.Context, userID int64, r domain.DayRange) ([]domain.Meal, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+mealColumns+" FROM meals WHERE user_id=$1 AND ($2 = '' OR day >= $2) AND ($3 = '' OR day <= $3) ORDER BY day DESC, created_at DESC, id DESC LIMIT $4;",
		userID, r.From, r.To, limitArg(r.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Meal, 0)
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, d.loadFoods(ctx, out)
}

// loadFoods fills in Foods for meals with a single query.
func (d *DB) loadFoods(ctx context.Context, meals []domain.Meal) error {
	if len(meals) == 0 {
		return nil
	}
	ids := make([]int64, len(meals))
	index := make(map[int64]int, len(meals))
	for i, m := range meals {
		ids[i] = m.ID
		index[m.ID] = i
	}

	rows, err := d.sql.QueryContext(ctx,
		"SELECT meal_id, name, calories FROM meal_foods WHERE meal_id = ANY($1) ORDER BY id;", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query foods: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mealID int64
		var f domain.FoodItem
		if err := rows.Scan(&mealID, &f.Name, &f.Calories); err != nil {
			return err
		}
		i := index[mealID]
		meals[i].Foods = append(meals[i].Foods, f)
	}
	return rows.Err()
}
