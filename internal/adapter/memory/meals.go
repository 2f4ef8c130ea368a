package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"niblet/internal/domain"
)

// --- MealRepository ---

// AddMeal stores a meal.
func (db *DB) AddMeal(_ context.Context, m domain.Meal) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.mealIDCounter++
	m.ID = db.mealIDCounter
	m.CreatedAt = m.CreatedAt.UTC()
	m.Foods = slices.Clone(m.Foods)
	db.meals = append(db.meals, m)
	return m.ID, nil
}

// GetMeal returns one of the user's meals, or nil.
func (db *DB) GetMeal(_ context.Context, userID, id int64) (*domain.Meal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, m := range db.meals {
		if m.ID == id && m.UserID == userID {
			m.Foods = slices.Clone(m.Foods)
			return &m, nil
		}
	}
	return nil, nil
}

// UpdateMeal replaces a stored meal.
func (db *DB) UpdateMeal(_ context.Context, m domain.Meal) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, existing := range db.meals {
		if existing.ID == m.ID && existing.UserID == m.UserID {
			m.Foods = slices.Clone(m.Foods)
			db.meals[i] = m
			return true, nil
		}
	}
	return false, nil
}

// DeleteMeal deletes one of the user's meals.
func (db *DB) DeleteMeal(_ context.Context, userID, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, m := range db.meals {
		if m.ID == id && m.UserID == userID {
			db.meals = append(db.meals[:i], db.meals[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ListMeals lists the user's meals in range, newest first.
func (db *DB) ListMeals(_ context.Context, userID int64, r domain.DayRange) ([]domain.Meal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Meal, 0)
	for _, m := range db.meals {
		if m.UserID == userID && r.Contains(m.Date) {
			m.Foods = slices.Clone(m.Foods)
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if r.Limit > 0 && len(result) > r.Limit {
		result = result[:r.Limit]
	}
	return result, nil
}

// --- GoalRepository ---

// AddGoal stores a goal.
func (db *DB) AddGoal(_ context.Context, g domain.Goal) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.goalIDCounter++
	g.ID = db.goalIDCounter
	g.CreatedAt = g.CreatedAt.UTC()
	db.goals = append(db.goals, g)
	return g.ID, nil
}

// CurrentGoal returns the user's most recently created goal.
func (db *DB) CurrentGoal(ctx context.Context, userID int64) (*domain.Goal, error) {
	goals, _ := db.ListGoals(ctx, userID)
	if len(goals) == 0 {
		return nil, nil
	}
	return &goals[0], nil
}

// ListGoals lists the user's goals, newest first.
func (db *DB) ListGoals(_ context.Context, userID int64) ([]domain.Goal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Goal, 0)
	for _, g := range db.goals {
		if g.UserID == userID {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// UpdateGoal replaces a stored goal.
func (db *DB) UpdateGoal(_ context.Context, g domain.Goal) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, existing := range db.goals {
		if existing.ID == g.ID && existing.UserID == g.UserID {
			g.CreatedAt = existing.CreatedAt
			db.goals[i] = g
			return true, nil
		}
	}
	return false, nil
}

// DeleteGoal deletes one of the user's goals.
func (db *DB) DeleteGoal(_ context.Context, userID, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, g := range db.goals {
		if g.ID == id && g.UserID == userID {
			db.goals = append(db.goals[:i], db.goals[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- ProfileRepository ---

// GetProfile returns the user's profile, or nil.
func (db *DB) GetProfile(_ context.Context, userID int64) (*domain.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SaveProfile upserts a profile.
func (db *DB) SaveProfile(_ context.Context, p domain.Profile) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	db.profiles[p.UserID] = p
	return nil
}
