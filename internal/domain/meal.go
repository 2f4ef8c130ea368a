package domain

import (
	"context"
	"time"
)

// MealType is the slot of the day a meal belongs to.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// MealTypes lists meal types in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

var validMealTypes = map[MealType]bool{
	Breakfast: true,
	Lunch:     true,
	Dinner:    true,
	Snack:     true,
}

// IsValid reports whether t is a known meal type.
func (t MealType) IsValid() bool {
	return validMealTypes[t]
}

// Meal sources.
const (
	SourceChat   = "chat"
	SourceManual = "manual"
	SourceImage  = "image"
	SourceMCP    = "mcp"
)

// FoodItem is one recognised food inside a meal description.
type FoodItem struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

// Meal is a logged meal.
type Meal struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Description string     `json:"description"`
	Calories    int        `json:"calories"`
	MealType    MealType   `json:"mealType"`
	Date        string     `json:"date"`
	Nutrition   Nutrition  `json:"nutrition"`
	Foods       []FoodItem `json:"foods,omitempty"`
	Rating      int        `json:"rating,omitempty"`
	Source      string     `json:"source"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// MealRepository is the port for meal persistence.
type MealRepository interface {
	AddMeal(ctx context.Context, m Meal) (int64, error)
	// GetMeal returns nil when the meal does not exist for the user.
	GetMeal(ctx context.Context, userID, id int64) (*Meal, error)
	UpdateMeal(ctx context.Context, m Meal) (bool, error)
	DeleteMeal(ctx context.Context, userID, id int64) (bool, error)
	// ListMeals returns meals newest first.
	ListMeals(ctx context.Context, userID int64, r DayRange) ([]Meal, error)
}
