package domain

import (
	"context"
	"math"
	"time"
)

// ActivityLevel describes how active a user is day to day.
type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very-active"
)

var activityMultipliers = map[ActivityLevel]float64{
	Sedentary:  1.2,
	Light:      1.375,
	Moderate:   1.55,
	Active:     1.725,
	VeryActive: 1.9,
}

// IsValid reports whether a is a known activity level.
func (a ActivityLevel) IsValid() bool {
	_, ok := activityMultipliers[a]
	return ok
}

// Multiplier returns the maintenance multiplier, defaulting to moderate.
func (a ActivityLevel) Multiplier() float64 {
	if m, ok := activityMultipliers[a]; ok {
		return m
	}
	return activityMultipliers[Moderate]
}

// GoalType is the direction of a weight goal.
type GoalType string

const (
	GoalLose     GoalType = "lose"
	GoalMaintain GoalType = "maintain"
	GoalGain     GoalType = "gain"
)

// GoalTypeFor derives the goal type from current and goal weight.
func GoalTypeFor(current, goal float64) GoalType {
	switch {
	case goal < current:
		return GoalLose
	case goal > current:
		return GoalGain
	}
	return GoalMaintain
}

// DailyTarget is the nutrition target attached to a goal.
type DailyTarget struct {
	DailyCalories int `json:"dailyCalories"`
	Nutrition
}

// Goal is a weight goal with its daily nutrition target.
type Goal struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"userId"`
	Type          GoalType    `json:"type"`
	CurrentWeight float64     `json:"currentWeight"`
	GoalWeight    float64     `json:"goalWeight"`
	TargetDate    string      `json:"targetDate"`
	WeeklyChange  float64     `json:"weeklyWeightChange"`
	Target        DailyTarget `json:"nutrition"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// CalorieInput carries what the calorie calculator needs.
type CalorieInput struct {
	CurrentWeight      float64       `json:"currentWeight"`
	GoalWeight         float64       `json:"goalWeight,omitempty"`
	Height             float64       `json:"height"`
	Age                int           `json:"age"`
	Gender             string        `json:"gender"`
	ActivityLevel      ActivityLevel `json:"activityLevel"`
	WeeklyWeightChange float64       `json:"weeklyWeightChange"`
}

// MinDailyCalories is the floor applied to any recommendation.
const MinDailyCalories = 1200

// RecommendCalories returns the daily calorie target for the input. Each
// pound of weekly change is worth 500 kcal per day.
func RecommendCalories(in CalorieInput) int {
	bmr := 10*in.CurrentWeight + 1000
	maintenance := math.Round(bmr * in.ActivityLevel.Multiplier())
	target := int(maintenance) + int(math.Round(in.WeeklyWeightChange*500))
	if target < MinDailyCalories {
		return MinDailyCalories
	}
	return target
}

// GoalRepository is the port for goal persistence.
type GoalRepository interface {
	AddGoal(ctx context.Context, g Goal) (int64, error)
	// CurrentGoal returns the most recently created goal, or nil.
	CurrentGoal(ctx context.Context, userID int64) (*Goal, error)
	ListGoals(ctx context.Context, userID int64) ([]Goal, error)
	UpdateGoal(ctx context.Context, g Goal) (bool, error)
	DeleteGoal(ctx context.Context, userID, id int64) (bool, error)
}
