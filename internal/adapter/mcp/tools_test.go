package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"niblet/internal/adapter/memory"
	"niblet/internal/app"
	"niblet/internal/domain"
)

func newTools(t *testing.T) (*Tools, *memory.DB) {
	t.Helper()
	db := memory.New()
	return New(app.NewMealService(db, db), app.NewWeightService(db, db, db)), db
}

func call(t *testing.T, tools *Tools, name string, args map[string]any) (*protocol.CallToolResult, error) {
	t.Helper()
	return tools.Call(context.Background(), 1, &protocol.CallToolRequest{Name: name, Arguments: args})
}

func decodeText(t *testing.T, res *protocol.CallToolResult, dst any) {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(protocol.TextContent)
	if !ok {
		t.Fatalf("content is %T; want TextContent", res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), dst); err != nil {
		t.Fatalf("decode %q: %v", text.Text, err)
	}
}

func TestLogMealEstimatesWhenCaloriesMissing(t *testing.T) {
	tools, db := newTools(t)

	res, err := call(t, tools, ToolLogMeal, map[string]any{"description": "I had a turkey sandwich for lunch"})
	if err != nil {
		t.Fatalf("log_meal: %v", err)
	}
	var meal domain.Meal
	decodeText(t, res, &meal)
	if meal.Calories != 350 || meal.MealType != domain.Lunch || meal.Source != domain.SourceMCP {
		t.Errorf("meal = %+v", meal)
	}

	stored, _ := db.ListMeals(context.Background(), 1, domain.DayRange{})
	if len(stored) != 1 || len(stored[0].Foods) != 1 {
		t.Errorf("stored meals = %+v", stored)
	}
}

func TestLogMealExplicitCalories(t *testing.T) {
	tools, _ := newTools(t)
	res, err := call(t, tools, ToolLogMeal, map[string]any{"description": "protein shake", "calories": 220, "meal_type": "Snack"})
	if err != nil {
		t.Fatalf("log_meal: %v", err)
	}
	var meal domain.Meal
	decodeText(t, res, &meal)
	if meal.Calories != 220 || meal.MealType != domain.Snack {
		t.Errorf("meal = %+v", meal)
	}
}

func TestGetMealsAndWeight(t *testing.T) {
	tools, _ := newTools(t)
	for _, d := range []string{"pizza", "burger and fries"} {
		if _, err := call(t, tools, ToolLogMeal, map[string]any{"description": d}); err != nil {
			t.Fatalf("log_meal %q: %v", d, err)
		}
	}

	res, err := call(t, tools, ToolGetMeals, map[string]any{"limit": 1})
	if err != nil {
		t.Fatalf("get_meals: %v", err)
	}
	var meals []domain.Meal
	decodeText(t, res, &meals)
	if len(meals) != 1 || meals[0].Description != "burger and fries" {
		t.Errorf("meals = %+v", meals)
	}

	res, err = call(t, tools, ToolLogWeight, map[string]any{"weight": 82, "unit": "kg"})
	if err != nil {
		t.Fatalf("log_weight: %v", err)
	}
	var entry domain.WeightEntry
	decodeText(t, res, &entry)
	if entry.Weight != 180.8 || entry.Notes != "Logged via MCP" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestEstimateCalories(t *testing.T) {
	tools, db := newTools(t)
	res, err := call(t, tools, ToolEstimateCalories, map[string]any{"description": "turkey sandwich"})
	if err != nil {
		t.Fatalf("estimate_calories: %v", err)
	}
	var est app.MealEstimate
	decodeText(t, res, &est)
	if est.Calories != 350 || est.Nutrition.Protein != 26 {
		t.Errorf("estimate = %+v", est)
	}
	if meals, _ := db.ListMeals(context.Background(), 1, domain.DayRange{}); len(meals) != 0 {
		t.Error("estimate must not log a meal")
	}
}

func TestCallErrors(t *testing.T) {
	tools, _ := newTools(t)
	tests := []struct {
		name string
		tool string
		args map[string]any
		want error
	}{
		{"unknown tool", "calculate_carbs", nil, domain.ErrNotFound},
		{"missing description", ToolLogMeal, map[string]any{}, domain.ErrValidation},
		{"bad argument type", ToolLogWeight, map[string]any{"weight": "heavy"}, domain.ErrValidation},
		{"zero weight", ToolLogWeight, map[string]any{"weight": 0}, domain.ErrValidation},
		{"bad unit", ToolLogWeight, map[string]any{"weight": 80, "unit": "stone"}, domain.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := call(t, tools, tc.tool, tc.args); !errors.Is(err, tc.want) {
				t.Errorf("err = %v; want %v", err, tc.want)
			}
		})
	}
}
