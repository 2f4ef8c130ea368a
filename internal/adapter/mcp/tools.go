// Package mcp exposes meal and weight logging as Model Context Protocol
// tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"niblet/internal/app"
	"niblet/internal/domain"
)

const (
	ToolLogMeal          = "log_meal"
	ToolGetMeals         = "get_meals"
	ToolLogWeight        = "log_weight"
	ToolEstimateCalories = "estimate_calories"

	defaultMealLimit = 20
)

// Info identifies this tool server to MCP clients.
var Info = protocol.Implementation{Name: "niblet", Version: "1.0.0"}

// ToolInfo describes one tool for listing.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists the supported tools.
var Catalog = []ToolInfo{
	{ToolLogMeal, "Log a meal. Calories are estimated from the description when omitted."},
	{ToolGetMeals, "List logged meals, newest first, optionally between start_date and end_date (YYYY-MM-DD)."},
	{ToolLogWeight, "Record a weigh-in in kg or lb."},
	{ToolEstimateCalories, "Estimate calories and macros for a meal description without logging it."},
}

type logMealParams struct {
	Description string `json:"description" description:"Description of the meal eaten"`
	Calories    int    `json:"calories,omitempty" description:"Calories; estimated when zero"`
	MealType    string `json:"meal_type,omitempty" description:"breakfast, lunch, dinner or snack"`
	Date        string `json:"date,omitempty" description:"Day eaten (YYYY-MM-DD), defaults to today"`
}

type getMealsParams struct {
	StartDate string `json:"start_date,omitempty" description:"Start date for meal query (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" description:"End date for meal query (YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of meals to return"`
}

type logWeightParams struct {
	Weight float64 `json:"weight" description:"Weight value"`
	Unit   string  `json:"unit,omitempty" description:"kg or lb, defaults to lb"`
	Notes  string  `json:"notes,omitempty"`
}

type estimateParams struct {
	Description string `json:"description" description:"Description of the meal to analyze"`
}

// Tools dispatches tool calls to the application services.
type Tools struct {
	meals   *app.MealService
	weights *app.WeightService
}

func New(meals *app.MealService, weights *app.WeightService) *Tools {
	return &Tools{meals: meals, weights: weights}
}

// Call runs one tool for userID. Unknown tools wrap domain.ErrNotFound and
// bad arguments wrap domain.ErrValidation.
func (t *Tools) Call(ctx context.Context, userID int64, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	switch req.Name {
	case ToolLogMeal:
		return t.logMeal(ctx, userID, req)
	case ToolGetMeals:
		return t.getMeals(ctx, userID, req)
	case ToolLogWeight:
		return t.logWeight(ctx, userID, req)
	case ToolEstimateCalories:
		return t.estimate(req)
	default:
		return nil, fmt.Errorf("unknown tool %q: %w", req.Name, domain.ErrNotFound)
	}
}

func (t *Tools) logMeal(ctx context.Context, userID int64, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var p logMealParams
	if err := extractParams(req, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Description) == "" {
		return nil, domain.Validationf("meal description is required")
	}

	in := app.MealInput{
		Description: p.Description,
		Calories:    p.Calories,
		MealType:    domain.MealType(strings.ToLower(p.MealType)),
		Date:        p.Date,
		Source:      domain.SourceMCP,
	}
	if in.Calories == 0 {
		est, err := t.meals.Analyze(p.Description)
		if err != nil {
			return nil, err
		}
		in.Calories = est.Calories
		in.Foods = est.Foods
		if in.MealType == "" {
			in.MealType = est.MealType
		}
	}

	meal, err := t.meals.Create(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return jsonResult(meal)
}

func (t *Tools) getMeals(ctx context.Context, userID int64, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var p getMealsParams
	if err := extractParams(req, &p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = defaultMealLimit
	}
	meals, err := t.meals.List(ctx, userID, domain.DayRange{From: p.StartDate, To: p.EndDate, Limit: p.Limit})
	if err != nil {
		return nil, err
	}
	return jsonResult(meals)
}

func (t *Tools) logWeight(ctx context.Context, userID int64, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var p logWeightParams
	if err := extractParams(req, &p); err != nil {
		return nil, err
	}
	notes := p.Notes
	if notes == "" {
		notes = "Logged via MCP"
	}
	entry, err := t.weights.RecordWeight(ctx, userID, p.Weight, p.Unit, notes)
	if err != nil {
		return nil, err
	}
	return jsonResult(entry)
}

func (t *Tools) estimate(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var p estimateParams
	if err := extractParams(req, &p); err != nil {
		return nil, err
	}
	est, err := t.meals.Analyze(p.Description)
	if err != nil {
		return nil, err
	}
	return jsonResult(est)
}

// extractParams round-trips the argument map through JSON into target.
func extractParams(req *protocol.CallToolRequest, target any) error {
	raw, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", domain.ErrValidation, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: invalid parameters: %v", domain.ErrValidation, err)
	}
	return nil
}

func jsonResult(v any) (*protocol.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{Type: "text", Text: string(b)},
		},
	}, nil
}
