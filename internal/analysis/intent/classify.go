// Package intent classifies chat utterances and pulls calories, weights and
// meal types out of free text with a fixed set of keyword rules.
package intent

import (
	"strings"

	"niblet/internal/domain"
)

// Intent is the classified purpose of an utterance.
type Intent string

const (
	MealLog           Intent = "meal-log"
	WeightLog         Intent = "weight-log"
	NutritionQuestion Intent = "nutrition-question"
	Unrecognized      Intent = "unrecognized"
)

type rule struct {
	intent Intent
	match  func(lower string) bool
}

var (
	weightKeywords   = []string{"weigh", "weight"}
	mealKeywords     = []string{"had", "ate", "for breakfast", "for lunch", "for dinner", "consumed"}
	questionKeywords = []string{"how many", "calorie", "nutrition", "healthy", "protein"}
)

// rules are evaluated in order; the first match wins. Weight comes first so
// that "I weigh 150 lbs after lunch" is not taken for a meal.
var rules = []rule{
	{WeightLog, func(s string) bool {
		if _, ok := ExtractWeight(s); ok {
			return true
		}
		return containsAny(s, weightKeywords)
	}},
	{MealLog, func(s string) bool { return containsAny(s, mealKeywords) }},
	{NutritionQuestion, func(s string) bool {
		return containsAny(s, questionKeywords) || strings.HasSuffix(strings.TrimSpace(s), "?")
	}},
}

// Classify returns the intent of text.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.match(lower) {
			return r.intent
		}
	}
	return Unrecognized
}

// Analysis is a classified utterance with whatever quantity applies to it.
type Analysis struct {
	Text     string            `json:"text"`
	Intent   Intent            `json:"intent"`
	Quantity *Quantity         `json:"quantity,omitempty"`
	MealType domain.MealType   `json:"mealType,omitempty"`
	Foods    []domain.FoodItem `json:"foods,omitempty"`
}

// Analyze classifies text and extracts the quantity for its intent: a weight
// for WeightLog, a calorie estimate for MealLog. A WeightLog without a
// parseable weight has a nil Quantity.
func Analyze(text string) Analysis {
	a := Analysis{Text: text, Intent: Classify(text)}
	switch a.Intent {
	case WeightLog:
		if q, ok := ExtractWeight(text); ok {
			a.Quantity = &q
		}
	case MealLog:
		est := EstimateCalories(text)
		a.Quantity = &Quantity{Kind: KindCalories, Value: float64(est.Calories)}
		a.MealType = est.MealType
		a.Foods = est.Foods
	}
	return a
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
