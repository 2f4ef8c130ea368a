package intent

import (
	"strings"

	"niblet/internal/domain"
)

// FallbackCalories is the estimate for text with no known food and no meal
// type.
const FallbackCalories = 350

// CalorieStep is the size of one lower/higher adjustment.
const CalorieStep = 50

var mealTypeDefaults = map[domain.MealType]int{
	domain.Breakfast: 400,
	domain.Lunch:     600,
	domain.Dinner:    700,
	domain.Snack:     150,
}

// lexicon maps food keywords to approximate calories per serving. Matching is
// a plain substring search, so order only affects the order foods are
// reported in.
var lexicon = []domain.FoodItem{
	{Name: "apple", Calories: 95},
	{Name: "banana", Calories: 105},
	{Name: "orange", Calories: 62},
	{Name: "egg", Calories: 78},
	{Name: "toast", Calories: 75},
	{Name: "bagel", Calories: 245},
	{Name: "oatmeal", Calories: 150},
	{Name: "cereal", Calories: 150},
	{Name: "pancake", Calories: 175},
	{Name: "waffle", Calories: 220},
	{Name: "bacon", Calories: 90},
	{Name: "sandwich", Calories: 350},
	{Name: "burger", Calories: 550},
	{Name: "pizza", Calories: 285},
	{Name: "salad", Calories: 150},
	{Name: "soup", Calories: 200},
	{Name: "pasta", Calories: 400},
	{Name: "rice", Calories: 200},
	{Name: "chicken", Calories: 250},
	{Name: "steak", Calories: 600},
	{Name: "salmon", Calories: 350},
	{Name: "taco", Calories: 170},
	{Name: "burrito", Calories: 600},
	{Name: "sushi", Calories: 300},
	{Name: "fries", Calories: 365},
	{Name: "cookie", Calories: 150},
	{Name: "ice cream", Calories: 270},
	{Name: "yogurt", Calories: 150},
	{Name: "smoothie", Calories: 250},
	{Name: "latte", Calories: 190},
	{Name: "coffee", Calories: 5},
	{Name: "soda", Calories: 140},
	{Name: "beer", Calories: 150},
	{Name: "wine", Calories: 125},
	{Name: "milk", Calories: 120},
	{Name: "cheese", Calories: 110},
	{Name: "avocado", Calories: 240},
	{Name: "donut", Calories: 250},
	{Name: "muffin", Calories: 400},
	{Name: "granola", Calories: 200},
	{Name: "protein bar", Calories: 200},
}

// Lexicon returns a copy of the food table.
func Lexicon() []domain.FoodItem {
	out := make([]domain.FoodItem, len(lexicon))
	copy(out, lexicon)
	return out
}

// Estimate is the result of a lexicon lookup.
type Estimate struct {
	Calories int               `json:"calories"`
	MealType domain.MealType   `json:"mealType"`
	Foods    []domain.FoodItem `json:"foods,omitempty"`
}

// EstimateCalories sums the calories of every lexicon keyword in text. With no
// match it falls back to the default for an explicitly named meal type, and
// to FallbackCalories otherwise. MealType in the result is the type the meal
// should be logged under.
func EstimateCalories(text string) Estimate {
	lower := strings.ToLower(text)
	mealType, explicit := DetectMealType(lower)

	var foods []domain.FoodItem
	total := 0
	for _, f := range lexicon {
		if strings.Contains(lower, f.Name) {
			foods = append(foods, f)
			total += f.Calories
		}
	}

	if len(foods) == 0 {
		total = FallbackCalories
		if explicit {
			total = mealTypeDefaults[mealType]
		}
	}
	return Estimate{Calories: total, MealType: mealType, Foods: foods}
}

// DetectMealType finds the meal type named in text. The bool is false when no
// meal word is present, in which case the meal is a snack.
func DetectMealType(text string) (domain.MealType, bool) {
	lower := strings.ToLower(text)
	for _, t := range domain.MealTypes {
		if strings.Contains(lower, string(t)) {
			return t, true
		}
	}
	return domain.Snack, false
}

// Adjust moves calories by steps of CalorieStep, never below zero.
func Adjust(calories, steps int) int {
	c := calories + steps*CalorieStep
	if c < 0 {
		return 0
	}
	return c
}
