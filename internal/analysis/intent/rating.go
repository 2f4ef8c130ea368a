package intent

import (
	"fmt"
	"strings"
)

var (
	ratingMealKeywords = []string{"ate", "had", "food", "meal", "breakfast", "lunch", "dinner", "snack", "calorie"}
	ratingIndicators   = []string{
		"how was it?",
		"rate this",
		"rate the meal",
		"calories",
		"logged",
		"estimated calories",
		"estimated calorie",
		"total calories",
	}
)

// OffersRating reports whether an assistant reply to userText should offer a
// 1-5 star meal rating: the user talked about food and the reply mentions
// calories, logging or asks for a rating.
func OffersRating(userText, reply string) bool {
	return containsAny(strings.ToLower(userText), ratingMealKeywords) &&
		containsAny(strings.ToLower(reply), ratingIndicators)
}

// ValidRating reports whether stars is between 1 and 5.
func ValidRating(stars int) bool {
	return stars >= 1 && stars <= 5
}

// WithRating appends the rating suffix to a rated message.
func WithRating(text string, stars int) string {
	return fmt.Sprintf("%s (Rated: %d stars)", text, stars)
}

// RatingUtterance is the user-side message sent after rating a meal.
func RatingUtterance(stars int) string {
	return fmt.Sprintf("I rate this meal %d stars.", stars)
}
