package intent

import (
	"regexp"
	"strconv"
	"strings"

	"niblet/internal/domain"
)

var (
	weightPattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(lbs?|pounds?|kg|kilograms?)`)
	numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)
)

// QuantityKind tags an extracted quantity.
type QuantityKind string

const (
	KindCalories QuantityKind = "calories"
	KindWeight   QuantityKind = "weight"
)

// Quantity is a value pulled out of an utterance. Weights are normalised to
// pounds, with Unit keeping what the user typed ("lbs" or "kg"). Calories are
// whole kcal.
type Quantity struct {
	Kind  QuantityKind `json:"kind"`
	Value float64      `json:"value"`
	Unit  string       `json:"unit,omitempty"`
}

// ExtractWeight returns the leftmost "<number> <unit>" weight in text,
// converted to pounds. Numbers without a unit are never treated as weights.
func ExtractWeight(text string) (Quantity, bool) {
	m := weightPattern.FindStringSubmatch(text)
	if m == nil {
		return Quantity{}, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Quantity{}, false
	}
	unit := strings.ToLower(m[2])
	if strings.HasPrefix(unit, "k") {
		return Quantity{Kind: KindWeight, Value: domain.KgToPounds(v), Unit: "kg"}, true
	}
	return Quantity{Kind: KindWeight, Value: v, Unit: "lbs"}, true
}

// ExtractNumber returns the leftmost integer or decimal in text. Range checks
// are up to the caller.
func ExtractNumber(text string) (float64, bool) {
	s := numberPattern.FindString(text)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
