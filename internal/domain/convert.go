package domain

import (
	"math"
	"strings"
)

const (
	kgToLb = 2.2046226218
	// chatKgToLb is the factor used when converting weights typed in chat.
	chatKgToLb = 2.20462
)

// Canonical weight units.
const (
	UnitLb = "lb"
	UnitKg = "kg"
)

// ConvertWeight converts a weight value between "kg" and "lb".
// Returns v unchanged if from == to or if the units are unrecognised.
func ConvertWeight(v float64, from, to string) float64 {
	if from == to {
		return v
	}
	if from == UnitKg && to == UnitLb {
		return v * kgToLb
	}
	if from == UnitLb && to == UnitKg {
		return v / kgToLb
	}
	return v
}

// NormalizeUnit maps the spellings accepted from users to "kg" or "lb".
// The second result is false for anything else.
func NormalizeUnit(unit string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "lb", "lbs", "pound", "pounds":
		return UnitLb, true
	case "kg", "kgs", "kilogram", "kilograms":
		return UnitKg, true
	}
	return "", false
}

// KgToPounds converts kilograms to pounds rounded to one decimal.
func KgToPounds(kg float64) float64 {
	return RoundTo(kg*chatKgToLb, 1)
}

// RoundTo rounds v to the given number of decimals, halves away from zero.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
