package domain

import "math"

// Nutrition holds macronutrients in grams.
type Nutrition struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// Add returns the element-wise sum.
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{Protein: n.Protein + o.Protein, Carbs: n.Carbs + o.Carbs, Fat: n.Fat + o.Fat}
}

// MacroSplit is the share of calories taken by each macronutrient.
type MacroSplit struct {
	Protein float64
	Carbs   float64
	Fat     float64
}

var (
	// MealSplit is applied to meals logged from chat.
	MealSplit = MacroSplit{Protein: 0.3, Carbs: 0.5, Fat: 0.2}
	// GoalSplit is applied to daily targets when a goal is set.
	GoalSplit = MacroSplit{Protein: 0.3, Carbs: 0.45, Fat: 0.25}
)

// Grams converts calories to grams using 4 kcal/g for protein and carbs and
// 9 kcal/g for fat.
func (s MacroSplit) Grams(calories int) Nutrition {
	c := float64(calories)
	return Nutrition{
		Protein: int(math.Round(c * s.Protein / 4)),
		Carbs:   int(math.Round(c * s.Carbs / 4)),
		Fat:     int(math.Round(c * s.Fat / 9)),
	}
}
