// Package onboarding runs the scripted question-and-answer dialogue that
// captures a new user's body profile.
package onboarding

import (
	"fmt"
	"strconv"
	"strings"

	"niblet/internal/analysis/intent"
	"niblet/internal/domain"
)

// Slot is one step of the onboarding dialogue.
type Slot int

const (
	SlotHeight Slot = iota
	SlotWeight
	SlotAge
	SlotGender
	SlotGoalWeight
	SlotActivity
	SlotConfirmation
	SlotDone
)

var slotNames = map[Slot]string{
	SlotHeight:       "height",
	SlotWeight:       "weight",
	SlotAge:          "age",
	SlotGender:       "gender",
	SlotGoalWeight:   "goal-weight",
	SlotActivity:     "activity",
	SlotConfirmation: "confirmation",
	SlotDone:         "done",
}

func (s Slot) String() string {
	if n, ok := slotNames[s]; ok {
		return n
	}
	return "unknown"
}

// MarshalText encodes the slot by name.
func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Event is the outcome of handling one answer.
type Event int

const (
	EventValid Event = iota
	EventInvalid
	EventConfirmed
	EventDeclined
	EventSaveFailed
)

// transitions is the complete state table. A missing edge is a bug.
var transitions = map[Slot]map[Event]Slot{
	SlotHeight:     {EventValid: SlotWeight, EventInvalid: SlotHeight},
	SlotWeight:     {EventValid: SlotAge, EventInvalid: SlotWeight},
	SlotAge:        {EventValid: SlotGender, EventInvalid: SlotAge},
	SlotGender:     {EventValid: SlotGoalWeight, EventInvalid: SlotGender},
	SlotGoalWeight: {EventValid: SlotActivity, EventInvalid: SlotGoalWeight},
	SlotActivity:   {EventValid: SlotConfirmation},
	SlotConfirmation: {
		EventConfirmed:  SlotDone,
		EventDeclined:   SlotHeight,
		EventSaveFailed: SlotHeight,
	},
}

// Next returns the slot reached from s on e.
func Next(s Slot, e Event) (Slot, bool) {
	to, ok := transitions[s][e]
	return to, ok
}

// Answers holds the values captured so far. Heights are inches, weights
// pounds.
type Answers struct {
	Height        float64              `json:"height,omitempty"`
	Weight        float64              `json:"weight,omitempty"`
	Age           float64              `json:"age,omitempty"`
	Gender        string               `json:"gender,omitempty"`
	GoalWeight    float64              `json:"goalWeight,omitempty"`
	ActivityLevel domain.ActivityLevel `json:"activityLevel,omitempty"`
}

const (
	welcomeText  = "hi there! i'm nibble, your personal nutrition assistant. let's get to know each other a bit so i can help you reach your goals!"
	restartText  = "no problem! let's start again with your height."
	completeText = "awesome! your profile is all set up. let's start tracking your nutrition journey!"
	saveFailText = "i'm having trouble saving your profile. can we try again?"
)

// slotDef describes how one slot asks, validates and acknowledges.
type slotDef struct {
	prompt  func(Answers) string
	retry   string
	capture func(text string, a *Answers) (ack string, ok bool)
}

func fixed(s string) func(Answers) string {
	return func(Answers) string { return s }
}

var slots = map[Slot]slotDef{
	SlotHeight: {
		prompt: fixed("what's your height in inches?"),
		retry:  "i didn't catch that. please enter your height in inches (e.g., 70).",
		capture: func(text string, a *Answers) (string, bool) {
			v, ok := positiveNumber(text)
			if !ok {
				return "", false
			}
			a.Height = v
			return fmt.Sprintf("got it! %s inches tall.", formatNumber(v)), true
		},
	},
	SlotWeight: {
		prompt: fixed("what's your current weight in pounds?"),
		retry:  "i need a number for your weight in pounds. please try again.",
		capture: func(text string, a *Answers) (string, bool) {
			v, ok := positiveNumber(text)
			if !ok {
				return "", false
			}
			a.Weight = v
			return fmt.Sprintf("%s pounds. noted!", formatNumber(v)), true
		},
	},
	SlotAge: {
		prompt: fixed("how old are you?"),
		retry:  "please provide a valid age between 1 and 120.",
		capture: func(text string, a *Answers) (string, bool) {
			v, ok := positiveNumber(text)
			if !ok || v < 1 || v >= 120 {
				return "", false
			}
			a.Age = v
			return fmt.Sprintf("%s years old. thanks!", formatNumber(v)), true
		},
	},
	SlotGender: {
		prompt: fixed("what's your gender? this helps me calculate your calorie needs more accurately."),
		retry:  "please specify male, female, or other for your gender.",
		capture: func(text string, a *Answers) (string, bool) {
			g, ok := parseGender(text)
			if !ok {
				return "", false
			}
			a.Gender = g
			return "thanks for sharing that.", true
		},
	},
	SlotGoalWeight: {
		prompt: fixed("what's your goal weight in pounds?"),
		retry:  "i need a number for your goal weight in pounds.",
		capture: func(text string, a *Answers) (string, bool) {
			v, ok := positiveNumber(text)
			if !ok {
				return "", false
			}
			a.GoalWeight = v
			return fmt.Sprintf("got it! %s pounds is your goal weight.", formatNumber(v)), true
		},
	},
	SlotActivity: {
		prompt: fixed("how would you describe your activity level? (sedentary, lightly active, moderately active, very active)"),
		capture: func(text string, a *Answers) (string, bool) {
			a.ActivityLevel = parseActivity(text)
			return fmt.Sprintf("%s activity level. thanks!", a.ActivityLevel), true
		},
	},
	SlotConfirmation: {
		prompt: func(a Answers) string {
			return fmt.Sprintf("great! here's what i've got:\n\nheight: %s inches\nweight: %s lbs\nage: %s\ngender: %s\ngoal weight: %s lbs\nactivity level: %s\n\ndoes that look right to you?",
				formatNumber(a.Height), formatNumber(a.Weight), formatNumber(a.Age), a.Gender, formatNumber(a.GoalWeight), a.ActivityLevel)
		},
	},
}

var (
	affirmatives    = []string{"yes", "correct", "look", "right", "good"}
	genderWords     = []string{"male", "female", "other", "prefer"}
	activityKeyword = []struct {
		level domain.ActivityLevel
		words []string
	}{
		{domain.Sedentary, []string{"sedentary", "not active", "inactive"}},
		{domain.Light, []string{"light", "mild"}},
		{domain.Moderate, []string{"moderate", "average"}},
		{domain.VeryActive, []string{"very", "high", "intense"}},
	}
)

func positiveNumber(text string) (float64, bool) {
	v, ok := intent.ExtractNumber(text)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func parseGender(text string) (string, bool) {
	lower := strings.ToLower(text)
	if !containsAny(lower, genderWords) {
		return "", false
	}
	switch {
	case strings.Contains(lower, "female"):
		return "female", true
	case strings.Contains(lower, "male"):
		return "male", true
	}
	return "other", true
}

func parseActivity(text string) domain.ActivityLevel {
	lower := strings.ToLower(text)
	for _, k := range activityKeyword {
		if containsAny(lower, k.words) {
			return k.level
		}
	}
	return domain.Moderate
}

func isAffirmative(text string) bool {
	return containsAny(strings.ToLower(text), affirmatives)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
