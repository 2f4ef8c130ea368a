package domain

import (
	"context"
	"time"
)

// Profile holds the body measurements captured during onboarding. Height is
// in inches, weights in pounds.
type Profile struct {
	UserID             int64         `json:"userId"`
	Height             float64       `json:"height"`
	Weight             float64       `json:"weight"`
	Age                int           `json:"age"`
	Gender             string        `json:"gender"`
	GoalWeight         float64       `json:"goalWeight"`
	ActivityLevel      ActivityLevel `json:"activityLevel"`
	OnboardingComplete bool          `json:"onboardingComplete"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// ProfileRepository is the port for profile persistence.
type ProfileRepository interface {
	// GetProfile returns nil when the user has no profile yet.
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	SaveProfile(ctx context.Context, p Profile) error
}
