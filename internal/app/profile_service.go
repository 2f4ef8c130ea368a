package app

import (
	"context"
	"time"

	"niblet/internal/domain"
)

const dayLayout = "2006-01-02"

func localDay(t time.Time) string {
	return t.In(time.Local).Format(dayLayout)
}

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

// ProfileService manages body profiles.
type ProfileService struct {
	profiles domain.ProfileRepository
	now      func() time.Time
}

// NewProfileService creates a ProfileService backed by the given repository.
func NewProfileService(profiles domain.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles, now: time.Now}
}

// Get returns the user's profile, or an empty one if none was saved yet.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &domain.Profile{UserID: userID}, nil
	}
	return p, nil
}

// Update merges the non-zero fields of in into the stored profile.
func (s *ProfileService) Update(ctx context.Context, userID int64, in domain.Profile) (*domain.Profile, error) {
	if err := validateProfile(in); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Height > 0 {
		p.Height = in.Height
	}
	if in.Weight > 0 {
		p.Weight = in.Weight
	}
	if in.Age > 0 {
		p.Age = in.Age
	}
	if in.Gender != "" {
		p.Gender = in.Gender
	}
	if in.GoalWeight > 0 {
		p.GoalWeight = in.GoalWeight
	}
	if in.ActivityLevel != "" {
		p.ActivityLevel = in.ActivityLevel
	}
	p.UpdatedAt = s.now()
	if err := s.profiles.SaveProfile(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// CompleteOnboarding flags the profile as onboarded.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.OnboardingComplete = true
	p.UpdatedAt = s.now()
	if err := s.profiles.SaveProfile(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

func validateProfile(p domain.Profile) error {
	switch {
	case p.Height < 0:
		return domain.Validationf("height must be > 0")
	case p.Weight < 0:
		return domain.Validationf("weight must be > 0")
	case p.GoalWeight < 0:
		return domain.Validationf("goal weight must be > 0")
	case p.Age < 0 || p.Age >= 120:
		return domain.Validationf("age must be between 1 and 119")
	case p.Gender != "" && !validGenders[p.Gender]:
		return domain.Validationf("gender must be male, female or other")
	case p.ActivityLevel != "" && !p.ActivityLevel.IsValid():
		return domain.Validationf("unknown activity level %q", p.ActivityLevel)
	}
	return nil
}
