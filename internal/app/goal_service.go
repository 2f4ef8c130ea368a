package app

import (
	"context"
	"fmt"
	"time"

	"niblet/internal/domain"
)

// DefaultGoalWeeks is how far out a goal's target date is set when the
// caller does not pick one.
const DefaultGoalWeeks = 12

// GoalInput is what a caller supplies to create or replace a goal.
// DailyCalories of zero means "use the recommendation".
type GoalInput struct {
	CurrentWeight      float64              `json:"currentWeight"`
	GoalWeight         float64              `json:"goalWeight"`
	TargetDate         string               `json:"targetDate"`
	WeeklyWeightChange float64              `json:"weeklyWeightChange"`
	ActivityLevel      domain.ActivityLevel `json:"activityLevel"`
	DailyCalories      int                  `json:"dailyCalories"`
}

// CalorieRecommendation is the result of the calorie calculator.
type CalorieRecommendation struct {
	RecommendedCalories int              `json:"recommendedCalories"`
	MaintenanceCalories int              `json:"maintenanceCalories"`
	Nutrition           domain.Nutrition `json:"nutrition"`
}

// GoalService manages weight goals.
type GoalService struct {
	goals domain.GoalRepository
	now   func() time.Time
}

// NewGoalService creates a GoalService backed by the given repository.
func NewGoalService(goals domain.GoalRepository) *GoalService {
	return &GoalService{goals: goals, now: time.Now}
}

// CalculateCalories returns the recommended daily intake for in.
func (s *GoalService) CalculateCalories(in domain.CalorieInput) (CalorieRecommendation, error) {
	if in.CurrentWeight <= 0 {
		return CalorieRecommendation{}, domain.Validationf("current weight must be > 0")
	}
	rec := domain.RecommendCalories(in)
	maintenance := domain.RecommendCalories(domain.CalorieInput{CurrentWeight: in.CurrentWeight, ActivityLevel: in.ActivityLevel})
	return CalorieRecommendation{
		RecommendedCalories: rec,
		MaintenanceCalories: maintenance,
		Nutrition:           domain.GoalSplit.Grams(rec),
	}, nil
}

// Create stores a new goal, which becomes the current one.
func (s *GoalService) Create(ctx context.Context, userID int64, in GoalInput) (*domain.Goal, error) {
	g, err := s.build(in)
	if err != nil {
		return nil, err
	}
	g.UserID = userID
	g.CreatedAt = s.now()
	id, err := s.goals.AddGoal(ctx, g)
	if err != nil {
		return nil, err
	}
	g.ID = id
	return &g, nil
}

// Update replaces goal id.
func (s *GoalService) Update(ctx context.Context, userID, id int64, in GoalInput) (*domain.Goal, error) {
	g, err := s.build(in)
	if err != nil {
		return nil, err
	}
	g.ID = id
	g.UserID = userID
	g.CreatedAt = s.now()
	ok, err := s.goals.UpdateGoal(ctx, g)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("goal %d: %w", id, domain.ErrNotFound)
	}
	return &g, nil
}

// Current returns the newest goal or ErrNotFound.
func (s *GoalService) Current(ctx context.Context, userID int64) (*domain.Goal, error) {
	g, err := s.goals.CurrentGoal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("no goal set: %w", domain.ErrNotFound)
	}
	return g, nil
}

// List returns all goals, newest first.
func (s *GoalService) List(ctx context.Context, userID int64) ([]domain.Goal, error) {
	return s.goals.ListGoals(ctx, userID)
}

// Delete removes goal id.
func (s *GoalService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.goals.DeleteGoal(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("goal %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *GoalService) build(in GoalInput) (domain.Goal, error) {
	if in.CurrentWeight <= 0 || in.GoalWeight <= 0 {
		return domain.Goal{}, domain.Validationf("current and goal weight must be > 0")
	}
	if in.ActivityLevel != "" && !in.ActivityLevel.IsValid() {
		return domain.Goal{}, domain.Validationf("unknown activity level %q", in.ActivityLevel)
	}
	if in.DailyCalories < 0 {
		return domain.Goal{}, domain.Validationf("daily calories must be >= 0")
	}
	target := in.TargetDate
	if target == "" {
		target = localDay(s.now().AddDate(0, 0, 7*DefaultGoalWeeks))
	} else if t, err := parseDay(target); err != nil {
		return domain.Goal{}, err
	} else {
		target = t
	}

	calories := in.DailyCalories
	if calories == 0 {
		calories = domain.RecommendCalories(domain.CalorieInput{
			CurrentWeight:      in.CurrentWeight,
			GoalWeight:         in.GoalWeight,
			ActivityLevel:      in.ActivityLevel,
			WeeklyWeightChange: in.WeeklyWeightChange,
		})
	}
	return domain.Goal{
		Type:          domain.GoalTypeFor(in.CurrentWeight, in.GoalWeight),
		CurrentWeight: in.CurrentWeight,
		GoalWeight:    in.GoalWeight,
		TargetDate:    target,
		WeeklyChange:  in.WeeklyWeightChange,
		Target:        domain.DailyTarget{DailyCalories: calories, Nutrition: domain.GoalSplit.Grams(calories)},
	}, nil
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// local day.
func parseDay(s string) (string, error) {
	if t, err := time.ParseInLocation(dayLayout, s, time.Local); err == nil {
		return t.Format(dayLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return localDay(t), nil
	}
	return "", domain.Validationf("invalid date %q, want YYYY-MM-DD", s)
}
