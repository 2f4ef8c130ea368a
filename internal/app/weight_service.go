package app

import (
	"context"
	"fmt"
	"time"

	"niblet/internal/domain"
)

// WeightProgress compares the first and latest weigh-ins with the goal.
type WeightProgress struct {
	Entries         int      `json:"entries"`
	StartWeight     float64  `json:"startWeight"`
	StartDay        string   `json:"startDay"`
	CurrentWeight   float64  `json:"currentWeight"`
	CurrentDay      string   `json:"currentDay"`
	Change          float64  `json:"change"`
	GoalWeight      *float64 `json:"goalWeight,omitempty"`
	RemainingToGoal *float64 `json:"remainingToGoal,omitempty"`
}

// WeightService encapsulates weight-tracking use cases.
type WeightService struct {
	repo     domain.WeightRepository
	goals    domain.GoalRepository
	profiles domain.ProfileRepository
	now      func() time.Time
}

// NewWeightService creates a WeightService backed by the given repository.
// goals and profiles supply the goal weight for progress and may be nil.
func NewWeightService(repo domain.WeightRepository, goals domain.GoalRepository, profiles domain.ProfileRepository) *WeightService {
	return &WeightService{repo: repo, goals: goals, profiles: profiles, now: time.Now}
}

// GetTodayWeight returns the latest weight entry for the given local day.
func (s *WeightService) GetTodayWeight(ctx context.Context, userID int64, today string) (*domain.WeightEntry, error) {
	if today == "" {
		today = localDay(s.now())
	}
	return s.repo.LatestWeightForLocalDay(ctx, userID, today)
}

// RecordWeight validates and stores a weigh-in. The value is converted to
// pounds; unit records what was entered and defaults to lb.
func (s *WeightService) RecordWeight(ctx context.Context, userID int64, value float64, unit, notes string) (*domain.WeightEntry, error) {
	if value <= 0 {
		return nil, domain.Validationf("weight must be > 0")
	}
	norm, ok := domain.NormalizeUnit(unit)
	if !ok {
		return nil, domain.Validationf("unit must be \"kg\" or \"lb\"")
	}
	now := s.now()
	e := domain.WeightEntry{
		UserID:    userID,
		Day:       localDay(now),
		Weight:    domain.RoundTo(domain.ConvertWeight(value, norm, domain.UnitLb), 1),
		Unit:      norm,
		Notes:     notes,
		CreatedAt: now,
	}
	id, err := s.repo.AddWeightEntry(ctx, e)
	if err != nil {
		return nil, err
	}
	e.ID = id
	return &e, nil
}

// RecordPounds stores a weight already converted to pounds, as produced by
// the chat extractor. unit is what the user typed.
func (s *WeightService) RecordPounds(ctx context.Context, userID int64, pounds float64, unit, notes string) (*domain.WeightEntry, error) {
	if pounds <= 0 {
		return nil, domain.Validationf("weight must be > 0")
	}
	norm, ok := domain.NormalizeUnit(unit)
	if !ok {
		norm = domain.UnitLb
	}
	now := s.now()
	e := domain.WeightEntry{
		UserID:    userID,
		Day:       localDay(now),
		Weight:    pounds,
		Unit:      norm,
		Notes:     notes,
		CreatedAt: now,
	}
	id, err := s.repo.AddWeightEntry(ctx, e)
	if err != nil {
		return nil, err
	}
	e.ID = id
	return &e, nil
}

// List returns weigh-ins in the range, newest first.
func (s *WeightService) List(ctx context.Context, userID int64, r domain.DayRange) ([]domain.WeightEntry, error) {
	if r.From != "" && r.To != "" && r.From > r.To {
		return nil, domain.Validationf("startDate must not be after endDate")
	}
	return s.repo.ListWeightEntries(ctx, userID, r)
}

// Delete removes weigh-in id.
func (s *WeightService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.DeleteWeightEntry(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("weight entry %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UndoLast deletes the most recent weigh-in and returns the new latest
// entry for today.
func (s *WeightService) UndoLast(ctx context.Context, userID int64) (bool, *domain.WeightEntry, string, error) {
	today := localDay(s.now())
	deleted, err := s.repo.DeleteLatestWeightEntry(ctx, userID)
	if err != nil {
		return false, nil, today, err
	}
	entry, _ := s.repo.LatestWeightForLocalDay(ctx, userID, today)
	return deleted, entry, today, nil
}

// Progress summarises all weigh-ins. The goal weight comes from the
// current goal, else the profile.
func (s *WeightService) Progress(ctx context.Context, userID int64) (*WeightProgress, error) {
	entries, err := s.repo.ListWeightEntries(ctx, userID, domain.DayRange{})
	if err != nil {
		return nil, err
	}
	p := &WeightProgress{Entries: len(entries)}
	if len(entries) > 0 {
		latest, first := entries[0], entries[len(entries)-1]
		p.StartWeight, p.StartDay = first.Weight, first.Day
		p.CurrentWeight, p.CurrentDay = latest.Weight, latest.Day
		p.Change = domain.RoundTo(latest.Weight-first.Weight, 1)
	}

	goal := s.goalWeight(ctx, userID)
	if goal > 0 {
		p.GoalWeight = &goal
		if len(entries) > 0 {
			rem := domain.RoundTo(p.CurrentWeight-goal, 1)
			p.RemainingToGoal = &rem
		}
	}
	return p, nil
}

func (s *WeightService) goalWeight(ctx context.Context, userID int64) float64 {
	if s.goals != nil {
		if g, err := s.goals.CurrentGoal(ctx, userID); err == nil && g != nil && g.GoalWeight > 0 {
			return g.GoalWeight
		}
	}
	if s.profiles != nil {
		if p, err := s.profiles.GetProfile(ctx, userID); err == nil && p != nil {
			return p.GoalWeight
		}
	}
	return 0
}
