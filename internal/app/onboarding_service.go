package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"niblet/internal/domain"
	"niblet/internal/onboarding"
)

// OnboardingState is a snapshot of a user's onboarding conversation.
type OnboardingState struct {
	Slot    onboarding.Slot    `json:"slot"`
	Prompt  string             `json:"prompt"`
	Answers onboarding.Answers `json:"answers"`
	Done    bool               `json:"done"`
}

type onboardingEntry struct {
	mu   sync.Mutex
	flow *onboarding.Flow
}

// OnboardingService runs one onboarding flow per user and persists the
// result on confirmation.
type OnboardingService struct {
	profiles *ProfileService
	goals    *GoalService
	now      func() time.Time

	mu    sync.RWMutex
	flows map[int64]*onboardingEntry
}

func NewOnboardingService(profiles *ProfileService, goals *GoalService) *OnboardingService {
	return &OnboardingService{
		profiles: profiles,
		goals:    goals,
		now:      time.Now,
		flows:    make(map[int64]*onboardingEntry),
	}
}

// Start begins (or restarts) onboarding for the user.
func (s *OnboardingService) Start(_ context.Context, userID int64) onboarding.Step {
	e := &onboardingEntry{flow: onboarding.New()}
	s.mu.Lock()
	s.flows[userID] = e
	s.mu.Unlock()
	return e.flow.Start()
}

// Answer feeds one reply into the user's flow.
func (s *OnboardingService) Answer(ctx context.Context, userID int64, text string) (onboarding.Step, error) {
	e, err := s.entry(userID)
	if err != nil {
		return onboarding.Step{}, err
	}
	if !e.mu.TryLock() {
		return onboarding.Step{}, fmt.Errorf("%w: an answer is already being processed", domain.ErrConflict)
	}
	defer e.mu.Unlock()

	complete := onboarding.CompleterFunc(func(ctx context.Context, a onboarding.Answers) error {
		return s.complete(ctx, userID, a)
	})
	step, err := e.flow.Handle(ctx, text, complete)
	if errors.Is(err, onboarding.ErrDone) {
		return step, fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return step, err
}

// State returns the current slot and answers.
func (s *OnboardingService) State(userID int64) (OnboardingState, error) {
	e, err := s.entry(userID)
	if err != nil {
		return OnboardingState{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return OnboardingState{
		Slot:    e.flow.Slot(),
		Prompt:  e.flow.Prompt(),
		Answers: e.flow.Answers(),
		Done:    e.flow.Slot() == onboarding.SlotDone,
	}, nil
}

func (s *OnboardingService) entry(userID int64) (*onboardingEntry, error) {
	s.mu.RLock()
	e, ok := s.flows[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("onboarding not started: %w", domain.ErrNotFound)
	}
	return e, nil
}

// complete saves the profile, creates the first goal and marks onboarding
// done.
func (s *OnboardingService) complete(ctx context.Context, userID int64, a onboarding.Answers) error {
	_, err := s.profiles.Update(ctx, userID, domain.Profile{
		Height:        a.Height,
		Weight:        a.Weight,
		Age:           int(math.Round(a.Age)),
		Gender:        a.Gender,
		GoalWeight:    a.GoalWeight,
		ActivityLevel: a.ActivityLevel,
	})
	if err != nil {
		return err
	}

	weekly := 0.0
	switch domain.GoalTypeFor(a.Weight, a.GoalWeight) {
	case domain.GoalLose:
		weekly = -1
	case domain.GoalGain:
		weekly = 1
	}
	if _, err := s.goals.Create(ctx, userID, GoalInput{
		CurrentWeight:      a.Weight,
		GoalWeight:         a.GoalWeight,
		WeeklyWeightChange: weekly,
		ActivityLevel:      a.ActivityLevel,
	}); err != nil {
		return err
	}

	_, err = s.profiles.CompleteOnboarding(ctx, userID)
	return err
}
