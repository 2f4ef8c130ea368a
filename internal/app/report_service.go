package app

import (
	"context"
	"time"

	"niblet/internal/analytics"
	"niblet/internal/domain"
)

// MaxReportWeeks bounds the weekly report window.
const MaxReportWeeks = 52

// WeeklyAggregator turns raw logs into per-week summaries.
type WeeklyAggregator interface {
	Weekly(ctx context.Context, meals []domain.Meal, weights []domain.WeightEntry) ([]analytics.WeekSummary, error)
}

// ReportService builds multi-week reports.
type ReportService struct {
	meals   domain.MealRepository
	weights domain.WeightRepository
	agg     WeeklyAggregator
	now     func() time.Time
}

func NewReportService(meals domain.MealRepository, weights domain.WeightRepository, agg WeeklyAggregator) *ReportService {
	return &ReportService{meals: meals, weights: weights, agg: agg, now: time.Now}
}

// Weekly returns summaries for the current week and the weeks-1 before it.
func (s *ReportService) Weekly(ctx context.Context, userID int64, weeks int) ([]analytics.WeekSummary, error) {
	if weeks <= 0 {
		return nil, domain.Validationf("weeks must be > 0")
	}
	if weeks > MaxReportWeeks {
		weeks = MaxReportWeeks
	}

	r := domain.DayRange{From: localDay(weekStart(s.now()).AddDate(0, 0, -7*(weeks-1))), To: localDay(s.now())}
	meals, err := s.meals.ListMeals(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	weights, err := s.weights.ListWeightEntries(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	out, err := s.agg.Weekly(ctx, meals, weights)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []analytics.WeekSummary{}
	}
	return out, nil
}

// weekStart returns the Monday of t's week in local time.
func weekStart(t time.Time) time.Time {
	t = t.In(time.Local)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
