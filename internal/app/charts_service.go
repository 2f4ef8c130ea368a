package app

import (
	"context"
	"time"

	"niblet/internal/domain"
)

// MaxChartDays bounds the daily chart window.
const MaxChartDays = 366

// ChartsService encapsulates chart data retrieval use cases.
type ChartsService struct {
	meals   domain.MealRepository
	weights domain.WeightRepository
	now     func() time.Time
}

// NewChartsService creates a ChartsService backed by the given repositories.
func NewChartsService(meals domain.MealRepository, weights domain.WeightRepository) *ChartsService {
	return &ChartsService{meals: meals, weights: weights, now: time.Now}
}

// DayPoint is a single data point returned by GetDaily.
type DayPoint struct {
	Day      string   `json:"day"`
	Calories int      `json:"calories"`
	Meals    int      `json:"meals"`
	Weight   *float64 `json:"weight"`
}

// GetDaily returns one point per day for the last days days, oldest first.
// Weight is the latest weigh-in of the day in pounds, or nil.
func (s *ChartsService) GetDaily(ctx context.Context, userID int64, days int) ([]DayPoint, error) {
	if days <= 0 {
		return nil, domain.Validationf("days must be > 0")
	}
	if days > MaxChartDays {
		days = MaxChartDays
	}

	today := s.now().In(time.Local)
	r := domain.DayRange{
		From: today.AddDate(0, 0, -(days - 1)).Format(dayLayout),
		To:   today.Format(dayLayout),
	}
	meals, err := s.meals.ListMeals(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	weights, err := s.weights.ListWeightEntries(ctx, userID, r)
	if err != nil {
		return nil, err
	}

	type dayTotals struct {
		calories, meals int
		weight          *float64
	}
	byDay := make(map[string]*dayTotals, days)
	get := func(day string) *dayTotals {
		t, ok := byDay[day]
		if !ok {
			t = &dayTotals{}
			byDay[day] = t
		}
		return t
	}
	for _, m := range meals {
		t := get(m.Date)
		t.calories += m.Calories
		t.meals++
	}
	// Entries arrive newest first, so the first seen per day wins.
	for _, w := range weights {
		t := get(w.Day)
		if t.weight == nil {
			v := w.Weight
			t.weight = &v
		}
	}

	points := make([]DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(dayLayout)
		p := DayPoint{Day: day}
		if t, ok := byDay[day]; ok {
			p.Calories, p.Meals, p.Weight = t.calories, t.meals, t.weight
		}
		points = append(points, p)
	}
	return points, nil
}
