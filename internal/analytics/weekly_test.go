package analytics

import (
	"context"
	"testing"

	"niblet/internal/domain"
)

func TestWeekly(t *testing.T) {
	r, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	meals := []domain.Meal{
		{ID: 1, Date: "2026-10-12", Calories: 350, MealType: domain.Lunch, Nutrition: domain.Nutrition{Protein: 26, Carbs: 44, Fat: 8}},
		{ID: 2, Date: "2026-10-12", Calories: 600, MealType: domain.Dinner},
		{ID: 3, Date: "2026-10-14", Calories: 500, MealType: domain.Breakfast},
		{ID: 4, Date: "2026-10-19", Calories: 400, MealType: domain.Snack},
	}
	weights := []domain.WeightEntry{
		{ID: 1, Day: "2026-10-05", Weight: 182},
		{ID: 2, Day: "2026-10-13", Weight: 180},
		{ID: 3, Day: "2026-10-15", Weight: 179},
	}

	got, err := r.Weekly(context.Background(), meals, weights)
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d weeks: %+v", len(got), got)
	}

	if got[0].WeekStart != "2026-10-05" || got[0].Meals != 0 || got[0].AvgWeight == nil || *got[0].AvgWeight != 182 {
		t.Errorf("week 0 = %+v", got[0])
	}

	w := got[1]
	if w.WeekStart != "2026-10-12" || w.Meals != 3 || w.Calories != 1450 || w.DaysLogged != 2 || w.AvgDailyCalories != 725 {
		t.Errorf("week 1 = %+v", w)
	}
	if w.Protein != 26 || w.Carbs != 44 || w.Fat != 8 {
		t.Errorf("week 1 macros = %d/%d/%d", w.Protein, w.Carbs, w.Fat)
	}
	if w.AvgWeight == nil || *w.AvgWeight != 179.5 || *w.MinWeight != 179 || *w.MaxWeight != 180 {
		t.Errorf("week 1 weights = %v %v %v", w.AvgWeight, w.MinWeight, w.MaxWeight)
	}

	if got[2].WeekStart != "2026-10-19" || got[2].Calories != 400 || got[2].AvgWeight != nil {
		t.Errorf("week 2 = %+v", got[2])
	}

	again, err := r.Weekly(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("second Weekly: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("temp tables leaked between reports: %+v", again)
	}
}
