package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"niblet/internal/domain"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s.Create(context.Background(), "ada", "hash", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s.Close()
	n, err := s.Count(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Count = %d, %v; want 1", n, err)
	}
}

func TestWeights(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	id1, err := s.AddWeightEntry(ctx, domain.WeightEntry{UserID: 1, Day: "2026-03-01", Weight: 180, Unit: domain.UnitLb, CreatedAt: now.Add(-48 * time.Hour)})
	if err != nil {
		t.Fatalf("AddWeightEntry: %v", err)
	}
	id2, _ := s.AddWeightEntry(ctx, domain.WeightEntry{UserID: 1, Day: "2026-03-03", Weight: 179, Unit: domain.UnitLb, Notes: "gym", CreatedAt: now})
	_, _ = s.AddWeightEntry(ctx, domain.WeightEntry{UserID: 2, Day: "2026-03-03", Weight: 130, Unit: domain.UnitLb, CreatedAt: now})

	entries, err := s.ListWeightEntries(ctx, 1, domain.DayRange{})
	if err != nil {
		t.Fatalf("ListWeightEntries: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != id2 || entries[1].ID != id1 {
		t.Fatalf("expected [%d %d], got %+v", id2, id1, entries)
	}
	if entries[0].Notes != "gym" || !entries[0].CreatedAt.Equal(now) {
		t.Errorf("round trip lost data: %+v", entries[0])
	}

	ranged, _ := s.ListWeightEntries(ctx, 1, domain.DayRange{From: "2026-03-02"})
	if len(ranged) != 1 || ranged[0].ID != id2 {
		t.Errorf("expected only %d from 2026-03-02, got %+v", id2, ranged)
	}
	limited, _ := s.ListWeightEntries(ctx, 1, domain.DayRange{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected 1 entry with limit, got %d", len(limited))
	}

	latest, err := s.LatestWeightForLocalDay(ctx, 1, "2026-03-01")
	if err != nil || latest == nil || latest.ID != id1 {
		t.Fatalf("LatestWeightForLocalDay = %+v, %v", latest, err)
	}
	missing, err := s.LatestWeightForLocalDay(ctx, 1, "2020-01-01")
	if err != nil || missing != nil {
		t.Errorf("expected nil for empty day, got %+v, %v", missing, err)
	}

	if ok, _ := s.DeleteWeightEntry(ctx, 2, id1); ok {
		t.Error("other user deleted entry")
	}
	if ok, _ := s.DeleteLatestWeightEntry(ctx, 1); !ok {
		t.Error("DeleteLatestWeightEntry = false")
	}
	entries, _ = s.ListWeightEntries(ctx, 1, domain.DayRange{})
	if len(entries) != 1 || entries[0].ID != id1 {
		t.Errorf("expected %d left, got %+v", id1, entries)
	}
}

func TestMeals(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	lunch := domain.Meal{
		UserID:      1,
		Description: "turkey sandwich",
		Calories:    350,
		MealType:    domain.Lunch,
		Date:        "2026-03-03",
		Nutrition:   domain.Nutrition{Protein: 26, Carbs: 44, Fat: 8},
		Foods:       []domain.FoodItem{{Name: "turkey sandwich", Calories: 350}},
		Source:      domain.SourceChat,
		CreatedAt:   now,
	}
	id, err := s.AddMeal(ctx, lunch)
	if err != nil {
		t.Fatalf("AddMeal: %v", err)
	}
	older, _ := s.AddMeal(ctx, domain.Meal{UserID: 1, Description: "oats", Calories: 300, MealType: domain.Breakfast, Date: "2026-03-02", Source: domain.SourceManual, CreatedAt: now})

	got, err := s.GetMeal(ctx, 1, id)
	if err != nil || got == nil {
		t.Fatalf("GetMeal = %v, %v", got, err)
	}
	if got.Nutrition != lunch.Nutrition || len(got.Foods) != 1 || got.Foods[0].Name != "turkey sandwich" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if other, _ := s.GetMeal(ctx, 2, id); other != nil {
		t.Error("meal visible to another user")
	}

	got.Calories = 400
	got.Rating = 4
	got.Foods = []domain.FoodItem{{Name: "turkey", Calories: 250}, {Name: "bread", Calories: 150}}
	if ok, err := s.UpdateMeal(ctx, *got); err != nil || !ok {
		t.Fatalf("UpdateMeal = %v, %v", ok, err)
	}

	meals, err := s.ListMeals(ctx, 1, domain.DayRange{})
	if err != nil {
		t.Fatalf("ListMeals: %v", err)
	}
	if len(meals) != 2 || meals[0].ID != id || meals[1].ID != older {
		t.Fatalf("expected newest day first, got %+v", meals)
	}
	if meals[0].Calories != 400 || meals[0].Rating != 4 || len(meals[0].Foods) != 2 {
		t.Errorf("update not persisted: %+v", meals[0])
	}

	day, _ := s.ListMeals(ctx, 1, domain.DayRange{From: "2026-03-02", To: "2026-03-02"})
	if len(day) != 1 || day[0].ID != older {
		t.Errorf("expected only breakfast, got %+v", day)
	}

	if ok, _ := s.DeleteMeal(ctx, 1, id); !ok {
		t.Fatal("DeleteMeal = false")
	}
	if ok, _ := s.DeleteMeal(ctx, 1, id); ok {
		t.Error("second delete succeeded")
	}
	var foods int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM foods WHERE meal_id = ?", id).Scan(&foods); err != nil {
		t.Fatalf("count foods: %v", err)
	}
	if foods != 0 {
		t.Errorf("expected foods to cascade, %d left", foods)
	}
}

func TestGoalsAndProfiles(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	first, _ := s.AddGoal(ctx, domain.Goal{UserID: 1, Type: domain.GoalLose, CurrentWeight: 200, GoalWeight: 180, TargetDate: "2026-06-01", WeeklyChange: -1, CreatedAt: now.Add(-time.Hour)})
	second, err := s.AddGoal(ctx, domain.Goal{
		UserID: 1, Type: domain.GoalMaintain, CurrentWeight: 180, GoalWeight: 180, TargetDate: "2026-09-01",
		Target:    domain.DailyTarget{DailyCalories: 2000, Nutrition: domain.Nutrition{Protein: 150, Carbs: 225, Fat: 56}},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}

	cur, err := s.CurrentGoal(ctx, 1)
	if err != nil || cur == nil || cur.ID != second {
		t.Fatalf("CurrentGoal = %+v, %v", cur, err)
	}
	if cur.Target.DailyCalories != 2000 || cur.Target.Fat != 56 {
		t.Errorf("target lost: %+v", cur.Target)
	}

	old, _ := s.ListGoals(ctx, 1)
	old[1].GoalWeight = 175
	if ok, _ := s.UpdateGoal(ctx, old[1]); !ok {
		t.Fatal("UpdateGoal = false")
	}
	cur, _ = s.CurrentGoal(ctx, 1)
	if cur.ID != second {
		t.Errorf("updating an old goal made it current")
	}

	if ok, _ := s.DeleteGoal(ctx, 1, second); !ok {
		t.Fatal("DeleteGoal = false")
	}
	cur, _ = s.CurrentGoal(ctx, 1)
	if cur == nil || cur.ID != first || cur.GoalWeight != 175 {
		t.Errorf("expected updated first goal, got %+v", cur)
	}
	if none, _ := s.CurrentGoal(ctx, 9); none != nil {
		t.Error("expected nil goal for unknown user")
	}

	if p, err := s.GetProfile(ctx, 1); err != nil || p != nil {
		t.Fatalf("GetProfile before save = %+v, %v", p, err)
	}
	p := domain.Profile{UserID: 1, Height: 70, Weight: 180, Age: 34, Gender: "female", GoalWeight: 160, ActivityLevel: domain.Light}
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	p.OnboardingComplete = true
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile upsert: %v", err)
	}
	got, _ := s.GetProfile(ctx, 1)
	if got == nil || !got.OnboardingComplete || got.ActivityLevel != domain.Light || got.UpdatedAt.IsZero() {
		t.Errorf("profile = %+v", got)
	}
}

func TestPersonalitiesAndTemplates(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for _, p := range domain.SeedPersonalities() {
		if err := s.SavePersonality(ctx, p); err != nil {
			t.Fatalf("SavePersonality: %v", err)
		}
	}
	list, err := s.ListPersonalities(ctx)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListPersonalities = %d, %v", len(list), err)
	}
	if list[0].ID != "best-friend" || len(list[0].Examples) != 3 || !list[0].Active {
		t.Errorf("unexpected first personality %+v", list[0])
	}

	p := list[2]
	p.Active = false
	p.Examples = nil
	if err := s.SavePersonality(ctx, p); err != nil {
		t.Fatalf("SavePersonality update: %v", err)
	}
	got, _ := s.GetPersonality(ctx, p.ID)
	if got == nil || got.Active || len(got.Examples) != 0 {
		t.Errorf("update not applied: %+v", got)
	}
	if ok, _ := s.DeletePersonality(ctx, p.ID); !ok {
		t.Error("DeletePersonality = false")
	}
	if gone, _ := s.GetPersonality(ctx, p.ID); gone != nil {
		t.Error("personality still present")
	}

	for _, tpl := range domain.SeedTemplates() {
		if err := s.SaveTemplate(ctx, tpl); err != nil {
			t.Fatalf("SaveTemplate: %v", err)
		}
	}
	tpls, _ := s.ListTemplates(ctx)
	if len(tpls) != 3 || tpls[0].ID != "meal-logging" {
		t.Fatalf("templates = %+v", tpls)
	}
	if ok, _ := s.DeleteTemplate(ctx, "weight-update"); !ok {
		t.Error("DeleteTemplate = false")
	}
	if tpl, _ := s.GetTemplate(ctx, "weight-update"); tpl != nil {
		t.Error("template still present")
	}
}

func TestUsersSessionsAndResets(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	u, err := s.Create(ctx, "ada", "hash", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, "ada", "x", ""); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate username err = %v; want ErrConflict", err)
	}
	byName, _ := s.GetByUsername(ctx, "ada")
	if byName == nil || byName.ID != u.ID || !byName.IsAdmin() {
		t.Fatalf("GetByUsername = %+v", byName)
	}
	if err := s.UpdatePassword(ctx, u.ID, "new"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	byID, _ := s.GetByID(ctx, u.ID)
	if byID.PasswordHash != "new" {
		t.Errorf("hash = %q", byID.PasswordHash)
	}
	if err := s.UpdatePassword(ctx, 99, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdatePassword unknown user err = %v", err)
	}

	sessions := NewSessionRepo(s)
	if err := sessions.Create(ctx, u.ID, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("session Create: %v", err)
	}
	_ = sessions.Create(ctx, u.ID, "stale", time.Now().Add(-time.Hour))
	if err := sessions.DeleteExpired(ctx); err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if sess, _ := sessions.GetByToken(ctx, "stale"); sess != nil {
		t.Error("expired session survived")
	}
	sess, _ := sessions.GetByToken(ctx, "live")
	if sess == nil || sess.UserID != u.ID {
		t.Fatalf("live session = %+v", sess)
	}
	_ = sessions.Delete(ctx, "live")
	if sess, _ := sessions.GetByToken(ctx, "live"); sess != nil {
		t.Error("session not deleted")
	}

	if err := s.CreateReset(ctx, domain.PasswordReset{Token: "r1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("CreateReset: %v", err)
	}
	r, err := s.ConsumeReset(ctx, "r1")
	if err != nil || r == nil || r.UserID != u.ID {
		t.Fatalf("ConsumeReset = %+v, %v", r, err)
	}
	if again, _ := s.ConsumeReset(ctx, "r1"); again != nil {
		t.Error("reset token reusable")
	}
}
