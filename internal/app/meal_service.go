package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"niblet/internal/analysis/intent"
	"niblet/internal/domain"
)

// PhotoEstimateCalories is the placeholder estimate for meal photos until
// image recognition exists.
const PhotoEstimateCalories = 450

// MealInput is what a caller supplies to create or edit a meal. A nil
// Nutrition is derived from the calories.
type MealInput struct {
	Description string            `json:"description"`
	Calories    int               `json:"calories"`
	MealType    domain.MealType   `json:"mealType"`
	Date        string            `json:"date"`
	Nutrition   *domain.Nutrition `json:"nutrition"`
	Foods       []domain.FoodItem `json:"foods"`
	Source      string            `json:"source"`
}

// MealEstimate is the result of analysing a meal description.
type MealEstimate struct {
	Description string            `json:"description"`
	Calories    int               `json:"calories"`
	MealType    domain.MealType   `json:"mealType"`
	Foods       []domain.FoodItem `json:"foods"`
	Nutrition   domain.Nutrition  `json:"nutrition"`
}

// DaySummary totals one day of meals against the current goal.
type DaySummary struct {
	Date          string                  `json:"date"`
	Meals         int                     `json:"meals"`
	Calories      int                     `json:"calories"`
	Nutrition     domain.Nutrition        `json:"nutrition"`
	ByMealType    map[domain.MealType]int `json:"byMealType"`
	CalorieGoal   int                     `json:"calorieGoal"`
	Remaining     int                     `json:"remaining"`
	GoalNutrition *domain.Nutrition       `json:"goalNutrition,omitempty"`
}

// MealService encapsulates meal-logging use cases.
type MealService struct {
	meals domain.MealRepository
	goals domain.GoalRepository
	now   func() time.Time
}

// NewMealService creates a MealService. goals may be nil, in which case
// summaries carry no calorie goal.
func NewMealService(meals domain.MealRepository, goals domain.GoalRepository) *MealService {
	return &MealService{meals: meals, goals: goals, now: time.Now}
}

// Analyze estimates calories for a free-text description.
func (s *MealService) Analyze(text string) (MealEstimate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return MealEstimate{}, domain.Validationf("text is required")
	}
	est := intent.EstimateCalories(text)
	return MealEstimate{
		Description: text,
		Calories:    est.Calories,
		MealType:    est.MealType,
		Foods:       est.Foods,
		Nutrition:   domain.MealSplit.Grams(est.Calories),
	}, nil
}

// Create validates and stores a meal.
func (s *MealService) Create(ctx context.Context, userID int64, in MealInput) (*domain.Meal, error) {
	m, err := s.build(in)
	if err != nil {
		return nil, err
	}
	m.UserID = userID
	m.CreatedAt = s.now()
	id, err := s.meals.AddMeal(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	return &m, nil
}

// LogEstimate stores a meal confirmed in chat, splitting calories into
// macros with the meal split.
func (s *MealService) LogEstimate(ctx context.Context, userID int64, description string, calories int, mealType domain.MealType) (*domain.Meal, error) {
	return s.Create(ctx, userID, MealInput{
		Description: description,
		Calories:    calories,
		MealType:    mealType,
		Source:      domain.SourceChat,
	})
}

// LogPhoto stores a meal from an uploaded photo using the fixed estimate.
func (s *MealService) LogPhoto(ctx context.Context, userID int64, filename string, mealType domain.MealType) (*domain.Meal, error) {
	desc := "Meal photo"
	if filename != "" {
		desc = fmt.Sprintf("Meal photo (%s)", filename)
	}
	if mealType == "" {
		mealType = domain.Snack
	}
	return s.Create(ctx, userID, MealInput{
		Description: desc,
		Calories:    PhotoEstimateCalories,
		MealType:    mealType,
		Source:      domain.SourceImage,
	})
}

// Get returns meal id or ErrNotFound.
func (s *MealService) Get(ctx context.Context, userID, id int64) (*domain.Meal, error) {
	m, err := s.meals.GetMeal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("meal %d: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

// Update replaces the editable fields of meal id.
func (s *MealService) Update(ctx context.Context, userID, id int64, in MealInput) (*domain.Meal, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Source == "" {
		in.Source = existing.Source
	}
	if in.Date == "" {
		in.Date = existing.Date
	}
	m, err := s.build(in)
	if err != nil {
		return nil, err
	}
	m.ID = id
	m.UserID = userID
	m.Rating = existing.Rating
	m.CreatedAt = existing.CreatedAt
	ok, err := s.meals.UpdateMeal(ctx, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("meal %d: %w", id, domain.ErrNotFound)
	}
	return &m, nil
}

// Rate records a 1-5 star rating on meal id.
func (s *MealService) Rate(ctx context.Context, userID, id int64, stars int) (*domain.Meal, error) {
	if !intent.ValidRating(stars) {
		return nil, domain.Validationf("rating must be between 1 and 5")
	}
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	m.Rating = stars
	if _, err := s.meals.UpdateMeal(ctx, *m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes meal id.
func (s *MealService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.meals.DeleteMeal(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("meal %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns meals in the range, newest first.
func (s *MealService) List(ctx context.Context, userID int64, r domain.DayRange) ([]domain.Meal, error) {
	if r.From != "" && r.To != "" && r.From > r.To {
		return nil, domain.Validationf("startDate must not be after endDate")
	}
	return s.meals.ListMeals(ctx, userID, r)
}

// Summary totals the meals of day. An empty day means today.
func (s *MealService) Summary(ctx context.Context, userID int64, day string) (*DaySummary, error) {
	if day == "" {
		day = localDay(s.now())
	}
	meals, err := s.meals.ListMeals(ctx, userID, domain.DayRange{From: day, To: day})
	if err != nil {
		return nil, err
	}

	sum := &DaySummary{Date: day, ByMealType: make(map[domain.MealType]int, len(domain.MealTypes))}
	for _, t := range domain.MealTypes {
		sum.ByMealType[t] = 0
	}
	for _, m := range meals {
		sum.Meals++
		sum.Calories += m.Calories
		sum.Nutrition = sum.Nutrition.Add(m.Nutrition)
		sum.ByMealType[m.MealType] += m.Calories
	}

	if s.goals != nil {
		g, err := s.goals.CurrentGoal(ctx, userID)
		if err != nil {
			log.Printf("[meals] current goal lookup failed: %v", err)
		} else if g != nil {
			sum.CalorieGoal = g.Target.DailyCalories
			sum.Remaining = g.Target.DailyCalories - sum.Calories
			n := g.Target.Nutrition
			sum.GoalNutrition = &n
		}
	}
	return sum, nil
}

func (s *MealService) build(in MealInput) (domain.Meal, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return domain.Meal{}, domain.Validationf("description is required")
	}
	if in.Calories < 0 {
		return domain.Meal{}, domain.Validationf("calories must be >= 0")
	}
	mt := in.MealType
	if mt == "" {
		mt, _ = intent.DetectMealType(desc)
	}
	if !mt.IsValid() {
		return domain.Meal{}, domain.Validationf("unknown meal type %q", mt)
	}
	day := localDay(s.now())
	if in.Date != "" {
		d, err := parseDay(in.Date)
		if err != nil {
			return domain.Meal{}, err
		}
		day = d
	}
	nutrition := domain.MealSplit.Grams(in.Calories)
	if in.Nutrition != nil {
		nutrition = *in.Nutrition
	}
	source := in.Source
	if source == "" {
		source = domain.SourceManual
	}
	return domain.Meal{
		Description: desc,
		Calories:    in.Calories,
		MealType:    mt,
		Date:        day,
		Nutrition:   nutrition,
		Foods:       in.Foods,
		Source:      source,
	}, nil
}
