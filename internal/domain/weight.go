package domain

import (
	"context"
	"time"
)

// WeightEntry represents a single weigh-in. Weight is always stored in
// pounds; Unit records what the user entered.
type WeightEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Day       string    `json:"day"`
	Weight    float64   `json:"weight"`
	Unit      string    `json:"unit"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DayRange selects entries whose local day falls in [From, To]. Empty bounds
// are open. Limit <= 0 means no limit.
type DayRange struct {
	From  string
	To    string
	Limit int
}

// Contains reports whether day (YYYY-MM-DD) is inside the range.
func (r DayRange) Contains(day string) bool {
	if r.From != "" && day < r.From {
		return false
	}
	if r.To != "" && day > r.To {
		return false
	}
	return true
}

// WeightRepository is the port for weight persistence.
type WeightRepository interface {
	AddWeightEntry(ctx context.Context, e WeightEntry) (int64, error)
	DeleteWeightEntry(ctx context.Context, userID, id int64) (bool, error)
	DeleteLatestWeightEntry(ctx context.Context, userID int64) (bool, error)
	LatestWeightForLocalDay(ctx context.Context, userID int64, localDay string) (*WeightEntry, error)
	// ListWeightEntries returns entries newest first.
	ListWeightEntries(ctx context.Context, userID int64, r DayRange) ([]WeightEntry, error)
}
