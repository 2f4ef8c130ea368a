// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"niblet/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu            sync.Mutex
	weights       []domain.WeightEntry
	meals         []domain.Meal
	goals         []domain.Goal
	profiles      map[int64]domain.Profile
	personalities map[string]domain.Personality
	templates     map[string]domain.PromptTemplate
	users         []*domain.User
	sessions      map[string]*domain.Session
	resets        map[string]domain.PasswordReset

	weightIDCounter int64
	mealIDCounter   int64
	goalIDCounter   int64
	userIDCounter   int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		profiles:      make(map[int64]domain.Profile),
		personalities: make(map[string]domain.Personality),
		templates:     make(map[string]domain.PromptTemplate),
		sessions:      make(map[string]*domain.Session),
		resets:        make(map[string]domain.PasswordReset),
	}
}

// Ensure interfaces are met.
var (
	_ domain.WeightRepository      = (*DB)(nil)
	_ domain.MealRepository        = (*DB)(nil)
	_ domain.GoalRepository        = (*DB)(nil)
	_ domain.ProfileRepository     = (*DB)(nil)
	_ domain.PersonalityRepository = (*DB)(nil)
	_ domain.TemplateRepository    = (*DB)(nil)
	_ domain.UserRepository        = (*DB)(nil)
	_ domain.ResetTokenRepository  = (*DB)(nil)
	_ domain.SessionRepository     = (*SessionRepo)(nil)
)

// --- WeightRepository ---

// AddWeightEntry stores a weigh-in.
func (db *DB) AddWeightEntry(_ context.Context, e domain.WeightEntry) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.weightIDCounter++
	e.ID = db.weightIDCounter
	e.CreatedAt = e.CreatedAt.UTC()
	if e.Day == "" {
		e.Day = e.CreatedAt.In(time.Local).Format("2006-01-02")
	}
	db.weights = append(db.weights, e)
	return e.ID, nil
}

// DeleteWeightEntry deletes one of the user's weigh-ins.
func (db *DB) DeleteWeightEntry(_ context.Context, userID, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, w := range db.weights {
		if w.ID == id && w.UserID == userID {
			db.weights = append(db.weights[:i], db.weights[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// DeleteLatestWeightEntry deletes the user's most recent weigh-in.
func (db *DB) DeleteLatestWeightEntry(_ context.Context, userID int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	lastIdx := -1
	for i, w := range db.weights {
		if w.UserID != userID {
			continue
		}
		if lastIdx == -1 || newerWeight(w, db.weights[lastIdx]) {
			lastIdx = i
		}
	}
	if lastIdx == -1 {
		return false, nil
	}
	db.weights = append(db.weights[:lastIdx], db.weights[lastIdx+1:]...)
	return true, nil
}

// LatestWeightForLocalDay returns the latest weight for the given day.
func (db *DB) LatestWeightForLocalDay(_ context.Context, userID int64, localDay string) (*domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var latest *domain.WeightEntry
	for i := range db.weights {
		w := &db.weights[i]
		if w.UserID != userID || w.Day != localDay {
			continue
		}
		if latest == nil || newerWeight(*w, *latest) {
			latest = w
		}
	}
	if latest == nil {
		return nil, nil
	}
	ret := *latest
	return &ret, nil
}

// ListWeightEntries lists the user's weigh-ins in range, newest first.
func (db *DB) ListWeightEntries(_ context.Context, userID int64, r domain.DayRange) ([]domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.WeightEntry, 0)
	for _, w := range db.weights {
		if w.UserID == userID && r.Contains(w.Day) {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return newerWeight(result[i], result[j]) })
	if r.Limit > 0 && len(result) > r.Limit {
		result = result[:r.Limit]
	}
	return result, nil
}

func newerWeight(a, b domain.WeightEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(_ context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(_ context.Context, username, passwordHash, role string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, fmt.Errorf("user %s: %w", username, domain.ErrConflict)
		}
	}
	if role == "" {
		role = domain.RoleUser
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	c := *u
	return &c, nil
}

// UpdatePassword replaces a user's password hash.
func (db *DB) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
}

// Count returns the total number of users.
func (db *DB) Count(_ context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- ResetTokenRepository ---

// CreateReset stores a password reset token.
func (db *DB) CreateReset(_ context.Context, reset domain.PasswordReset) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.resets[reset.Token] = reset
	return nil
}

// ConsumeReset removes and returns a reset token.
func (db *DB) ConsumeReset(_ context.Context, token string) (*domain.PasswordReset, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.resets[token]
	if !ok {
		return nil, nil
	}
	delete(db.resets, token)
	return &r, nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		if time.Now().After(s.ExpiresAt) {
			delete(r.db.sessions, token)
			return nil, nil
		}
		c := *s
		return &c, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(_ context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(_ context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
