package memory

import (
	"context"
	"slices"
	"sort"

	"niblet/internal/domain"
)

// --- PersonalityRepository ---

// ListPersonalities returns all personalities ordered by id.
func (db *DB) ListPersonalities(_ context.Context) ([]domain.Personality, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Personality, 0, len(db.personalities))
	for _, p := range db.personalities {
		p.Examples = slices.Clone(p.Examples)
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetPersonality returns a personality, or nil.
func (db *DB) GetPersonality(_ context.Context, id string) (*domain.Personality, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.personalities[id]
	if !ok {
		return nil, nil
	}
	p.Examples = slices.Clone(p.Examples)
	return &p, nil
}

// SavePersonality upserts a personality.
func (db *DB) SavePersonality(_ context.Context, p domain.Personality) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	p.Examples = slices.Clone(p.Examples)
	db.personalities[p.ID] = p
	return nil
}

// DeletePersonality removes a personality.
func (db *DB) DeletePersonality(_ context.Context, id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.personalities[id]; !ok {
		return false, nil
	}
	delete(db.personalities, id)
	return true, nil
}

// --- TemplateRepository ---

// ListTemplates returns all templates ordered by id.
func (db *DB) ListTemplates(_ context.Context) ([]domain.PromptTemplate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.PromptTemplate, 0, len(db.templates))
	for _, t := range db.templates {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetTemplate returns a template, or nil.
func (db *DB) GetTemplate(_ context.Context, id string) (*domain.PromptTemplate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// SaveTemplate upserts a template.
func (db *DB) SaveTemplate(_ context.Context, t domain.PromptTemplate) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.templates[t.ID] = t
	return nil
}

// DeleteTemplate removes a template.
func (db *DB) DeleteTemplate(_ context.Context, id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.templates[id]; !ok {
		return false, nil
	}
	delete(db.templates, id)
	return true, nil
}
