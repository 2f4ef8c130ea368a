package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"niblet/internal/domain"
)

func scanPersonality(row scanner) (domain.Personality, error) {
	var p domain.Personality
	var examples string
	if err := row.Scan(&p.ID, &p.SystemPrompt, &examples, &p.Temperature, &p.Active); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(examples), &p.Examples); err != nil {
		return p, fmt.Errorf("personality %s examples: %w", p.ID, err)
	}
	return p, nil
}

// ListPersonalities returns all personalities ordered by id.
func (s *Store) ListPersonalities(ctx context.Context) ([]domain.Personality, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, system_prompt, examples, temperature, active FROM personalities ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Personality, 0)
	for rows.Next() {
		p, err := scanPersonality(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPersonality returns a personality, or nil.
func (s *Store) GetPersonality(ctx context.Context, id string) (*domain.Personality, error) {
	p, err := scanPersonality(s.db.QueryRowContext(ctx,
		"SELECT id, system_prompt, examples, temperature, active FROM personalities WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePersonality upserts a personality.
func (s *Store) SavePersonality(ctx context.Context, p domain.Personality) error {
	examples := p.Examples
	if examples == nil {
		examples = []string{}
	}
	raw, err := json.Marshal(examples)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO personalities (id, system_prompt, examples, temperature, active) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET system_prompt = excluded.system_prompt, examples = excluded.examples,
			temperature = excluded.temperature, active = excluded.active`,
		p.ID, p.SystemPrompt, string(raw), p.Temperature, p.Active)
	return err
}

// DeletePersonality removes a personality.
func (s *Store) DeletePersonality(ctx context.Context, id string) (bool, error) {
	return affected(s.db.ExecContext(ctx, "DELETE FROM personalities WHERE id = ?", id))
}

// ListTemplates returns all prompt templates ordered by id.
func (s *Store) ListTemplates(ctx context.Context) ([]domain.PromptTemplate, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, template, category FROM prompt_templates ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.PromptTemplate, 0)
	for rows.Next() {
		var t domain.PromptTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Template, &t.Category); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTemplate returns a prompt template, or nil.
func (s *Store) GetTemplate(ctx context.Context, id string) (*domain.PromptTemplate, error) {
	var t domain.PromptTemplate
	err := s.db.QueryRowContext(ctx, "SELECT id, name, template, category FROM prompt_templates WHERE id = ?", id).
		Scan(&t.ID, &t.Name, &t.Template, &t.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveTemplate upserts a prompt template.
func (s *Store) SaveTemplate(ctx context.Context, t domain.PromptTemplate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_templates (id, name, template, category) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, template = excluded.template, category = excluded.category`,
		t.ID, t.Name, t.Template, t.Category)
	return err
}

// DeleteTemplate removes a prompt template.
func (s *Store) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	return affected(s.db.ExecContext(ctx, "DELETE FROM prompt_templates WHERE id = ?", id))
}
