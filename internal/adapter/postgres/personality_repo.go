package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"niblet/internal/domain"
)

func scanPersonality(s interface{ Scan(...any) error }) (domain.Personality, error) {
	var p domain.Personality
	err := s.Scan(&p.ID, &p.SystemPrompt, pq.Array(&p.Examples), &p.Temperature, &p.Active)
	return p, err
}

// ListPersonalities returns all personalities ordered by id.
func (d *DB) ListPersonalities(ctx context.Context) ([]domain.Personality, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT id, system_prompt, examples, temperature, active FROM personalities ORDER BY id;")
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
func (d *DB) GetPersonality(ctx context.Context, id string) (*domain.Personality, error) {
	p, err := scanPersonality(d.sql.QueryRowContext(ctx,
		"SELECT id, system_prompt, examples, temperature, active FROM personalities WHERE id=$1;", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePersonality upserts a personality.
func (d *DB) SavePersonality(ctx context.Context, p domain.Personality) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO personalities(id, system_prompt, examples, temperature, active) VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET system_prompt=EXCLUDED.system_prompt, examples=EXCLUDED.examples,
			temperature=EXCLUDED.temperature, active=EXCLUDED.active;`,
		p.ID, p.SystemPrompt, pq.Array(p.Examples), p.Temperature, p.Active)
	return err
}

// DeletePersonality removes a personality.
func (d *DB) DeletePersonality(ctx context.Context, id string) (bool, error) {
	return affected(d.sql.ExecContext(ctx, "DELETE FROM personalities WHERE id=$1;", id))
}

// ListTemplates returns all prompt templates ordered by id.
func (d *DB) ListTemplates(ctx context.Context) ([]domain.PromptTemplate, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT id, name, template, category FROM prompt_templates ORDER BY id;")
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
func (d *DB) GetTemplate(ctx context.Context, id string) (*domain.PromptTemplate, error) {
	var t domain.PromptTemplate
	err := d.sql.QueryRowContext(ctx, "SELECT id, name, template, category FROM prompt_templates WHERE id=$1;", id).
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
func (d *DB) SaveTemplate(ctx context.Context, t domain.PromptTemplate) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO prompt_templates(id, name, template, category) VALUES($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, template=EXCLUDED.template, category=EXCLUDED.category;`,
		t.ID, t.Name, t.Template, t.Category)
	return err
}

// DeleteTemplate removes a prompt template.
func (d *DB) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	return affected(d.sql.ExecContext(ctx, "DELETE FROM prompt_templates WHERE id=$1;", id))
}
