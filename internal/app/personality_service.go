package app

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"niblet/internal/domain"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// PersonalityService manages chatbot personalities and prompt templates.
type PersonalityService struct {
	personalities domain.PersonalityRepository
	templates     domain.TemplateRepository
	defaultID     string
}

// NewPersonalityService creates the service. An empty defaultID selects
// domain.DefaultPersonality.
func NewPersonalityService(p domain.PersonalityRepository, t domain.TemplateRepository, defaultID string) *PersonalityService {
	if defaultID == "" {
		defaultID = domain.DefaultPersonality
	}
	return &PersonalityService{personalities: p, templates: t, defaultID: defaultID}
}

// Seed stores the built-in personalities and templates that are missing.
func (s *PersonalityService) Seed(ctx context.Context) error {
	for _, p := range domain.SeedPersonalities() {
		existing, err := s.personalities.GetPersonality(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.personalities.SavePersonality(ctx, p); err != nil {
			return fmt.Errorf("seed personality %s: %w", p.ID, err)
		}
	}
	for _, t := range domain.SeedTemplates() {
		existing, err := s.templates.GetTemplate(ctx, t.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.templates.SaveTemplate(ctx, t); err != nil {
			return fmt.Errorf("seed template %s: %w", t.ID, err)
		}
	}
	return nil
}

// DefaultID is the personality used when a user has not chosen one.
func (s *PersonalityService) DefaultID() string { return s.defaultID }

func (s *PersonalityService) ListPersonalities(ctx context.Context) ([]domain.Personality, error) {
	return s.personalities.ListPersonalities(ctx)
}

// Lookup returns personality id, or nil when unknown or inactive.
func (s *PersonalityService) Lookup(ctx context.Context, id string) (*domain.Personality, error) {
	p, err := s.personalities.GetPersonality(ctx, id)
	if err != nil || p == nil || !p.Active {
		return nil, err
	}
	return p, nil
}

// Resolve returns id when it names an active personality and the default
// otherwise.
func (s *PersonalityService) Resolve(ctx context.Context, id string) string {
	if id == "" {
		return s.defaultID
	}
	p, err := s.Lookup(ctx, id)
	if err != nil {
		log.Printf("[personality] lookup %s failed: %v", id, err)
		return s.defaultID
	}
	if p == nil {
		return s.defaultID
	}
	return p.ID
}

func (s *PersonalityService) SavePersonality(ctx context.Context, p domain.Personality) (*domain.Personality, error) {
	if !slugPattern.MatchString(p.ID) {
		return nil, domain.Validationf("personality id must be a lowercase slug")
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return nil, domain.Validationf("system prompt is required")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return nil, domain.Validationf("temperature must be between 0 and 2")
	}
	if err := s.personalities.SavePersonality(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PersonalityService) DeletePersonality(ctx context.Context, id string) error {
	if id == s.defaultID {
		return fmt.Errorf("%w: cannot delete the default personality", domain.ErrConflict)
	}
	ok, err := s.personalities.DeletePersonality(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("personality %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *PersonalityService) ListTemplates(ctx context.Context) ([]domain.PromptTemplate, error) {
	return s.templates.ListTemplates(ctx)
}

func (s *PersonalityService) SaveTemplate(ctx context.Context, t domain.PromptTemplate) (*domain.PromptTemplate, error) {
	if !slugPattern.MatchString(t.ID) {
		return nil, domain.Validationf("template id must be a lowercase slug")
	}
	if strings.TrimSpace(t.Template) == "" {
		return nil, domain.Validationf("template text is required")
	}
	if t.Category != domain.CategoryLogging && t.Category != domain.CategoryRecommendations {
		return nil, domain.Validationf("category must be %q or %q", domain.CategoryLogging, domain.CategoryRecommendations)
	}
	if t.Name == "" {
		t.Name = strings.ReplaceAll(t.ID, "-", " ")
	}
	if err := s.templates.SaveTemplate(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PersonalityService) DeleteTemplate(ctx context.Context, id string) error {
	ok, err := s.templates.DeleteTemplate(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Render fills template id's {placeholders} from vars.
func (s *PersonalityService) Render(ctx context.Context, id string, vars map[string]any) (string, error) {
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}

	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(t.Template))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", domain.Validationf("render %s: %v", id, err)
	}
	if len(msgs) == 0 {
		return "", nil
	}
	return msgs[0].Content, nil
}
