package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"niblet/internal/domain"
)

const historyLimit = 20

const fallbackSystemPrompt = "You are Nibble, a friendly nutrition assistant. Keep answers short and practical."

// PersonalityLookup resolves a personality id. A nil result with a nil
// error means the id is unknown.
type PersonalityLookup func(ctx context.Context, id string) (*domain.Personality, error)

// EinoResponder implements Responder with a chat model. Threads live in
// memory.
type EinoResponder struct {
	chain       compose.Runnable[map[string]any, *schema.Message]
	personality PersonalityLookup

	mu      sync.Mutex
	threads map[string][]*schema.Message
}

func NewEinoResponder(ctx context.Context, cm model.BaseChatModel, lookup PersonalityLookup) (*EinoResponder, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(cm)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &EinoResponder{
		chain:       runnable,
		personality: lookup,
		threads:     make(map[string][]*schema.Message),
	}, nil
}

// CreateThread allocates an empty history.
func (r *EinoResponder) CreateThread(_ context.Context) (string, error) {
	id := "thread_" + uuid.NewString()
	r.mu.Lock()
	r.threads[id] = nil
	r.mu.Unlock()
	return id, nil
}

// Send answers message in the voice of personality, keeping the exchange in
// the thread history.
func (r *EinoResponder) Send(ctx context.Context, threadID, personality, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, domain.Validationf("message is required")
	}

	r.mu.Lock()
	history, ok := r.threads[threadID]
	r.mu.Unlock()
	if !ok {
		return Reply{}, fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
	}

	input := map[string]any{
		"system":  r.systemPrompt(ctx, personality),
		"history": history,
		"query":   message,
	}
	resp, err := r.chain.Invoke(ctx, input)
	if err != nil {
		return Reply{}, &ProviderError{Message: err.Error()}
	}

	r.mu.Lock()
	h := append(r.threads[threadID], schema.UserMessage(message), schema.AssistantMessage(resp.Content, nil))
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	r.threads[threadID] = h
	r.mu.Unlock()

	log.Printf("[assistant] eino reply thread=%s personality=%s length=%d", threadID, personality, len(resp.Content))
	return Reply{Message: resp.Content, MessageID: "msg_" + uuid.NewString()}, nil
}

func (r *EinoResponder) systemPrompt(ctx context.Context, id string) string {
	if r.personality == nil {
		return fallbackSystemPrompt
	}
	if id == "" {
		id = domain.DefaultPersonality
	}
	p, err := r.personality(ctx, id)
	if err != nil {
		log.Printf("[assistant] personality %s lookup failed: %v", id, err)
		return fallbackSystemPrompt
	}
	if p == nil || p.SystemPrompt == "" {
		return fallbackSystemPrompt
	}
	if len(p.Examples) == 0 {
		return p.SystemPrompt
	}
	var b strings.Builder
	b.WriteString(p.SystemPrompt)
	b.WriteString("\n\nExample replies:")
	for _, ex := range p.Examples {
		b.WriteString("\n- ")
		b.WriteString(ex)
	}
	return b.String()
}
