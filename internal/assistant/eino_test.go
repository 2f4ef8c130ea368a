package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"niblet/internal/domain"
)

type fakeChatModel struct {
	calls [][]*schema.Message
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage("echo: "+in[len(in)-1].Content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func seedLookup(_ context.Context, id string) (*domain.Personality, error) {
	for _, p := range domain.SeedPersonalities() {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func TestEinoResponderKeepsHistory(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChatModel{}
	r, err := NewEinoResponder(ctx, fake, seedLookup)
	if err != nil {
		t.Fatalf("NewEinoResponder: %v", err)
	}

	thread, err := r.CreateThread(ctx)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := r.Send(ctx, thread, "tough-love", "is pizza healthy?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Message != "echo: is pizza healthy?" || reply.MessageID == "" {
		t.Errorf("reply = %+v", reply)
	}

	first := fake.calls[0]
	if first[0].Role != schema.System {
		t.Fatalf("first message role = %s", first[0].Role)
	}
	tough := seedLookupMust(t, "tough-love")
	if !strings.HasPrefix(first[0].Content, tough.SystemPrompt) {
		t.Errorf("system prompt = %q", first[0].Content)
	}

	if _, err := r.Send(ctx, thread, "", "and pasta?"); err != nil {
		t.Fatal(err)
	}
	second := fake.calls[1]
	if len(second) != 4 {
		t.Fatalf("second call had %d messages; want system+2 history+query", len(second))
	}
	if second[1].Content != "is pizza healthy?" || second[2].Content != "echo: is pizza healthy?" {
		t.Errorf("history = %q, %q", second[1].Content, second[2].Content)
	}
}

func seedLookupMust(t *testing.T, id string) *domain.Personality {
	t.Helper()
	p, _ := seedLookup(context.Background(), id)
	if p == nil {
		t.Fatalf("no seed personality %s", id)
	}
	return p
}

func TestEinoResponderErrors(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChatModel{err: errors.New("quota")}
	r, err := NewEinoResponder(ctx, fake, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Send(ctx, "missing", "", "hi"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown thread: %v", err)
	}
	thread, _ := r.CreateThread(ctx)
	if _, err := r.Send(ctx, thread, "", "hi"); !errors.Is(err, domain.ErrProvider) {
		t.Errorf("model failure: %v", err)
	}
}
