package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"niblet/internal/adapter/memory"
	"niblet/internal/app"
	"niblet/internal/assistant"
	"niblet/internal/domain"
)

type chatFixture struct {
	db   *memory.DB
	svc  *app.ChatService
	sess app.ChatSession
}

func newChat(t *testing.T, responder assistant.Responder) *chatFixture {
	t.Helper()
	db := memory.New()
	personalities := app.NewPersonalityService(db, db, "")
	if err := personalities.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	svc := app.NewChatService(app.NewMealService(db, db), app.NewWeightService(db, db, db), responder, personalities)
	sess, err := svc.CreateSession(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return &chatFixture{db: db, svc: svc, sess: sess}
}

func (f *chatFixture) send(t *testing.T, text string) domain.Message {
	t.Helper()
	msgs, err := f.svc.Send(context.Background(), 1, f.sess.ID, text)
	if err != nil {
		t.Fatalf("Send(%q): %v", text, err)
	}
	if len(msgs) != 2 || msgs[0].Sender != domain.SenderUser || msgs[1].Sender != domain.SenderAssistant {
		t.Fatalf("expected user message and reply, got %+v", msgs)
	}
	return msgs[1]
}

func TestChatService_CreateSession(t *testing.T) {
	f := newChat(t, nil)
	if f.sess.Personality != domain.DefaultPersonality {
		t.Errorf("personality = %s; want default", f.sess.Personality)
	}
	if len(f.sess.Messages) != 1 || !strings.HasPrefix(f.sess.Messages[0].Text, "Welcome to Niblet!") {
		t.Errorf("expected welcome message, got %+v", f.sess.Messages)
	}

	if _, err := f.svc.Session(context.Background(), 2, f.sess.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected other user to get ErrNotFound, got %v", err)
	}
}

func TestChatService_MealEstimateAccepted(t *testing.T) {
	ctx := context.Background()
	f := newChat(t, nil)

	reply := f.send(t, "I had a turkey sandwich for lunch")
	want := `I estimate that "I had a turkey sandwich for lunch" is approximately 350 calories. Is this correct?`
	if reply.Text != want {
		t.Errorf("reply = %q; want %q", reply.Text, want)
	}
	if reply.Meta == nil || !reply.Meta.Pending || reply.Meta.Calories != 350 || reply.Meta.MealType != domain.Lunch {
		t.Fatalf("unexpected meta %+v", reply.Meta)
	}

	msgs, err := f.svc.Confirm(ctx, 1, f.sess.ID, reply.ID, app.ConfirmAccept, 0)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected updated estimate and reply, got %d messages", len(msgs))
	}
	if msgs[0].ID != reply.ID || msgs[0].Meta.Pending || !msgs[0].Meta.Confirmed {
		t.Errorf("estimate not marked confirmed: %+v", msgs[0].Meta)
	}
	if msgs[1].Text != "I've logged 350 calories for your meal. Great job staying on track!" {
		t.Errorf("unexpected confirmation %q", msgs[1].Text)
	}
	if !msgs[1].Meta.ShowRating {
		t.Error("expected confirmation to offer a rating")
	}

	meals, _ := f.db.ListMeals(ctx, 1, domain.DayRange{})
	if len(meals) != 1 {
		t.Fatalf("expected 1 meal, got %d", len(meals))
	}
	m := meals[0]
	if m.Calories != 350 || m.MealType != domain.Lunch || m.Source != domain.SourceChat {
		t.Errorf("unexpected meal %+v", m)
	}
	if want := (domain.Nutrition{Protein: 26, Carbs: 44, Fat: 8}); m.Nutrition != want {
		t.Errorf("nutrition = %+v; want %+v", m.Nutrition, want)
	}

	if _, err := f.svc.Confirm(ctx, 1, f.sess.ID, reply.ID, app.ConfirmAccept, 0); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected second confirm to conflict, got %v", err)
	}
}

func TestChatService_MealEstimateAdjusted(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		action   app.ConfirmAction
		calories int
		want     int
	}{
		{app.ConfirmLower, 0, 300},
		{app.ConfirmHigher, 0, 400},
		{app.ConfirmAdjust, 420, 420},
	}
	for _, tc := range tests {
		t.Run(string(tc.action), func(t *testing.T) {
			f := newChat(t, nil)
			reply := f.send(t, "I had a turkey sandwich for lunch")
			msgs, err := f.svc.Confirm(ctx, 1, f.sess.ID, reply.ID, tc.action, tc.calories)
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if !strings.HasSuffix(msgs[1].Text, "Thanks for the correction!") {
				t.Errorf("unexpected reply %q", msgs[1].Text)
			}
			meals, _ := f.db.ListMeals(ctx, 1, domain.DayRange{})
			if len(meals) != 1 || meals[0].Calories != tc.want {
				t.Errorf("expected a %d kcal meal, got %+v", tc.want, meals)
			}
		})
	}
}

func TestChatService_NewMessageDropsPendingEstimate(t *testing.T) {
	ctx := context.Background()
	f := newChat(t, nil)

	est := f.send(t, "I ate a burrito")
	f.send(t, "hello there")

	if _, err := f.svc.Confirm(ctx, 1, f.sess.ID, est.ID, app.ConfirmAccept, 0); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected stale estimate to conflict, got %v", err)
	}
	sess, _ := f.svc.Session(ctx, 1, f.sess.ID)
	for _, m := range sess.Messages {
		if m.ID == est.ID && m.Meta.Pending {
			t.Error("stale estimate still pending")
		}
	}
}

func TestChatService_WeightLog(t *testing.T) {
	ctx := context.Background()
	f := newChat(t, nil)

	reply := f.send(t, "I weigh 82 kg")
	if !strings.HasPrefix(reply.Text, "Great! I've recorded your weight as 180.8 lbs. ") {
		t.Errorf("unexpected reply %q", reply.Text)
	}
	if reply.Meta.Weight != 180.8 {
		t.Errorf("meta weight = %v", reply.Meta.Weight)
	}
	entries, _ := f.db.ListWeightEntries(ctx, 1, domain.DayRange{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Weight != 180.8 || entries[0].Unit != domain.UnitKg || entries[0].Notes != `Logged via chat: "I weigh 82 kg"` {
		t.Errorf("unexpected entry %+v", entries[0])
	}

	reply = f.send(t, "my weight is down")
	if reply.Meta.Intent != "weight-log" || reply.Meta.Weight != 0 {
		t.Errorf("expected a re-prompt, got %+v", reply)
	}
	entries, _ = f.db.ListWeightEntries(ctx, 1, domain.DayRange{})
	if len(entries) != 1 {
		t.Errorf("re-prompt must not log a weight, got %d entries", len(entries))
	}
}

func TestChatService_QuestionAndClarify(t *testing.T) {
	f := newChat(t, nil)

	reply := f.send(t, "is avocado healthy")
	if !strings.HasPrefix(reply.Text, "I'd be happy to help with your nutrition question!") {
		t.Errorf("unexpected canned answer %q", reply.Text)
	}

	reply = f.send(t, "hello there")
	if !strings.HasPrefix(reply.Text, "I'm not sure I understand.") {
		t.Errorf("unexpected clarification %q", reply.Text)
	}
}

func TestChatService_QuestionUsesResponder(t *testing.T) {
	var threads int
	var gotPersonality string
	responder := &mockResponder{
		createThreadFn: func(ctx context.Context) (string, error) {
			threads++
			return "thread_abc", nil
		},
		sendFn: func(ctx context.Context, threadID, personality, message string) (assistant.Reply, error) {
			if threadID != "thread_abc" {
				t.Errorf("thread = %s", threadID)
			}
			gotPersonality = personality
			return assistant.Reply{Message: "an apple is about 95 calories", MessageID: "msg_1"}, nil
		},
	}
	f := newChat(t, responder)

	reply := f.send(t, "How many calories in an apple")
	if reply.Text != "an apple is about 95 calories" {
		t.Errorf("reply = %q", reply.Text)
	}
	f.send(t, "is avocado healthy")
	if threads != 1 {
		t.Errorf("expected one thread per session, created %d", threads)
	}
	if gotPersonality != domain.DefaultPersonality {
		t.Errorf("personality = %q", gotPersonality)
	}
}

func TestChatService_ProviderErrorIsStyledReply(t *testing.T) {
	responder := &mockResponder{
		sendFn: func(ctx context.Context, threadID, personality, message string) (assistant.Reply, error) {
			return assistant.Reply{}, &assistant.ProviderError{Status: 500, Message: "boom"}
		},
	}
	f := newChat(t, responder)

	reply := f.send(t, "is avocado healthy")
	if reply.Meta == nil || !reply.Meta.Error {
		t.Errorf("expected an error-styled reply, got %+v", reply)
	}
}

func TestChatService_OneTurnAtATime(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	responder := &mockResponder{
		sendFn: func(ctx context.Context, threadID, personality, message string) (assistant.Reply, error) {
			close(started)
			<-release
			return assistant.Reply{Message: "done"}, nil
		},
	}
	f := newChat(t, responder)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := f.svc.Send(ctx, 1, f.sess.ID, "is avocado healthy"); err != nil {
			t.Errorf("first turn: %v", err)
		}
	}()

	<-started
	if _, err := f.svc.Send(ctx, 1, f.sess.ID, "hello there"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for concurrent turn, got %v", err)
	}
	close(release)
	wg.Wait()

	if _, err := f.svc.Send(ctx, 1, f.sess.ID, "hello there"); err != nil {
		t.Errorf("expected session to be free again, got %v", err)
	}
}

func TestChatService_RateMeal(t *testing.T) {
	ctx := context.Background()
	f := newChat(t, nil)

	est := f.send(t, "I had a turkey sandwich for lunch")
	confirmed, err := f.svc.Confirm(ctx, 1, f.sess.ID, est.ID, app.ConfirmAccept, 0)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	logged := confirmed[1]

	if _, err := f.svc.Rate(ctx, 1, f.sess.ID, est.ID, 4); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected estimate without rating offer to be rejected, got %v", err)
	}
	if _, err := f.svc.Rate(ctx, 1, f.sess.ID, logged.ID, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected 0 stars to be rejected, got %v", err)
	}

	msgs, err := f.svc.Rate(ctx, 1, f.sess.ID, logged.ID, 4)
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected rated message, utterance and reply, got %d", len(msgs))
	}
	if !strings.HasSuffix(msgs[0].Text, " (Rated: 4 stars)") || !msgs[0].Meta.Rated {
		t.Errorf("unexpected rated message %+v", msgs[0])
	}
	if msgs[1].Sender != domain.SenderUser || msgs[1].Text != "I rate this meal 4 stars." {
		t.Errorf("unexpected utterance %+v", msgs[1])
	}
	if msgs[2].Text != "Thanks for your rating!" {
		t.Errorf("unexpected reply %q", msgs[2].Text)
	}

	m, _ := f.db.GetMeal(ctx, 1, logged.Meta.MealID)
	if m == nil || m.Rating != 4 {
		t.Errorf("expected meal rated 4, got %+v", m)
	}

	if _, err := f.svc.Rate(ctx, 1, f.sess.ID, logged.ID, 5); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected second rating to conflict, got %v", err)
	}
}

func TestChatService_Photo(t *testing.T) {
	ctx := context.Background()
	f := newChat(t, nil)

	msgs, err := f.svc.Photo(ctx, 1, f.sess.ID)
	if err != nil {
		t.Fatalf("Photo: %v", err)
	}
	reply := msgs[1]
	if reply.Text != "I've analyzed your meal photo and estimate it to be approximately 450 calories. Is this correct?" {
		t.Errorf("unexpected reply %q", reply.Text)
	}
	if _, err := f.svc.Confirm(ctx, 1, f.sess.ID, reply.ID, app.ConfirmAccept, 0); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	meals, _ := f.db.ListMeals(ctx, 1, domain.DayRange{})
	if len(meals) != 1 || meals[0].Calories != 450 || meals[0].MealType != domain.Snack {
		t.Errorf("unexpected meals %+v", meals)
	}
}

func TestChatService_BlankMessageRejected(t *testing.T) {
	f := newChat(t, nil)
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := f.svc.Send(context.Background(), 1, f.sess.ID, text); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Send(%q) = %v; want ErrValidation", text, err)
		}
	}
	sess, err := f.svc.Session(context.Background(), 1, f.sess.ID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(sess.Messages) != 1 {
		t.Errorf("blank turns must not be recorded, got %d messages", len(sess.Messages))
	}
}

func TestChatService_Close(t *testing.T) {
	ctx := context.Background()
	f := newChat(t, nil)

	if err := f.svc.Close(2, f.sess.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other user closing: got %v; want ErrNotFound", err)
	}
	if err := f.svc.Close(1, f.sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := f.svc.Session(ctx, 1, f.sess.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("closed session still readable: %v", err)
	}
	if err := f.svc.Close(1, f.sess.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Close: got %v; want ErrNotFound", err)
	}
}

func TestChatService_PurgeIdle(t *testing.T) {
	ctx := context.Background()
	f := newChat(t, nil)
	other, err := f.svc.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if n := f.svc.PurgeIdle(time.Now().Add(-time.Hour)); n != 0 {
		t.Fatalf("purged %d recently active sessions", n)
	}
	if n := f.svc.PurgeIdle(time.Now().Add(time.Hour)); n != 2 {
		t.Fatalf("purged %d sessions; want 2", n)
	}
	for _, id := range []string{f.sess.ID, other.ID} {
		if _, err := f.svc.Session(ctx, 1, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("session %s survived purge: %v", id, err)
		}
	}
}

func TestChatService_PurgeIdleKeepsBusySession(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	responder := &mockResponder{
		sendFn: func(ctx context.Context, threadID, personality, message string) (assistant.Reply, error) {
			close(started)
			<-release
			return assistant.Reply{Message: "done"}, nil
		},
	}
	f := newChat(t, responder)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Send(ctx, 1, f.sess.ID, "is avocado healthy")
		done <- err
	}()
	<-started
	if n := f.svc.PurgeIdle(time.Now().Add(time.Hour)); n != 0 {
		t.Errorf("purged %d sessions mid-turn", n)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := f.svc.Session(ctx, 1, f.sess.ID); err != nil {
		t.Errorf("busy session was removed: %v", err)
	}
}
