package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"niblet/internal/analysis/intent"
	"niblet/internal/assistant"
	"niblet/internal/domain"
)

const (
	chatWelcomeText  = "Welcome to Niblet! How can I help you today? You can log a meal, update your weight, or ask nutrition questions."
	chatClarifyText  = "I'm not sure I understand. You can log a meal by saying something like 'I had a turkey sandwich for lunch', update your weight with 'I weigh 180 lbs today', or ask me nutrition questions."
	chatQuestionText = "I'd be happy to help with your nutrition question! A healthy adult diet typically consists of 2000-2500 calories per day, but your needs may vary based on age, activity level, and goals. Would you like me to suggest some meal options based on your calorie target?"
	chatErrorText    = "Sorry, there was an error processing your request. Please try again."
	chatNoWeightText = "I couldn't find a weight in that. Try something like 'I weigh 180 lbs today' or 'I weigh 82 kg'."
	chatProviderText = "Sorry, I'm having trouble reaching the assistant right now. Please try again in a moment."
	chatThanksText   = "Thanks for your rating!"
	chatPhotoText    = "📷 [Uploading a meal photo]"
	photoDescription = "Meal photo"
)

var encouragements = []string{
	"Keep up the good work with your tracking!",
	"Consistency is key to reaching your goals.",
	"Great job staying committed to your health journey!",
	"Every weigh-in brings you closer to your goals.",
	"Your dedication to tracking is inspiring!",
}

// ConfirmAction is the user's response to a calorie estimate.
type ConfirmAction string

const (
	ConfirmAccept ConfirmAction = "accept"
	ConfirmLower  ConfirmAction = "lower"
	ConfirmHigher ConfirmAction = "higher"
	// ConfirmAdjust logs an explicit calorie value.
	ConfirmAdjust ConfirmAction = "adjust"
)

// ChatSession is a snapshot of one conversation.
type ChatSession struct {
	ID          string           `json:"id"`
	Personality string           `json:"personality"`
	CreatedAt   time.Time        `json:"createdAt"`
	Messages    []domain.Message `json:"messages"`
}

type pendingMeal struct {
	messageID   string
	userText    string
	description string
	calories    int
	mealType    domain.MealType
}

type chatSession struct {
	id          string
	userID      int64
	personality string
	threadID    string
	createdAt   time.Time
	lastActive  time.Time
	messages    []domain.Message
	pending     *pendingMeal
	busy        bool
}

// ChatService runs chat turns: it classifies each utterance, logs meals and
// weights, and forwards questions to the assistant when one is configured.
type ChatService struct {
	meals         *MealService
	weights       *WeightService
	responder     assistant.Responder
	personalities *PersonalityService
	now           func() time.Time
	pick          func(n int) int

	mu       sync.RWMutex
	sessions map[string]*chatSession
}

// NewChatService wires the chat turn handler. responder and personalities
// may be nil.
func NewChatService(meals *MealService, weights *WeightService, responder assistant.Responder, personalities *PersonalityService) *ChatService {
	return &ChatService{
		meals:         meals,
		weights:       weights,
		responder:     responder,
		personalities: personalities,
		now:           time.Now,
		pick:          rand.Intn,
		sessions:      make(map[string]*chatSession),
	}
}

// CreateSession opens a conversation with the welcome message.
func (s *ChatService) CreateSession(ctx context.Context, userID int64, personality string) (ChatSession, error) {
	if s.personalities != nil {
		personality = s.personalities.Resolve(ctx, personality)
	}
	sess := &chatSession{
		id:          uuid.NewString(),
		userID:      userID,
		personality: personality,
		createdAt:   s.now().UTC(),
	}
	sess.lastActive = sess.createdAt
	sess.messages = append(sess.messages, s.message(domain.SenderAssistant, chatWelcomeText, nil))

	s.mu.Lock()
	s.sessions[sess.id] = sess
	snap := snapshot(sess)
	s.mu.Unlock()
	return snap, nil
}

// Session returns a copy of the conversation.
func (s *ChatService) Session(_ context.Context, userID int64, id string) (ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.userID != userID {
		return ChatSession{}, fmt.Errorf("chat session %s: %w", id, domain.ErrNotFound)
	}
	return snapshot(sess), nil
}

// Close discards a conversation and its messages.
func (s *ChatService) Close(userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.userID != userID {
		return fmt.Errorf("chat session %s: %w", id, domain.ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// PurgeIdle discards sessions with no activity since cutoff and returns how
// many were removed. Sessions mid-turn are kept.
func (s *ChatService) PurgeIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.busy || !sess.lastActive.Before(cutoff) {
			continue
		}
		delete(s.sessions, id)
		n++
	}
	return n
}

// Send handles one user utterance and returns the new messages: the user's
// and the reply.
func (s *ChatService) Send(ctx context.Context, userID int64, sessionID, text string) ([]domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.Validationf("message text is required")
	}
	sess, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	userMsg := s.message(domain.SenderUser, text, nil)
	s.mu.Lock()
	sess.messages = append(sess.messages, userMsg)
	s.clearPending(sess)
	s.mu.Unlock()

	reply := s.respond(ctx, sess, text)

	s.mu.Lock()
	sess.messages = append(sess.messages, reply)
	s.mu.Unlock()
	return []domain.Message{userMsg, copyMessage(reply)}, nil
}

// Photo records a meal photo upload and replies with the fixed estimate,
// pending confirmation like a text estimate.
func (s *ChatService) Photo(_ context.Context, userID int64, sessionID string) ([]domain.Message, error) {
	sess, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	userMsg := s.message(domain.SenderUser, chatPhotoText, nil)
	reply := s.message(domain.SenderAssistant,
		fmt.Sprintf("I've analyzed your meal photo and estimate it to be approximately %d calories. Is this correct?", PhotoEstimateCalories),
		&domain.MessageMeta{
			Intent:      string(intent.MealLog),
			Calories:    PhotoEstimateCalories,
			MealType:    domain.Snack,
			Description: photoDescription,
			Pending:     true,
		})

	s.mu.Lock()
	s.clearPending(sess)
	sess.messages = append(sess.messages, userMsg, reply)
	sess.pending = &pendingMeal{
		messageID:   reply.ID,
		userText:    "meal photo",
		description: photoDescription,
		calories:    PhotoEstimateCalories,
		mealType:    domain.Snack,
	}
	s.mu.Unlock()
	return []domain.Message{userMsg, copyMessage(reply)}, nil
}

// Confirm accepts or adjusts the pending estimate in messageID and logs the
// meal. calories is only read for ConfirmAdjust.
func (s *ChatService) Confirm(ctx context.Context, userID int64, sessionID, messageID string, action ConfirmAction, calories int) ([]domain.Message, error) {
	sess, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	s.mu.RLock()
	p := sess.pending
	s.mu.RUnlock()
	if p == nil || p.messageID != messageID {
		return nil, fmt.Errorf("%w: message %s has no pending estimate", domain.ErrConflict, messageID)
	}

	var logged int
	switch action {
	case ConfirmAccept:
		logged = p.calories
	case ConfirmLower:
		logged = intent.Adjust(p.calories, -1)
	case ConfirmHigher:
		logged = intent.Adjust(p.calories, 1)
	case ConfirmAdjust:
		if calories < 0 {
			return nil, domain.Validationf("calories must be >= 0")
		}
		logged = calories
	default:
		return nil, domain.Validationf("unknown action %q", action)
	}

	meal, err := s.meals.LogEstimate(ctx, userID, p.description, logged, p.mealType)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("I've logged %d calories for your meal. Great job staying on track!", logged)
	if action != ConfirmAccept {
		text = fmt.Sprintf("I've logged %d calories for your meal. Thanks for the correction!", logged)
	}
	reply := s.message(domain.SenderAssistant, text, &domain.MessageMeta{
		Intent:     string(intent.MealLog),
		Calories:   logged,
		MealType:   p.mealType,
		MealID:     meal.ID,
		Confirmed:  true,
		ShowRating: intent.OffersRating(p.userText, text),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	var updated domain.Message
	for i := range sess.messages {
		m := &sess.messages[i]
		if m.ID != messageID || m.Meta == nil {
			continue
		}
		m.Meta.Pending = false
		m.Meta.Confirmed = true
		m.Meta.MealID = meal.ID
		updated = copyMessage(*m)
	}
	sess.pending = nil
	sess.messages = append(sess.messages, reply)
	return []domain.Message{updated, copyMessage(reply)}, nil
}

// Rate attaches a 1-5 star rating to a message that offered one, records it
// on the logged meal and returns the rated message, the user's rating
// utterance and the reply.
func (s *ChatService) Rate(ctx context.Context, userID int64, sessionID, messageID string, stars int) ([]domain.Message, error) {
	if !intent.ValidRating(stars) {
		return nil, domain.Validationf("rating must be between 1 and 5")
	}
	sess, err := s.acquire(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.release(sess)

	s.mu.Lock()
	idx := -1
	for i := range sess.messages {
		if sess.messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}
	m := &sess.messages[idx]
	switch {
	case m.Meta == nil || !m.Meta.ShowRating:
		s.mu.Unlock()
		return nil, domain.Validationf("message does not offer a rating")
	case m.Meta.Rated:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: message already rated", domain.ErrConflict)
	}
	m.Meta.Rated = true
	m.Meta.Rating = stars
	m.Text = intent.WithRating(m.Text, stars)
	rated := copyMessage(*m)
	mealID := m.Meta.MealID
	userMsg := s.message(domain.SenderUser, intent.RatingUtterance(stars), nil)
	sess.messages = append(sess.messages, userMsg)
	threadID := sess.threadID
	s.mu.Unlock()

	if mealID > 0 {
		if _, err := s.meals.Rate(ctx, userID, mealID, stars); err != nil {
			log.Printf("[chat] rating meal %d failed: %v", mealID, err)
		}
	}

	reply := s.message(domain.SenderAssistant, chatThanksText, nil)
	if s.responder != nil && threadID != "" {
		if r, err := s.responder.Send(ctx, threadID, sess.personality, userMsg.Text); err == nil {
			reply.Text = r.Message
		} else {
			log.Printf("[chat] sending rating to assistant failed: %v", err)
		}
	}

	s.mu.Lock()
	sess.messages = append(sess.messages, reply)
	s.mu.Unlock()
	return []domain.Message{rated, userMsg, reply}, nil
}

func (s *ChatService) respond(ctx context.Context, sess *chatSession, text string) domain.Message {
	a := intent.Analyze(text)
	meta := &domain.MessageMeta{Intent: string(a.Intent)}

	switch a.Intent {
	case intent.WeightLog:
		if a.Quantity == nil {
			return s.message(domain.SenderAssistant, chatNoWeightText, meta)
		}
		notes := `Logged via chat: "` + text + `"`
		entry, err := s.weights.RecordPounds(ctx, sess.userID, a.Quantity.Value, a.Quantity.Unit, notes)
		if err != nil {
			log.Printf("[chat] recording weight failed: %v", err)
			meta.Error = true
			return s.message(domain.SenderAssistant, chatErrorText, meta)
		}
		meta.Weight = entry.Weight
		return s.message(domain.SenderAssistant,
			fmt.Sprintf("Great! I've recorded your weight as %.1f lbs. %s", entry.Weight, encouragements[s.pick(len(encouragements))]),
			meta)

	case intent.MealLog:
		est, err := s.meals.Analyze(text)
		if err != nil {
			meta.Error = true
			return s.message(domain.SenderAssistant, chatErrorText, meta)
		}
		meta.Calories = est.Calories
		meta.MealType = est.MealType
		meta.Description = est.Description
		meta.Pending = true
		msg := s.message(domain.SenderAssistant,
			fmt.Sprintf("I estimate that \"%s\" is approximately %d calories. Is this correct?", text, est.Calories),
			meta)
		s.mu.Lock()
		sess.pending = &pendingMeal{
			messageID:   msg.ID,
			userText:    text,
			description: est.Description,
			calories:    est.Calories,
			mealType:    est.MealType,
		}
		s.mu.Unlock()
		return msg

	case intent.NutritionQuestion:
		if s.responder == nil {
			return s.message(domain.SenderAssistant, chatQuestionText, meta)
		}
		reply, err := s.ask(ctx, sess, text)
		if err != nil {
			log.Printf("[chat] assistant failed: %v", err)
			meta.Error = true
			return s.message(domain.SenderAssistant, chatProviderText, meta)
		}
		meta.ShowRating = intent.OffersRating(text, reply)
		return s.message(domain.SenderAssistant, reply, meta)
	}
	return s.message(domain.SenderAssistant, chatClarifyText, meta)
}

func (s *ChatService) ask(ctx context.Context, sess *chatSession, text string) (string, error) {
	s.mu.RLock()
	threadID := sess.threadID
	s.mu.RUnlock()
	if threadID == "" {
		id, err := s.responder.CreateThread(ctx)
		if err != nil {
			return "", err
		}
		threadID = id
		s.mu.Lock()
		sess.threadID = id
		s.mu.Unlock()
	}
	reply, err := s.responder.Send(ctx, threadID, sess.personality, text)
	if err != nil {
		return "", err
	}
	return reply.Message, nil
}

// acquire marks the session busy. A session handles one turn at a time.
func (s *ChatService) acquire(userID int64, id string) (*chatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.userID != userID {
		return nil, fmt.Errorf("chat session %s: %w", id, domain.ErrNotFound)
	}
	if sess.busy {
		return nil, fmt.Errorf("%w: a message is already being processed", domain.ErrConflict)
	}
	sess.busy = true
	sess.lastActive = s.now().UTC()
	return sess, nil
}

func (s *ChatService) release(sess *chatSession) {
	s.mu.Lock()
	sess.busy = false
	sess.lastActive = s.now().UTC()
	s.mu.Unlock()
}

// clearPending drops an unanswered estimate. Callers hold s.mu.
func (s *ChatService) clearPending(sess *chatSession) {
	if sess.pending == nil {
		return
	}
	for i := range sess.messages {
		m := &sess.messages[i]
		if m.ID == sess.pending.messageID && m.Meta != nil {
			m.Meta.Pending = false
		}
	}
	sess.pending = nil
}

func (s *ChatService) message(sender domain.Sender, text string, meta *domain.MessageMeta) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: s.now().UTC(),
		Meta:      meta,
	}
}

func snapshot(sess *chatSession) ChatSession {
	msgs := make([]domain.Message, len(sess.messages))
	for i, m := range sess.messages {
		msgs[i] = copyMessage(m)
	}
	return ChatSession{
		ID:          sess.id,
		Personality: sess.personality,
		CreatedAt:   sess.createdAt,
		Messages:    msgs,
	}
}

func copyMessage(m domain.Message) domain.Message {
	if m.Meta != nil {
		meta := *m.Meta
		m.Meta = &meta
	}
	return m
}
