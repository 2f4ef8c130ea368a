package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrDone is returned when input arrives after onboarding has completed.
var ErrDone = errors.New("onboarding already complete")

// DashboardPath is where the client goes once onboarding is done.
const DashboardPath = "/dashboard"

// Completer persists the captured answers when the user confirms them.
type Completer interface {
	Complete(ctx context.Context, a Answers) error
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, a Answers) error

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, a Answers) error {
	return f(ctx, a)
}

// Step is the result of one user turn.
type Step struct {
	Replies  []string `json:"replies"`
	Slot     Slot     `json:"slot"`
	Done     bool     `json:"done"`
	Redirect string   `json:"redirect,omitempty"`
}

// Flow is a single onboarding conversation. It is not safe for concurrent
// use.
type Flow struct {
	slot    Slot
	answers Answers
}

// New returns a flow positioned on the height slot.
func New() *Flow {
	return &Flow{slot: SlotHeight}
}

// Start returns the opening messages: the welcome and the first question.
func (f *Flow) Start() Step {
	return Step{Replies: []string{welcomeText, f.Prompt()}, Slot: f.slot}
}

// Slot returns the current slot.
func (f *Flow) Slot() Slot { return f.slot }

// Answers returns the values captured so far.
func (f *Flow) Answers() Answers { return f.answers }

// Prompt returns the question for the current slot, or "" once done.
func (f *Flow) Prompt() string {
	def, ok := slots[f.slot]
	if !ok {
		return ""
	}
	return def.prompt(f.answers)
}

// Handle processes one user answer. A failed extraction replays the retry
// hint and the same question; a declined confirmation or a failed save
// clears the answers and starts again from height.
func (f *Flow) Handle(ctx context.Context, text string, c Completer) (Step, error) {
	if f.slot == SlotDone {
		return Step{Slot: f.slot, Done: true, Redirect: DashboardPath}, ErrDone
	}
	if f.slot == SlotConfirmation {
		return f.confirm(ctx, text, c)
	}

	def := slots[f.slot]
	ack, ok := def.capture(text, &f.answers)
	if !ok {
		if err := f.fire(EventInvalid); err != nil {
			return Step{}, err
		}
		return Step{Replies: []string{def.retry, f.Prompt()}, Slot: f.slot}, nil
	}
	if err := f.fire(EventValid); err != nil {
		return Step{}, err
	}
	return Step{Replies: []string{ack, f.Prompt()}, Slot: f.slot}, nil
}

func (f *Flow) confirm(ctx context.Context, text string, c Completer) (Step, error) {
	if !isAffirmative(text) {
		f.answers = Answers{}
		if err := f.fire(EventDeclined); err != nil {
			return Step{}, err
		}
		return Step{Replies: []string{restartText, f.Prompt()}, Slot: f.slot}, nil
	}

	if err := c.Complete(ctx, f.answers); err != nil {
		log.Printf("[onboarding] save failed: %v", err)
		f.answers = Answers{}
		if err := f.fire(EventSaveFailed); err != nil {
			return Step{}, err
		}
		return Step{Replies: []string{saveFailText, f.Prompt()}, Slot: f.slot}, nil
	}

	if err := f.fire(EventConfirmed); err != nil {
		return Step{}, err
	}
	return Step{Replies: []string{completeText}, Slot: f.slot, Done: true, Redirect: DashboardPath}, nil
}

func (f *Flow) fire(e Event) error {
	to, ok := Next(f.slot, e)
	if !ok {
		return fmt.Errorf("onboarding: no transition from %s on event %d", f.slot, e)
	}
	f.slot = to
	return nil
}
