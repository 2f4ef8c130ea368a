package onboarding

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"niblet/internal/domain"
)

type recordingCompleter struct {
	got   *Answers
	calls int
	err   error
}

func (r *recordingCompleter) Complete(_ context.Context, a Answers) error {
	r.calls++
	r.got = &a
	return r.err
}

func feed(t *testing.T, f *Flow, c Completer, inputs ...string) Step {
	t.Helper()
	var step Step
	for _, in := range inputs {
		var err error
		step, err = f.Handle(context.Background(), in, c)
		if err != nil {
			t.Fatalf("Handle(%q): %v", in, err)
		}
	}
	return step
}

func TestStart(t *testing.T) {
	f := New()
	step := f.Start()
	if len(step.Replies) != 2 {
		t.Fatalf("expected welcome and question, got %v", step.Replies)
	}
	if !strings.HasPrefix(step.Replies[0], "hi there! i'm nibble") {
		t.Errorf("unexpected welcome %q", step.Replies[0])
	}
	if step.Replies[1] != "what's your height in inches?" {
		t.Errorf("unexpected first prompt %q", step.Replies[1])
	}
	if f.Slot() != SlotHeight {
		t.Errorf("slot = %s", f.Slot())
	}
}

func TestInvalidAnswerReplaysPrompt(t *testing.T) {
	f := New()
	prompt := f.Prompt()
	step := feed(t, f, &recordingCompleter{}, "abc")

	if f.Slot() != SlotHeight {
		t.Fatalf("slot advanced to %s", f.Slot())
	}
	want := []string{"i didn't catch that. please enter your height in inches (e.g., 70).", prompt}
	if !reflect.DeepEqual(step.Replies, want) {
		t.Errorf("replies = %q; want %q", step.Replies, want)
	}
}

func TestSlotValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
		input string
		slot  Slot
		ok    bool
	}{
		{"height zero", nil, "0", SlotHeight, false},
		{"height ok", nil, "70", SlotHeight, true},
		{"weight words", []string{"70"}, "heavy", SlotWeight, false},
		{"age too old", []string{"70", "180"}, "120", SlotAge, false},
		{"age ok", []string{"70", "180"}, "119", SlotAge, true},
		{"age below one", []string{"70", "180"}, "0.5", SlotAge, false},
		{"age one", []string{"70", "180"}, "1", SlotAge, true},
		{"gender unknown", []string{"70", "180", "30"}, "banana", SlotGender, false},
		{"gender prefer", []string{"70", "180", "30"}, "prefer not to say", SlotGender, true},
		{"goal missing", []string{"70", "180", "30", "male"}, "less", SlotGoalWeight, false},
		{"activity always", []string{"70", "180", "30", "male", "170"}, "whatever", SlotActivity, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := New()
			feed(t, f, &recordingCompleter{}, tc.setup...)
			if f.Slot() != tc.slot {
				t.Fatalf("setup left slot at %s; want %s", f.Slot(), tc.slot)
			}
			feed(t, f, &recordingCompleter{}, tc.input)
			advanced := f.Slot() != tc.slot
			if advanced != tc.ok {
				t.Errorf("advanced = %v; want %v (slot now %s)", advanced, tc.ok, f.Slot())
			}
		})
	}
}

func TestGenderAndActivityMapping(t *testing.T) {
	genders := map[string]string{
		"Male":              "male",
		"i'm female":        "female",
		"other":             "other",
		"prefer not to say": "other",
	}
	for in, want := range genders {
		got, ok := parseGender(in)
		if !ok || got != want {
			t.Errorf("parseGender(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	activities := map[string]domain.ActivityLevel{
		"mostly sedentary":  domain.Sedentary,
		"not active at all": domain.Sedentary,
		"lightly active":    domain.Light,
		"moderately active": domain.Moderate,
		"very active":       domain.VeryActive,
		"intense training":  domain.VeryActive,
		"no idea":           domain.Moderate,
	}
	for in, want := range activities {
		if got := parseActivity(in); got != want {
			t.Errorf("parseActivity(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestHappyPathCompletes(t *testing.T) {
	f := New()
	c := &recordingCompleter{}
	step := feed(t, f, c, "70", "180", "34", "female", "160", "lightly active")

	if f.Slot() != SlotConfirmation {
		t.Fatalf("slot = %s; want confirmation", f.Slot())
	}
	summary := step.Replies[len(step.Replies)-1]
	for _, part := range []string{"height: 70 inches", "weight: 180 lbs", "age: 34", "gender: female", "goal weight: 160 lbs", "activity level: light"} {
		if !strings.Contains(summary, part) {
			t.Errorf("summary missing %q:\n%s", part, summary)
		}
	}

	step = feed(t, f, c, "yes that looks right")
	if !step.Done || step.Redirect != DashboardPath {
		t.Fatalf("expected done with redirect, got %+v", step)
	}
	if c.calls != 1 {
		t.Fatalf("completer called %d times", c.calls)
	}
	want := Answers{Height: 70, Weight: 180, Age: 34, Gender: "female", GoalWeight: 160, ActivityLevel: domain.Light}
	if *c.got != want {
		t.Errorf("completed with %+v; want %+v", *c.got, want)
	}

	if _, err := f.Handle(context.Background(), "hello?", c); !errors.Is(err, ErrDone) {
		t.Errorf("expected ErrDone after completion, got %v", err)
	}
}

func TestDeclinedConfirmationRestarts(t *testing.T) {
	f := New()
	c := &recordingCompleter{}
	feed(t, f, c, "70", "180", "34", "male", "170", "moderate")

	step := feed(t, f, c, "no that's wrong")
	if f.Slot() != SlotHeight {
		t.Fatalf("slot = %s; want height", f.Slot())
	}
	if step.Replies[0] != restartText || step.Replies[1] != "what's your height in inches?" {
		t.Errorf("unexpected replies %q", step.Replies)
	}
	if f.Answers() != (Answers{}) {
		t.Errorf("answers not cleared: %+v", f.Answers())
	}
	if c.calls != 0 {
		t.Error("completer must not run on decline")
	}
}

func TestSaveFailureRestarts(t *testing.T) {
	f := New()
	c := &recordingCompleter{err: errors.New("db down")}
	feed(t, f, c, "70", "180", "34", "male", "170", "moderate")

	step := feed(t, f, c, "yes")
	if f.Slot() != SlotHeight {
		t.Fatalf("slot = %s; want height", f.Slot())
	}
	if step.Done {
		t.Error("step must not be done after a failed save")
	}
	if step.Replies[0] != saveFailText {
		t.Errorf("unexpected reply %q", step.Replies[0])
	}
}

func TestTransitionTableIsComplete(t *testing.T) {
	for s := SlotHeight; s < SlotConfirmation; s++ {
		if _, ok := Next(s, EventValid); !ok {
			t.Errorf("%s has no valid edge", s)
		}
	}
	for _, e := range []Event{EventConfirmed, EventDeclined, EventSaveFailed} {
		if _, ok := Next(SlotConfirmation, e); !ok {
			t.Errorf("confirmation missing edge %d", e)
		}
	}
	if _, ok := Next(SlotDone, EventValid); ok {
		t.Error("done must be terminal")
	}
}
