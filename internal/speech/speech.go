// Package speech defines the optional speech-recognition capability and a
// bridge that turns final transcripts into chat turns.
package speech

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
)

// ErrUnavailable is returned when no recognizer is configured.
var ErrUnavailable = errors.New("speech recognition unavailable")

// Recognizer is a platform speech-to-text engine.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	OnResult(func(text string))
	OnError(func(code string))
}

// Factory builds a recognizer for one client connection. A nil Factory
// means speech input is disabled.
type Factory func() (Recognizer, error)

// Bridge forwards final transcripts from a recognizer to a turn handler.
type Bridge struct {
	rec    Recognizer
	handle func(ctx context.Context, text string)
	fail   func(code string)

	mu        sync.Mutex
	listening bool
}

// NewBridge wires rec to handle. fail, if non-nil, receives recognizer
// error codes. A nil factory yields ErrUnavailable.
func NewBridge(f Factory, handle func(ctx context.Context, text string), fail func(code string)) (*Bridge, error) {
	if f == nil {
		return nil, ErrUnavailable
	}
	rec, err := f()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrUnavailable
	}
	return &Bridge{rec: rec, handle: handle, fail: fail}, nil
}

// Listen starts the recognizer. Transcripts arriving while ctx is live are
// passed to the handler; blank transcripts are dropped.
func (b *Bridge) Listen(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listening {
		return nil
	}

	b.rec.OnResult(func(text string) {
		text = strings.TrimSpace(text)
		if text == "" || ctx.Err() != nil {
			return
		}
		b.handle(ctx, text)
	})
	b.rec.OnError(func(code string) {
		log.Printf("[speech] recognizer error: %s", code)
		if b.fail != nil {
			b.fail(code)
		}
	})

	if err := b.rec.Start(ctx); err != nil {
		return err
	}
	b.listening = true
	return nil
}

// Listening reports whether the recognizer is running.
func (b *Bridge) Listening() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listening
}

// Close stops the recognizer if it is running.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.listening {
		return nil
	}
	b.listening = false
	return b.rec.Stop()
}
