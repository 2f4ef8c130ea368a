// Package assistant talks to hosted LLM assistants. Client drives the
// Assistants thread/run API with a bounded poll; EinoResponder runs a chat
// model through an eino chain.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"niblet/internal/domain"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultMaxAttempts = 60

	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Reply is the assistant's answer to one message.
type Reply struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

// Responder is anything that can hold a conversation thread.
type Responder interface {
	CreateThread(ctx context.Context) (string, error)
	Send(ctx context.Context, threadID, personality, message string) (Reply, error)
}

// ProviderError is a failure reported by the assistant provider.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("assistant provider: status %d: %s", e.Status, e.Message)
	}
	return "assistant provider: " + e.Message
}

func (e *ProviderError) Unwrap() error { return domain.ErrProvider }

// PersonalityPrefix tags message with the personality the assistant should
// adopt. An empty personality leaves the message unchanged.
func PersonalityPrefix(personality, message string) string {
	if personality == "" {
		return message
	}
	return fmt.Sprintf("[Use %s personality] %s", personality, message)
}

// Backoff returns the wait before poll attempt n (0-based).
func Backoff(n int) time.Duration {
	d := initialBackoff
	for i := 0; i < n && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	AssistantID string
	MaxAttempts int
	Timeout     time.Duration
}

// Client implements Responder against the Assistants v2 HTTP API.
type Client struct {
	apiKey      string
	baseURL     string
	assistantID string
	maxAttempts int
	httpClient  *http.Client
	sleep       func(ctx context.Context, d time.Duration) error
}

var errMissingAssistant = errors.New("assistant api key and assistant id are required")

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.AssistantID == "" {
		return nil, errMissingAssistant
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		assistantID: cfg.AssistantID,
		maxAttempts: attempts,
		httpClient:  &http.Client{Timeout: timeout},
		sleep:       sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type run struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Message string `json:"message"`
	} `json:"last_error"`
}

func (r run) terminal() bool {
	switch r.Status {
	case "completed", "failed", "cancelled", "expired":
		return true
	}
	return false
}

type threadMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text *struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"content"`
}

// CreateThread starts a new conversation thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Send posts message to the thread, runs the assistant and waits for the
// run to finish.
func (c *Client) Send(ctx context.Context, threadID, personality, message string) (Reply, error) {
	if threadID == "" {
		return Reply{}, domain.Validationf("thread id is required")
	}
	if strings.TrimSpace(message) == "" {
		return Reply{}, domain.Validationf("message is required")
	}

	msgBody := map[string]string{"role": "user", "content": PersonalityPrefix(personality, message)}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", msgBody, nil); err != nil {
		return Reply{}, err
	}

	var r run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", map[string]string{"assistant_id": c.assistantID}, &r); err != nil {
		return Reply{}, err
	}
	if err := c.wait(ctx, threadID, &r); err != nil {
		return Reply{}, err
	}
	return c.latestReply(ctx, threadID)
}

func (c *Client) wait(ctx context.Context, threadID string, r *run) error {
	runPath := "/threads/" + threadID + "/runs/" + r.ID
	if err := c.do(ctx, http.MethodGet, runPath, nil, r); err != nil {
		return err
	}
	for attempt := 0; attempt < c.maxAttempts && !r.terminal(); attempt++ {
		if err := c.sleep(ctx, Backoff(attempt)); err != nil {
			return err
		}
		if err := c.do(ctx, http.MethodGet, runPath, nil, r); err != nil {
			return err
		}
	}

	switch {
	case r.Status == "completed":
		return nil
	case r.terminal():
		msg := "Run " + r.Status
		if r.LastError != nil && r.LastError.Message != "" {
			msg = r.LastError.Message
		}
		return &ProviderError{Message: msg}
	}
	log.Printf("[assistant] run %s still %q after %d polls", r.ID, r.Status, c.maxAttempts)
	return &ProviderError{Message: "Assistant run timed out"}
}

func (c *Client) latestReply(ctx context.Context, threadID string) (Reply, error) {
	var list struct {
		Data []threadMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages?order=desc", nil, &list); err != nil {
		return Reply{}, err
	}
	for _, m := range list.Data {
		if m.Role != "assistant" {
			continue
		}
		for _, part := range m.Content {
			if part.Type == "text" && part.Text != nil {
				return Reply{Message: part.Text.Value, MessageID: m.ID}, nil
			}
		}
	}
	return Reply{}, &ProviderError{Message: "No assistant message found"}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", domain.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Status: resp.StatusCode, Message: providerMessage(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func providerMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
