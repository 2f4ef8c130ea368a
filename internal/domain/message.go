package domain

import "time"

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one rendered conversation turn.
type Message struct {
	ID        string       `json:"id"`
	Sender    Sender       `json:"sender"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Meta      *MessageMeta `json:"metadata,omitempty"`
}

// MessageMeta is optional structured data attached to a message.
type MessageMeta struct {
	Intent      string   `json:"intent,omitempty"`
	Calories    int      `json:"calories,omitempty"`
	MealType    MealType `json:"mealType,omitempty"`
	Description string   `json:"description,omitempty"`
	// Pending is set on a meal estimate awaiting accept/adjust.
	Pending    bool    `json:"pending,omitempty"`
	Confirmed  bool    `json:"confirmed,omitempty"`
	MealID     int64   `json:"mealId,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
	ShowRating bool    `json:"showRating,omitempty"`
	Rated      bool    `json:"rated,omitempty"`
	Rating     int     `json:"rating,omitempty"`
	Error      bool    `json:"error,omitempty"`
	Redirect   string  `json:"redirect,omitempty"`
}
