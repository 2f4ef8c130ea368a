package assistant

import (
	"context"
	"errors"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// ArkConfig selects a Volcengine Ark chat model.
type ArkConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
}

// Enabled reports whether enough is configured to build a model.
func (c ArkConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewArkChatModel builds the Ark chat model used by EinoResponder.
func NewArkChatModel(ctx context.Context, c ArkConfig) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark api key and model are required")
	}

	var temperature *float32
	if c.Temperature != nil {
		v := float32(*c.Temperature)
		temperature = &v
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: temperature,
	})
}
