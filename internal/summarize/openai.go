// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// ChatBackend is the Backend over an eino chat model.
type ChatBackend struct {
	model model.BaseChatModel
}

// NewChatBackend wraps an existing chat model.
func NewChatBackend(m model.BaseChatModel) *ChatBackend {
	return &ChatBackend{model: m}
}

// NewOpenAIBackend builds a ChatBackend for an OpenAI-compatible endpoint.
func NewOpenAIBackend(ctx context.Context, cfg types.SummarizerConfig, apiKey string) (*ChatBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("summarization API key is not set")
	}
	cfg = WithDefaults(cfg)
	temp := cfg.Temperature
	maxTokens := cfg.MaxTokens

	m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}
	return &ChatBackend{model: m}, nil
}

// Generate sends the system role and the instruction as one exchange and
// returns the reply text.
func (b *ChatBackend) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: prompt},
	}
	resp, err := b.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil {
		return "", errEmptyResponse
	}
	return resp.Content, nil
}
