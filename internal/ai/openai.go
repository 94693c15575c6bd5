package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-events/internal/config"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrNotConfigured = errors.New("AI helper is not configured")

// Completer sends one system+user prompt pair and returns the raw reply
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type OpenAICompleter struct {
	client openai.Client
	model  string
}

func NewOpenAICompleter(cfg config.AIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	return &OpenAICompleter{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
