package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"autotrade_go/internal/domain"
	"autotrade_go/internal/infra"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// generator is the part of an eino chat model the trader needs.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Client sends one system+user exchange to a chat model. No retries, no streaming.
type Client struct {
	model    generator
	provider string
	name     string
	logger   *slog.Logger
}

// NewClient builds the chat model selected by llm.provider.
func NewClient(ctx context.Context, cfg *infra.Config) (*Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm %s: %w", cfg.LLM.Provider, domain.ErrMissingCredentials)
	}

	var (
		m   generator
		err error
	)
	switch cfg.LLM.Provider {
	case infra.ProviderDeepSeek:
		m, err = deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		})
	default:
		maxTokens := cfg.LLM.MaxTokens
		m, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: &maxTokens,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s chat model: %w", cfg.LLM.Provider, err)
	}

	return newClient(m, cfg.LLM.Provider, cfg.LLM.Model), nil
}

func newClient(m generator, provider, name string) *Client {
	return &Client{
		model:    m,
		provider: provider,
		name:     name,
		logger:   slog.Default().With("module", "llm"),
	}
}

// Complete returns the raw text of the model's reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	msg, err := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", domain.NewNetworkError("llm.generate", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("llm %s: %w", c.provider, domain.ErrEmptyResponse)
	}

	c.logger.Debug("🤖 Completion received",
		slog.String("model", c.name),
		slog.Int("chars", len(msg.Content)),
		slog.Duration("latency", time.Since(start)),
	)
	return msg.Content, nil
}
