package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"patent-backend/internal/llm"
	"patent-backend/internal/upstream"
)

const (
	ProviderName = "anthropic"
	DefaultModel = "claude-sonnet-4-20250514"
	maxTokens    = 2048
)

// Messager is the subset of the Anthropic messages service used by Client.
type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Client implements llm.Generator on the Anthropic Messages API.
type Client struct {
	messages Messager
	model    string
}

// NewClient constructs a client authenticated with apiKey.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, model), nil
}

// New wraps an existing messages service.
func New(messages Messager, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{messages: messages, model: model}
}

// Name returns the provider name recorded in the usage ledger.
func (c *Client) Name() string { return ProviderName }

// Generate sends prompt as a single user turn and joins the text blocks of the reply.
func (c *Client) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: llm.SystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return llm.Completion{}, serviceError(err)
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return llm.Completion{
		Text:       sb.String(),
		TokensUsed: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}

func serviceError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &upstream.ServiceError{Provider: ProviderName, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &upstream.ServiceError{Provider: ProviderName, Err: err}
}
