package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"patent-backend/internal/llm"
	"patent-backend/internal/upstream"
)

const (
	ProviderName = "openai"
	DefaultModel = "gpt-4o-mini"
	maxTokens    = 2048
)

// Client implements llm.Generator using OpenAI Chat Completions.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient constructs a new OpenAI client. baseURL may point at any compatible endpoint.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Name returns the provider name recorded in the usage ledger.
func (c *Client) Name() string { return ProviderName }

// Generate requests a JSON-object completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// Reasoning models reject max_tokens.
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = 0.2
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return llm.Completion{}, serviceError(err)
	}
	if len(resp.Choices) == 0 {
		return llm.Completion{}, &upstream.FormatError{Provider: ProviderName, Reason: "no choices in response"}
	}
	return llm.Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func serviceError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &upstream.ServiceError{
			Provider:   ProviderName,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &upstream.ServiceError{
			Provider:   ProviderName,
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}
	return &upstream.ServiceError{Provider: ProviderName, Err: err}
}
