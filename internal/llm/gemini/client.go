package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"patent-backend/internal/llm"
	"patent-backend/internal/upstream"
)

const (
	ProviderName = "gemini"
	DefaultModel = "gemini-2.0-flash"
)

// ContentGenerator is the subset of *genai.Models used by Client.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Generator on the Gemini generateContent API.
type Client struct {
	models ContentGenerator
	model  string
}

// NewClient creates a Gemini client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return New(client.Models, model), nil
}

// New wraps an existing content generator.
func New(models ContentGenerator, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model}
}

// Name returns the provider name recorded in the usage ledger.
func (c *Client) Name() string { return ProviderName }

// Generate sends prompt and returns the concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(llm.SystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		return llm.Completion{}, serviceError(err)
	}

	out := llm.Completion{Text: responseText(resp)}
	if resp != nil && resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func serviceError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &upstream.ServiceError{
			Provider:   ProviderName,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return &upstream.ServiceError{Provider: ProviderName, Err: err}
}
