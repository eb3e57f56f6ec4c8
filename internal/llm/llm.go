// Package llm defines the generative-text contract used by the scoring stages.
package llm

import "context"

// Completion is the raw text a provider produced for one prompt.
type Completion struct {
	Text       string
	TokensUsed int
}

// Generator sends one prompt to a provider and returns its text response.
// Implementations return *upstream.ServiceError for transport and non-2xx failures.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Completion, error)
	Name() string
}

// SystemPrompt is sent to providers that accept a separate system instruction.
const SystemPrompt = "你是一名资深专利审查员。只返回严格符合要求的 JSON，不要包含任何其他文字。"
