package anthropic

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"patent-backend/internal/upstream"
)

type mockMessager struct {
	params   anthropic.MessageNewParams
	response *anthropic.Message
	err      error
}

func (m *mockMessager) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.response, m.err
}

func TestGenerateJoinsTextBlocks(t *testing.T) {
	mock := &mockMessager{response: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: `{"analysis":"实用",`},
			{Type: "text", Text: `"score":90,"industrial_applicability":true}`},
		},
		Usage: anthropic.Usage{InputTokens: 200, OutputTokens: 50},
	}}
	client := New(mock, "")

	out, err := client.Generate(context.Background(), "评估实用性")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Text != `{"analysis":"实用","score":90,"industrial_applicability":true}` {
		t.Fatalf("unexpected text: %q", out.Text)
	}
	if out.TokensUsed != 250 {
		t.Fatalf("expected 250 tokens, got %d", out.TokensUsed)
	}
	if string(mock.params.Model) != DefaultModel {
		t.Fatalf("unexpected model: %s", mock.params.Model)
	}
}

func TestGenerateWrapsErrors(t *testing.T) {
	client := New(&mockMessager{err: errors.New("overloaded_error: Overloaded")}, "claude-x")
	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, upstream.ErrService) {
		t.Fatalf("expected service error, got %v", err)
	}
	if err.Error() != "overloaded_error: Overloaded" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
