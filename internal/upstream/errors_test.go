package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestServiceErrorMessageIsVerbatim(t *testing.T) {
	err := &ServiceError{Provider: "gemini", StatusCode: 500, Message: "Internal error encountered."}
	if err.Error() != "Internal error encountered." {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	wrapped := fmt.Errorf("utility: %w", err)
	if !errors.Is(wrapped, ErrService) {
		t.Fatalf("expected errors.Is ErrService")
	}
	if errors.Is(wrapped, ErrFormat) {
		t.Fatalf("service error must not match ErrFormat")
	}
	var se *ServiceError
	if !errors.As(wrapped, &se) || se.StatusCode != 500 {
		t.Fatalf("expected errors.As to recover status")
	}
}

func TestServiceErrorFallbacks(t *testing.T) {
	cause := &ServiceError{Provider: "serpapi", Err: context.DeadlineExceeded}
	if cause.Error() != context.DeadlineExceeded.Error() {
		t.Fatalf("unexpected message: %q", cause.Error())
	}
	if !errors.Is(cause, context.DeadlineExceeded) {
		t.Fatalf("expected Unwrap to expose cause")
	}
	bare := &ServiceError{Provider: "serpapi", StatusCode: 401}
	if bare.Error() != "serpapi returned status 401" {
		t.Fatalf("unexpected message: %q", bare.Error())
	}
}

func TestFormatError(t *testing.T) {
	err := &FormatError{Provider: "gemini", Stage: "novelty", Reason: "score missing"}
	if err.Error() != "invalid novelty response from gemini: score missing" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(fmt.Errorf("wrap: %w", err), ErrFormat) {
		t.Fatalf("expected errors.Is ErrFormat")
	}
}
