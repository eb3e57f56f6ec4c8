// Package upstream holds the error taxonomy shared by clients of external
// search and generative-text providers.
package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrService matches any *ServiceError.
	ErrService = errors.New("upstream service error")
	// ErrFormat matches any *FormatError.
	ErrFormat = errors.New("upstream format error")
)

// ServiceError reports a network failure or a non-2xx response from a provider.
// Error returns the provider's message verbatim when one was supplied.
type ServiceError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.StatusCode != 0:
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s request failed", e.Provider)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// FormatError reports a provider response that does not match the expected schema.
type FormatError struct {
	Provider string
	Stage    string
	Reason   string
	Raw      string
}

func (e *FormatError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("invalid %s response from %s: %s", e.Stage, e.Provider, e.Reason)
	}
	return fmt.Sprintf("invalid response from %s: %s", e.Provider, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }
