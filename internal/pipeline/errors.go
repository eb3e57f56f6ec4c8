package pipeline

import (
	"fmt"
	"strings"
)

const (
	StageCreate        = "create"
	StageNovelty       = "novelty"
	StageInventiveness = "inventiveness"
	StageUtility       = "utility"
	StageComprehensive = "comprehensive"
	StageComplete      = "complete"
)

// ValidationError reports missing request fields. No analysis is created.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// StageError wraps the failure that stopped a run. Err is the triggering error
// and its text is what the analysis record stores as error_message.
type StageError struct {
	Stage      string
	AnalysisID string
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = strings.ToValidUTF8(msg[:maxLen], "")
	}
	return msg
}
