package analyses

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateReport   = errors.New("report already exists for analysis")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAnalysisTerminal  = errors.New("analysis is already terminal")
	ErrInvalidInput      = errors.New("invalid input")
)
