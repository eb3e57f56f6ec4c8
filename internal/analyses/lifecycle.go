package analyses

import (
	"fmt"
	"math"
	"strings"
)

// CanTransition reports whether status may move from one value to the next.
// The lattice is pending -> processing -> {completed, failed}.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible from status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// IsReportType reports whether t is one of ReportTypes.
func IsReportType(t string) bool {
	for _, rt := range ReportTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// OwnedBy reports whether a belongs to userID. An empty userID matches any owner.
func OwnedBy(a Analysis, userID string) bool {
	return userID == "" || a.UserID == userID
}

func validateNew(in NewAnalysis) error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return nil
}

// toFraction validates a report input and converts its 0-100 score to the stored 0-1 fraction.
func toFraction(in ReportInput) (float64, error) {
	if !IsReportType(in.Type) {
		return 0, fmt.Errorf("%w: unknown report type %q", ErrInvalidInput, in.Type)
	}
	p := in.ScorePercent
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, fmt.Errorf("%w: score %v is outside 0-100", ErrInvalidInput, p)
	}
	return p / 100, nil
}

func hasAllReports(types []string) bool {
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		seen[t] = true
	}
	for _, rt := range ReportTypes {
		if !seen[rt] {
			return false
		}
	}
	return true
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
