package analyses

import "context"

// Store persists analyses and their reports.
//
// AppendReport fails with ErrDuplicateReport when a report of the same type
// exists and with ErrAnalysisTerminal once the analysis is completed or failed.
// SetStatus enforces CanTransition and refuses completion until every type in
// ReportTypes has been appended; both fail with ErrInvalidTransition.
type Store interface {
	CreateAnalysis(ctx context.Context, in NewAnalysis) (Analysis, error)
	AppendReport(ctx context.Context, analysisID string, in ReportInput) (Report, error)
	SetStatus(ctx context.Context, analysisID, status string, errorMessage *string) error
	GetAnalysisWithReports(ctx context.Context, analysisID string) (AnalysisWithReports, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
}
