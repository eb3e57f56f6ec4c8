package analyses

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRecord struct {
	seq      int
	analysis Analysis
	reports  []Report
}

// MemoryStore stores analyses in memory and is safe for concurrent use.
type MemoryStore struct {
	Now func() time.Time

	mu   sync.RWMutex
	seq  int
	byID map[string]*memoryRecord
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*memoryRecord)}
}

// CreateAnalysis stores a new pending analysis.
func (s *MemoryStore) CreateAnalysis(ctx context.Context, in NewAnalysis) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	if err := validateNew(in); err != nil {
		return Analysis{}, err
	}
	now := s.now()
	a := Analysis{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		Metadata:    in.Metadata,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.byID[a.ID] = &memoryRecord{seq: s.seq, analysis: a}
	return a, nil
}

// AppendReport attaches a report to a non-terminal analysis.
func (s *MemoryStore) AppendReport(ctx context.Context, analysisID string, in ReportInput) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	score, err := toFraction(in)
	if err != nil {
		return Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[analysisID]
	if !ok {
		return Report{}, ErrNotFound
	}
	if IsTerminal(rec.analysis.Status) {
		return Report{}, ErrAnalysisTerminal
	}
	for _, r := range rec.reports {
		if r.Type == in.Type {
			return Report{}, ErrDuplicateReport
		}
	}
	r := Report{
		ID:         uuid.NewString(),
		AnalysisID: analysisID,
		Type:       in.Type,
		Content:    in.Content,
		Score:      score,
		Summary:    in.Summary,
		Details:    copyDetails(in.Details),
		CreatedAt:  s.now(),
	}
	rec.reports = append(rec.reports, r)
	return r, nil
}

// SetStatus moves the analysis along the status lattice.
func (s *MemoryStore) SetStatus(ctx context.Context, analysisID, status string, errorMessage *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(rec.analysis.Status, status) {
		return ErrInvalidTransition
	}
	if status == StatusCompleted {
		types := make([]string, 0, len(rec.reports))
		for _, r := range rec.reports {
			types = append(types, r.Type)
		}
		if !hasAllReports(types) {
			return ErrInvalidTransition
		}
	}

	now := s.now()
	a := rec.analysis
	a.Status = status
	a.UpdatedAt = now
	switch status {
	case StatusProcessing:
		a.StartedAt = &now
	case StatusCompleted, StatusFailed:
		a.CompletedAt = &now
		if errorMessage != nil {
			msg := *errorMessage
			a.ErrorMessage = &msg
		}
	}
	rec.analysis = a
	return nil
}

// GetAnalysisWithReports returns a snapshot of the analysis and its reports.
func (s *MemoryStore) GetAnalysisWithReports(ctx context.Context, analysisID string) (AnalysisWithReports, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisWithReports{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[analysisID]
	if !ok {
		return AnalysisWithReports{}, ErrNotFound
	}
	reports := make([]Report, len(rec.reports))
	for i, r := range rec.reports {
		r.Details = copyDetails(r.Details)
		reports[i] = r
	}
	return AnalysisWithReports{Analysis: rec.analysis, Reports: reports}, nil
}

// ListByUser returns analyses for a user, newest first, with limit/offset.
func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	s.mu.RLock()
	recs := make([]*memoryRecord, 0)
	for _, rec := range s.byID {
		if rec.analysis.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].analysis.CreatedAt.Equal(recs[j].analysis.CreatedAt) {
			return recs[i].analysis.CreatedAt.After(recs[j].analysis.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})
	out := make([]Analysis, 0, limit)
	for i := offset; i < len(recs) && len(out) < limit; i++ {
		out = append(out, recs[i].analysis)
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func copyDetails(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
