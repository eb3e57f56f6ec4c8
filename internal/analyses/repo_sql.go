package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"patent-backend/internal/shared/storage/db"
)

// SQLStore implements Store on Postgres (pgx) or SQLite.
type SQLStore struct {
	DB  *sqlx.DB
	Now func() time.Time
}

type analysisRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Metadata     string         `db:"metadata"`
	Status       string         `db:"status"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    db.Time        `db:"created_at"`
	StartedAt    db.Time        `db:"started_at"`
	CompletedAt  db.Time        `db:"completed_at"`
	UpdatedAt    db.Time        `db:"updated_at"`
}

type reportRow struct {
	ID         string         `db:"id"`
	AnalysisID string         `db:"analysis_id"`
	Type       string         `db:"report_type"`
	Content    string         `db:"content"`
	Score      float64        `db:"score"`
	Summary    sql.NullString `db:"summary"`
	Details    sql.NullString `db:"details"`
	CreatedAt  db.Time        `db:"created_at"`
}

const analysisColumns = `id, user_id, title, description, metadata, status, error_message,
       created_at, started_at, completed_at, updated_at`

// CreateAnalysis inserts a new pending analysis.
func (s *SQLStore) CreateAnalysis(ctx context.Context, in NewAnalysis) (Analysis, error) {
	if err := validateNew(in); err != nil {
		return Analysis{}, err
	}
	meta, err := json.Marshal(in.Metadata)
	if err != nil {
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
	query := s.DB.Rebind(`
INSERT INTO patent_analyses (id, user_id, title, description, metadata, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.DB.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Title,
		a.Description,
		string(meta),
		a.Status,
		db.Timestamp(a.CreatedAt),
		db.Timestamp(a.UpdatedAt),
	)
	if err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// AppendReport inserts a report inside a transaction that first locks the parent analysis.
func (s *SQLStore) AppendReport(ctx context.Context, analysisID string, in ReportInput) (Report, error) {
	score, err := toFraction(in)
	if err != nil {
		return Report{}, err
	}
	if !validID(analysisID) {
		return Report{}, ErrNotFound
	}
	var details any
	if in.Details != nil {
		payload, err := json.Marshal(in.Details)
		if err != nil {
			return Report{}, err
		}
		details = string(payload)
	}
	var summary any
	if in.Summary != "" {
		summary = in.Summary
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return Report{}, err
	}
	defer tx.Rollback()

	status, err := s.lockStatus(ctx, tx, analysisID)
	if err != nil {
		return Report{}, err
	}
	if IsTerminal(status) {
		return Report{}, ErrAnalysisTerminal
	}

	var existing int
	if err := tx.GetContext(ctx, &existing, tx.Rebind(`SELECT COUNT(*) FROM analysis_reports WHERE analysis_id = ? AND report_type = ?`), analysisID, in.Type); err != nil {
		return Report{}, err
	}
	if existing > 0 {
		return Report{}, ErrDuplicateReport
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
	insert := tx.Rebind(`
INSERT INTO analysis_reports (id, analysis_id, report_type, content, score, summary, details, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert,
		r.ID,
		r.AnalysisID,
		r.Type,
		r.Content,
		r.Score,
		summary,
		details,
		db.Timestamp(r.CreatedAt),
	); err != nil {
		if db.IsUniqueViolation(err) {
			return Report{}, ErrDuplicateReport
		}
		return Report{}, err
	}
	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			return Report{}, ErrDuplicateReport
		}
		return Report{}, err
	}
	return r, nil
}

// SetStatus applies a lattice transition inside a transaction.
func (s *SQLStore) SetStatus(ctx context.Context, analysisID, status string, errorMessage *string) error {
	if !validID(analysisID) {
		return ErrNotFound
	}
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current, err := s.lockStatus(ctx, tx, analysisID)
	if err != nil {
		return err
	}
	if !CanTransition(current, status) {
		return ErrInvalidTransition
	}
	if status == StatusCompleted {
		var types []string
		if err := tx.SelectContext(ctx, &types, tx.Rebind(`SELECT report_type FROM analysis_reports WHERE analysis_id = ?`), analysisID); err != nil {
			return err
		}
		if !hasAllReports(types) {
			return ErrInvalidTransition
		}
	}

	now := db.Timestamp(s.now())
	var query string
	var args []any
	switch status {
	case StatusProcessing:
		query = `UPDATE patent_analyses SET status = ?, started_at = ?, updated_at = ? WHERE id = ?`
		args = []any{status, now, now, analysisID}
	default:
		var msg any
		if errorMessage != nil {
			msg = *errorMessage
		}
		query = `UPDATE patent_analyses SET status = ?, error_message = ?, completed_at = ?, updated_at = ? WHERE id = ?`
		args = []any{status, msg, now, now, analysisID}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// GetAnalysisWithReports loads an analysis and its reports in insertion order.
func (s *SQLStore) GetAnalysisWithReports(ctx context.Context, analysisID string) (AnalysisWithReports, error) {
	if !validID(analysisID) {
		return AnalysisWithReports{}, ErrNotFound
	}
	var row analysisRow
	query := s.DB.Rebind(`SELECT ` + analysisColumns + ` FROM patent_analyses WHERE id = ?`)
	if err := s.DB.GetContext(ctx, &row, query, analysisID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisWithReports{}, ErrNotFound
		}
		return AnalysisWithReports{}, err
	}
	a, err := row.toAnalysis()
	if err != nil {
		return AnalysisWithReports{}, err
	}

	var rows []reportRow
	query = s.DB.Rebind(`
SELECT id, analysis_id, report_type, content, score, summary, details, created_at
FROM analysis_reports
WHERE analysis_id = ?
ORDER BY created_at ASC,
	CASE report_type
		WHEN 'novelty' THEN 1
		WHEN 'inventiveness' THEN 2
		WHEN 'utility' THEN 3
		ELSE 4
	END`)
	if err := s.DB.SelectContext(ctx, &rows, query, analysisID); err != nil {
		return AnalysisWithReports{}, err
	}
	reports := make([]Report, 0, len(rows))
	for _, rr := range rows {
		r, err := rr.toReport()
		if err != nil {
			return AnalysisWithReports{}, err
		}
		reports = append(reports, r)
	}
	return AnalysisWithReports{Analysis: a, Reports: reports}, nil
}

// ListByUser lists analyses for a user ordered newest-first.
func (s *SQLStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	limit, offset = normalizePage(limit, offset)
	var rows []analysisRow
	query := s.DB.Rebind(`SELECT ` + analysisColumns + `
FROM patent_analyses
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`)
	if err := s.DB.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, err
	}
	out := make([]Analysis, 0, len(rows))
	for _, row := range rows {
		a, err := row.toAnalysis()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// lockStatus reads the current status, taking a row lock on Postgres.
// SQLite serializes writers on its single connection.
func (s *SQLStore) lockStatus(ctx context.Context, tx *sqlx.Tx, analysisID string) (string, error) {
	query := `SELECT status FROM patent_analyses WHERE id = ?`
	if s.DB.DriverName() == db.DriverPostgres {
		query += ` FOR UPDATE`
	}
	var status string
	if err := tx.GetContext(ctx, &status, tx.Rebind(query), analysisID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return status, nil
}

func (s *SQLStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (r analysisRow) toAnalysis() (Analysis, error) {
	a := Analysis{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.Time,
		StartedAt:   r.StartedAt.Ptr(),
		CompletedAt: r.CompletedAt.Ptr(),
		UpdatedAt:   r.UpdatedAt.Time,
	}
	if r.Metadata != "" {
		if err := json.Unmarshal([]byte(r.Metadata), &a.Metadata); err != nil {
			return Analysis{}, fmt.Errorf("decode metadata for analysis %s: %w", r.ID, err)
		}
	}
	if r.ErrorMessage.Valid {
		msg := r.ErrorMessage.String
		a.ErrorMessage = &msg
	}
	return a, nil
}

func (r reportRow) toReport() (Report, error) {
	rep := Report{
		ID:         r.ID,
		AnalysisID: r.AnalysisID,
		Type:       r.Type,
		Content:    r.Content,
		Score:      r.Score,
		Summary:    r.Summary.String,
		CreatedAt:  r.CreatedAt.Time,
	}
	if r.Details.Valid && r.Details.String != "" {
		if err := json.Unmarshal([]byte(r.Details.String), &rep.Details); err != nil {
			return Report{}, fmt.Errorf("decode details for report %s: %w", r.ID, err)
		}
	}
	return rep, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
