package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"patent-backend/internal/shared/storage/db"
)

// SQLLedger persists entries in the usage_logs table.
type SQLLedger struct {
	DB  *sqlx.DB
	Now func() time.Time
}

// Record inserts an entry. An empty AnalysisID is stored as NULL.
func (l *SQLLedger) Record(ctx context.Context, e Entry) (Entry, error) {
	if err := validate(e); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now()
	}
	var analysisID any
	if e.AnalysisID != "" {
		analysisID = e.AnalysisID
	}
	query := l.DB.Rebind(`
INSERT INTO usage_logs (id, user_id, analysis_id, service, tokens_used, cost, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := l.DB.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		analysisID,
		e.Service,
		e.TokensUsed,
		e.Cost,
		db.Timestamp(e.CreatedAt),
	); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Summary groups the user's entries since the given time by service.
func (l *SQLLedger) Summary(ctx context.Context, userID string, since time.Time) (Summary, error) {
	var services []ServiceTotal
	query := l.DB.Rebind(`
SELECT service,
       COUNT(*) AS requests,
       COALESCE(SUM(tokens_used), 0) AS tokens,
       COALESCE(SUM(cost), 0) AS cost
FROM usage_logs
WHERE user_id = ? AND created_at >= ?
GROUP BY service
ORDER BY service`)
	if err := l.DB.SelectContext(ctx, &services, query, userID, db.Timestamp(since)); err != nil {
		return Summary{}, err
	}
	for i := range services {
		services[i].Cost = roundCost(services[i].Cost)
	}
	return newSummary(userID, since, services), nil
}

func (l *SQLLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}
