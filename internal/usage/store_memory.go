package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger stores entries in memory and is safe for concurrent use.
type MemoryLedger struct {
	Now func() time.Time

	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryLedger constructs a MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Record appends an entry.
func (l *MemoryLedger) Record(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := validate(e); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now()
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e, nil
}

// Summary groups the user's entries since the given time by service.
func (l *MemoryLedger) Summary(ctx context.Context, userID string, since time.Time) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	totals := map[string]*ServiceTotal{}
	l.mu.RLock()
	for _, e := range l.entries {
		if e.UserID != userID || e.CreatedAt.Before(since) {
			continue
		}
		st, ok := totals[e.Service]
		if !ok {
			st = &ServiceTotal{Service: e.Service}
			totals[e.Service] = st
		}
		st.Requests++
		st.Tokens += int64(e.TokensUsed)
		st.Cost += e.Cost
	}
	l.mu.RUnlock()

	services := make([]ServiceTotal, 0, len(totals))
	for _, st := range totals {
		st.Cost = roundCost(st.Cost)
		services = append(services, *st)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Service < services[j].Service })
	return newSummary(userID, since, services), nil
}

// Entries returns a copy of the user's entries in insertion order.
func (l *MemoryLedger) Entries(userID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0)
	for _, e := range l.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (l *MemoryLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}
