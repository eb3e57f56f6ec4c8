package usage

import "time"

// Entry is one append-only usage ledger row.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	Service    string    `json:"service"`
	TokensUsed int       `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	CreatedAt  time.Time `json:"created_at"`
}

// ServiceTotal aggregates entries for one provider.
type ServiceTotal struct {
	Service  string  `json:"service" db:"service"`
	Requests int64   `json:"request_count" db:"requests"`
	Tokens   int64   `json:"total_tokens" db:"tokens"`
	Cost     float64 `json:"total_cost" db:"cost"`
}

// Summary is a user's usage since a point in time, grouped by service.
type Summary struct {
	UserID      string         `json:"user_id"`
	Since       time.Time      `json:"since"`
	Services    []ServiceTotal `json:"services"`
	TotalTokens int64          `json:"total_tokens"`
	TotalCost   float64        `json:"total_cost"`
}

func newSummary(userID string, since time.Time, services []ServiceTotal) Summary {
	if services == nil {
		services = []ServiceTotal{}
	}
	s := Summary{UserID: userID, Since: since.UTC(), Services: services}
	for _, st := range services {
		s.TotalTokens += st.Tokens
		s.TotalCost += st.Cost
	}
	s.TotalCost = roundCost(s.TotalCost)
	return s
}
