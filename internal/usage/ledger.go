package usage

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

const (
	DefaultCostPer1K    = 0.05
	DefaultTokensPerRun = 1000
)

// ErrInvalidEntry is returned for entries missing a user or service.
var ErrInvalidEntry = errors.New("usage entry requires user_id and service")

// Ledger records usage and reports aggregates.
type Ledger interface {
	Record(ctx context.Context, e Entry) (Entry, error)
	Summary(ctx context.Context, userID string, since time.Time) (Summary, error)
}

// Pricing turns a provider token count into a billed entry.
type Pricing struct {
	CostPer1K     float64
	DefaultTokens int
}

// Entry builds the ledger entry for one run. A zero token count bills DefaultTokens.
func (p Pricing) Entry(userID, analysisID, service string, tokens int) Entry {
	if tokens <= 0 {
		tokens = p.defaultTokens()
	}
	return Entry{
		UserID:     userID,
		AnalysisID: analysisID,
		Service:    service,
		TokensUsed: tokens,
		Cost:       CostFor(tokens, p.costPer1K()),
	}
}

func (p Pricing) costPer1K() float64 {
	if p.CostPer1K > 0 {
		return p.CostPer1K
	}
	return DefaultCostPer1K
}

func (p Pricing) defaultTokens() int {
	if p.DefaultTokens > 0 {
		return p.DefaultTokens
	}
	return DefaultTokensPerRun
}

// CostFor prices tokens at ratePer1K, rounded to six decimals.
func CostFor(tokens int, ratePer1K float64) float64 {
	if tokens <= 0 || ratePer1K <= 0 {
		return 0
	}
	return roundCost(float64(tokens) / 1000 * ratePer1K)
}

func roundCost(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func validate(e Entry) error {
	if strings.TrimSpace(e.UserID) == "" || strings.TrimSpace(e.Service) == "" {
		return ErrInvalidEntry
	}
	return nil
}
