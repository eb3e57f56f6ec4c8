package priorart

import (
	"context"
	"errors"
	"strings"
	"time"

	"patent-backend/internal/shared/metrics"
	"patent-backend/internal/shared/telemetry"
	"patent-backend/internal/upstream"
)

// Provider performs a single outbound prior-art search.
type Provider interface {
	Search(ctx context.Context, query string) ([]Item, error)
}

// Service applies caching and the degrade-gracefully policy on top of a Provider.
type Service struct {
	Provider Provider
	Cache    Cache
	TTL      time.Duration
	Source   string
	Now      func() time.Time
}

// Search never fails: provider errors and malformed responses yield an empty list.
func (s *Service) Search(ctx context.Context, query string) []Item {
	query = strings.TrimSpace(query)
	if query == "" || s.Provider == nil {
		return []Item{}
	}
	now := s.now()
	key := CacheKey(query, s.source())

	if s.Cache != nil {
		items, ok, err := s.Cache.Get(ctx, key, now)
		switch {
		case err != nil:
			telemetry.Warn("priorart.cache_read_failed", map[string]any{
				"request_id": telemetry.RequestIDFromContext(ctx),
				"error":      err,
			})
		case ok:
			metrics.IncSearchCacheHit()
			return capItems(items)
		}
	}

	items, err := s.Provider.Search(ctx, query)
	if err != nil {
		metrics.IncPriorArtDegraded()
		telemetry.Warn("priorart.degraded", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"source":     s.source(),
			"kind":       errorKind(err),
			"error":      err,
		})
		return []Item{}
	}
	items = capItems(items)

	if s.Cache != nil {
		entry := CacheEntry{
			Key:       key,
			Query:     query,
			Source:    s.source(),
			Items:     items,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl()),
		}
		if err := s.Cache.Put(ctx, entry); err != nil {
			telemetry.Warn("priorart.cache_write_failed", map[string]any{
				"request_id": telemetry.RequestIDFromContext(ctx),
				"error":      err,
			})
		}
	}
	return items
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultCacheTTL
}

func (s *Service) source() string {
	if s.Source != "" {
		return s.Source
	}
	return ProviderName
}

func capItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	if len(items) > MaxItems {
		return items[:MaxItems]
	}
	return items
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, upstream.ErrFormat):
		return "format"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, upstream.ErrService):
		return "service"
	default:
		return "unknown"
	}
}
