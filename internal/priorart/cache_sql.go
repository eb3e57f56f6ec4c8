package priorart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"patent-backend/internal/shared/storage/db"
)

// SQLCache persists search results in the search_cache table.
type SQLCache struct {
	DB *sqlx.DB
}

// Get returns the cached items when present and not expired.
func (c *SQLCache) Get(ctx context.Context, key string, now time.Time) ([]Item, bool, error) {
	var row struct {
		Results   string  `db:"results"`
		ExpiresAt db.Time `db:"expires_at"`
	}
	query := c.DB.Rebind(`SELECT results, expires_at FROM search_cache WHERE query_hash = ?`)
	if err := c.DB.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !row.ExpiresAt.Valid || !now.Before(row.ExpiresAt.Time) {
		return nil, false, nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(row.Results), &items); err != nil {
		return nil, false, fmt.Errorf("decode cached results: %w", err)
	}
	return items, true, nil
}

// Put upserts an entry.
func (c *SQLCache) Put(ctx context.Context, entry CacheEntry) error {
	if entry.Items == nil {
		entry.Items = []Item{}
	}
	payload, err := json.Marshal(entry.Items)
	if err != nil {
		return err
	}
	query := c.DB.Rebind(`
INSERT INTO search_cache (query_hash, query, source, results, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (query_hash) DO UPDATE SET
	results = excluded.results,
	expires_at = excluded.expires_at,
	created_at = excluded.created_at`)
	_, err = c.DB.ExecContext(ctx, query,
		entry.Key,
		entry.Query,
		entry.Source,
		string(payload),
		db.Timestamp(entry.ExpiresAt),
		db.Timestamp(entry.CreatedAt),
	)
	return err
}

// Purge deletes expired rows and returns how many were removed.
func (c *SQLCache) Purge(ctx context.Context, now time.Time) (int64, error) {
	query := c.DB.Rebind(`DELETE FROM search_cache WHERE expires_at <= ?`)
	res, err := c.DB.ExecContext(ctx, query, db.Timestamp(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
