// Package cache implements the search result cache on Redis.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/domain"
)

// SearchCache stores scraped listings per user and search term with a TTL.
// Cache failures are logged and treated as misses; the scraper is the source
// of truth.
type SearchCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New constructs a search cache with the given TTL.
func New(rdb *redis.Client, ttl time.Duration) *SearchCache {
	return &SearchCache{rdb: rdb, ttl: ttl}
}

func key(userID, searchTerm string) string {
	return fmt.Sprintf("search:%s:%s", userID, searchTerm)
}

// Get returns the cached listings for one search, if present.
func (c *SearchCache) Get(ctx domain.Context, userID, searchTerm string) ([]domain.JobListing, bool) {
	raw, err := c.rdb.Get(ctx, key(userID, searchTerm)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("search cache get failed", slog.String("search_term", searchTerm), slog.Any("error", err))
		}
		observability.ObserveSearchCache(false)
		return nil, false
	}
	var listings []domain.JobListing
	if err := json.Unmarshal(raw, &listings); err != nil {
		slog.Warn("search cache decode failed", slog.String("search_term", searchTerm), slog.Any("error", err))
		observability.ObserveSearchCache(false)
		return nil, false
	}
	observability.ObserveSearchCache(true)
	return listings, true
}

// Set stores the listings for one search.
func (c *SearchCache) Set(ctx domain.Context, userID, searchTerm string, listings []domain.JobListing) error {
	raw, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("op=cache.Set: marshal listings: %w", err)
	}
	if err := c.rdb.Set(ctx, key(userID, searchTerm), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=cache.Set: %w", err)
	}
	return nil
}
