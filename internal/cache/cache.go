// Package cache is a write-through read cache over the latest odds
// snapshot. It accelerates component F's latest_odds reads; the store
// remains the source of truth and every cache miss falls back to it.
// Quota and last_run are deliberately not cached here — they are
// single-writer, in-memory scheduler fields and internal/readapi.Status
// reads them directly rather than through a second, independently-staled
// copy. Adapted from Mercury's deleted internal/delta change-detection
// engine, repurposed away from streaming/push delivery (out of scope)
// toward a plain snapshot cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna-sports/arbiter/pkg/models"
)

const (
	keyLatestEvents = "arbiter:cache:latest_events"

	defaultTTL = 10 * time.Minute
)

// Cache wraps a redis client with typed get/set helpers.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New constructs a Cache over an already-connected redis client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb, ttl: defaultTTL}
}

// SetLatestEvents writes the full latest-odds snapshot, all sports together
// under a single key, for write-through acceleration of latest_odds()
// reads.
func (c *Cache) SetLatestEvents(ctx context.Context, events []models.Event) error {
	buf, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyLatestEvents, buf, c.ttl).Err()
}

// GetLatestEvents returns the cached snapshot, or (nil, false) on a miss.
func (c *Cache) GetLatestEvents(ctx context.Context) ([]models.Event, bool) {
	raw, err := c.rdb.Get(ctx, keyLatestEvents).Bytes()
	if err != nil {
		return nil, false
	}
	var events []models.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, false
	}
	return events, true
}

// Close releases the underlying redis connection pool.
func (c *Cache) Close() error { return c.rdb.Close() }
