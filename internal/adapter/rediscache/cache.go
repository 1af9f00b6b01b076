// Package rediscache decorates a history store with a Redis read-through
// cache for recent-history queries. Cache failures are soft: every path
// falls back to the inner store.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/metrics"
)

// RecentCache wraps an inner domain.HistoryStore. ReadRecent results are
// cached per (user, limit) with a TTL; Append invalidates every cached read
// for that user so readers never observe a history missing their own write.
type RecentCache struct {
	inner domain.HistoryStore
	rdb   *goredis.Client
	ttl   time.Duration
}

var _ domain.HistoryStore = (*RecentCache)(nil)

func New(inner domain.HistoryStore, rdb *goredis.Client, ttl time.Duration) *RecentCache {
	return &RecentCache{inner: inner, rdb: rdb, ttl: ttl}
}

func recentKey(userID string, limit int) string {
	return fmt.Sprintf("empath:recent:%s:%d", userID, limit)
}

func keySetKey(userID string) string {
	return "empath:recentkeys:" + userID
}

func (c *RecentCache) Append(ctx context.Context, record domain.EmotionRecord) (uuid.UUID, error) {
	id, err := c.inner.Append(ctx, record)
	if err != nil {
		return id, err
	}
	c.invalidate(ctx, record.UserID)
	return id, nil
}

func (c *RecentCache) ReadRecent(ctx context.Context, userID string, limit int) ([]domain.EmotionRecord, error) {
	if userID != "" && limit > 0 {
		key := recentKey(userID, limit)
		payload, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var records []domain.EmotionRecord
			if err := json.Unmarshal(payload, &records); err == nil {
				metrics.CacheHitsTotal.Inc()
				return records, nil
			}
			// Unreadable payloads are dropped, not served.
			c.rdb.Del(ctx, key)
		}
	}

	records, err := c.inner.ReadRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	metrics.CacheMissesTotal.Inc()
	c.set(ctx, userID, limit, records)
	return records, nil
}

func (c *RecentCache) ReadRange(ctx context.Context, userID string, from, to time.Time) ([]domain.EmotionRecord, error) {
	// Range queries are rare and unbounded in shape; they bypass the cache.
	return c.inner.ReadRange(ctx, userID, from, to)
}

func (c *RecentCache) HealthCheck(ctx context.Context) error {
	return c.inner.HealthCheck(ctx)
}

func (c *RecentCache) set(ctx context.Context, userID string, limit int, records []domain.EmotionRecord) {
	payload, err := json.Marshal(records)
	if err != nil {
		return
	}

	key := recentKey(userID, limit)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, c.ttl)
	pipe.SAdd(ctx, keySetKey(userID), key)
	pipe.Expire(ctx, keySetKey(userID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Debug("Recent-history cache write failed", "user_id", userID, "error", err)
	}
}

func (c *RecentCache) invalidate(ctx context.Context, userID string) {
	keys, err := c.rdb.SMembers(ctx, keySetKey(userID)).Result()
	if err != nil {
		slog.Debug("Recent-history cache invalidation failed", "user_id", userID, "error", err)
		return
	}
	keys = append(keys, keySetKey(userID))
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Debug("Recent-history cache invalidation failed", "user_id", userID, "error", err)
	}
}
