package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/anonboard/pkg/logger"
)

// FeedCache keeps the hot first page of the feed in Redis for a short TTL.
// Deeper pages are always served from the primary store; every write path
// drops the cached page rather than patching it.
type FeedCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFeedCache(rdb *redis.Client, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &FeedCache{rdb: rdb, ttl: ttl}
}

func key(limit int) string { return fmt.Sprintf("feed:first:%d", limit) }

func (c *FeedCache) GetFirstPage(ctx context.Context, limit int) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, key(limit)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("feed cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (c *FeedCache) SetFirstPage(ctx context.Context, limit int, payload []byte) {
	if err := c.rdb.Set(ctx, key(limit), payload, c.ttl).Err(); err != nil {
		logger.Warn("feed cache write failed", zap.Error(err))
	}
}

// Invalidate 写路径统一失效首屏缓存
func (c *FeedCache) Invalidate(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, "feed:first:*", 0).Iterator()
	for iter.Next(ctx) {
		_ = c.rdb.Del(ctx, iter.Val()).Err()
	}
	if err := iter.Err(); err != nil {
		logger.Warn("feed cache invalidate failed", zap.Error(err))
	}
}
