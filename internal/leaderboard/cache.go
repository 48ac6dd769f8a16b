package leaderboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/meal-max-arena/internal/domain"
	"github.com/kapu/meal-max-arena/internal/kitchen"
	"github.com/kapu/meal-max-arena/internal/obslog"
)

const keyPrefix = "leaderboard:"

// Cache serves leaderboard snapshots from Redis in front of the repository.
// Snapshots may lag an in-flight battle by up to the TTL; writers call
// Invalidate to shorten the window.
type Cache struct {
	rdb  *redis.Client
	repo kitchen.Repository
	ttl  time.Duration
}

func NewCache(rdb *redis.Client, repo kitchen.Repository, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &Cache{rdb: rdb, repo: repo, ttl: ttl}
}

func key(sortBy domain.SortKey) string { return keyPrefix + string(sortBy) }

// Get returns the cached snapshot for sortBy, falling back to the repository
// on a miss. A broken cache never breaks reads.
func (c *Cache) Get(ctx context.Context, sortBy domain.SortKey) ([]*domain.LeaderboardEntry, error) {
	if !sortBy.Valid() {
		// let the repository produce the canonical validation error
		return c.repo.Leaderboard(ctx, sortBy)
	}

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key(sortBy)).Bytes()
		if err == nil {
			var board []*domain.LeaderboardEntry
			if jerr := json.Unmarshal(raw, &board); jerr == nil {
				return board, nil
			}
			obslog.L().Warn("leaderboard_cache_corrupt", zap.String("sort_by", string(sortBy)))
		} else if err != redis.Nil {
			obslog.L().Warn("leaderboard_cache_read_failed", zap.Error(err))
		}
	}

	board, err := c.repo.Leaderboard(ctx, sortBy)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if raw, jerr := json.Marshal(board); jerr == nil {
			if serr := c.rdb.Set(ctx, key(sortBy), raw, c.ttl).Err(); serr != nil {
				obslog.L().Warn("leaderboard_cache_write_failed", zap.Error(serr))
			}
		}
	}
	return board, nil
}

// Invalidate drops both snapshots after a stat-changing write.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, key(domain.SortByWins), key(domain.SortByWinPct)).Err(); err != nil {
		obslog.L().Warn("leaderboard_cache_invalidate_failed", zap.Error(err))
	}
}
