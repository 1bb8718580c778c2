package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/pkg/logger"
)

// BoardCache is the shared board tier. A fresh copy expires with the
// cache TTL; a second copy is kept for TTLLastBoard to serve stale
// fallbacks.
type BoardCache struct {
	cache  *Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewBoardCache creates a shared board cache.
func NewBoardCache(cache *Cache, ttl time.Duration, log *logger.Logger) *BoardCache {
	if log == nil {
		log = logger.Nop()
	}
	return &BoardCache{
		cache:  cache,
		ttl:    ttl,
		logger: log.With(logger.Component("redis_board_cache")),
	}
}

// TTL returns the freshness window.
func (b *BoardCache) TTL() time.Duration {
	return b.ttl
}

// Fresh returns the board under key while its fresh copy exists.
func (b *BoardCache) Fresh(ctx context.Context, key string) (*leaderboard.Board, bool) {
	return b.get(ctx, BoardKey(key))
}

// Last returns the latest board under key.
func (b *BoardCache) Last(ctx context.Context, key string) (*leaderboard.Board, bool) {
	return b.get(ctx, LastBoardKey(key))
}

// Store writes both copies in one pipeline.
func (b *BoardCache) Store(ctx context.Context, key string, board *leaderboard.Board) error {
	if b.ttl <= 0 {
		return ErrCacheInvalidTTL
	}
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("encode board %s: %w", key, err)
	}

	_, err = b.cache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BoardKey(key), data, b.ttl)
		pipe.Set(ctx, LastBoardKey(key), data, TTLLastBoard)
		return nil
	})
	return err
}

func (b *BoardCache) get(ctx context.Context, key string) (*leaderboard.Board, bool) {
	var board leaderboard.Board
	if err := b.cache.getJSON(ctx, key, &board); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			b.logger.Warn("board cache read failed", logger.CacheKey(key), logger.Err(err))
		}
		return nil, false
	}
	return &board, true
}

var _ leaderboard.Cache = (*BoardCache)(nil)
