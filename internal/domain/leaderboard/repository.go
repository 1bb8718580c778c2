package leaderboard

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOARD CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache holds built boards for a bounded time. It is owned by the calling
// layer; Build never touches it. Implementations live in
// infrastructure/persistence (memory, redis).
type Cache interface {
	// Fresh returns the board stored under key if it is younger than the
	// cache TTL.
	Fresh(ctx context.Context, key string) (*Board, bool)

	// Last returns the most recent board stored under key regardless of
	// age. It backs the stale fallback when a refresh fails.
	Last(ctx context.Context, key string) (*Board, bool)

	// Store saves board under key, stamping it with the current time.
	Store(ctx context.Context, key string, board *Board) error

	// TTL returns how long a stored board stays fresh.
	TTL() time.Duration
}

// CacheKey returns the cache key of the board for a day offset built on
// targetDate. A new board day starts a new key, so a board from before
// midnight is never served for the day after.
func CacheKey(dayOffset int, targetDate string) string {
	return fmt.Sprintf("day:%d:%s", dayOffset, targetDate)
}
