// Package memory implements the in-process board cache.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/pkg/logger"
)

const (
	// DefaultTTL is how long a built board is served without refetching.
	DefaultTTL = 10 * time.Minute

	// Retention is how long a board is kept for stale fallbacks. Keys
	// carry the target date, so older boards are never asked for again.
	Retention = 24 * time.Hour
)

// LookupRecorder counts cache reads per tier.
type LookupRecorder interface {
	CacheLookup(tier string, hit bool)
}

// Tier names reported to the LookupRecorder.
const (
	TierMemory = "memory"
	TierShared = "shared"
)

type entry struct {
	board     *leaderboard.Board
	fetchedAt time.Time
}

// BoardCache keeps the latest board per key together with the time it
// was stored. An optional shared tier (Redis) is read on a local miss and
// written through on Store; its failures never fail the caller.
type BoardCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl      time.Duration
	now      func() time.Time
	shared   leaderboard.Cache
	recorder LookupRecorder
	logger   *logger.Logger
}

// Option configures a BoardCache.
type Option func(*BoardCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *BoardCache) {
		c.now = now
	}
}

// WithSharedTier adds a second tier consulted on local misses.
func WithSharedTier(shared leaderboard.Cache) Option {
	return func(c *BoardCache) {
		c.shared = shared
	}
}

// WithRecorder reports hits and misses.
func WithRecorder(r LookupRecorder) Option {
	return func(c *BoardCache) {
		c.recorder = r
	}
}

// WithLogger sets the logger used for shared tier failures.
func WithLogger(l *logger.Logger) Option {
	return func(c *BoardCache) {
		c.logger = l
	}
}

// NewBoardCache creates a cache whose entries stay fresh for ttl.
// A non-positive ttl selects DefaultTTL.
func NewBoardCache(ttl time.Duration, opts ...Option) *BoardCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &BoardCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *BoardCache) TTL() time.Duration {
	return c.ttl
}

// Fresh returns the board under key if it was stored less than TTL ago.
func (c *BoardCache) Fresh(ctx context.Context, key string) (*leaderboard.Board, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		c.record(TierMemory, true)
		return e.board, true
	}
	c.record(TierMemory, false)

	if c.shared == nil {
		return nil, false
	}

	board, ok := c.shared.Fresh(ctx, key)
	c.record(TierShared, ok)
	if !ok {
		return nil, false
	}

	// Adopt the shared board with its original build time so it expires
	// here no later than it does in the shared tier.
	c.put(key, board, board.GeneratedAt)
	return board, true
}

// Last returns the most recent board under key stored within Retention.
func (c *BoardCache) Last(ctx context.Context, key string) (*leaderboard.Board, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < Retention {
		return e.board, true
	}

	if c.shared == nil {
		return nil, false
	}
	return c.shared.Last(ctx, key)
}

// Store saves board under key, stamped with the current time.
func (c *BoardCache) Store(ctx context.Context, key string, board *leaderboard.Board) error {
	c.put(key, board, c.now())

	if c.shared != nil {
		if err := c.shared.Store(ctx, key, board); err != nil {
			c.logger.Warn("shared board cache write failed",
				logger.CacheKey(key),
				logger.Err(err),
			)
		}
	}
	return nil
}

// put stores board and drops entries past Retention.
func (c *BoardCache) put(key string, board *leaderboard.Board, at time.Time) {
	cutoff := c.now().Add(-Retention)

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !e.fetchedAt.After(cutoff) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{board: board, fetchedAt: at}
}


func (c *BoardCache) record(tier string, hit bool) {
	if c.recorder != nil {
		c.recorder.CacheLookup(tier, hit)
	}
}

var _ leaderboard.Cache = (*BoardCache)(nil)
