// Package jobs contains the scheduled jobs of the service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// BoardRefresher rebuilds and caches the board of one day.
type BoardRefresher interface {
	Refresh(ctx context.Context, dayOffset int) (*leaderboard.Board, error)
}

// Locker is a lock shared between replicas.
type Locker interface {
	TryLock(ctx context.Context, resource, token string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// WarmLeaderboardConfig contains configuration for the warm job.
type WarmLeaderboardConfig struct {
	// DayOffsets lists the boards to rebuild, in order.
	DayOffsets []int

	// Timeout is the maximum duration of one run.
	Timeout time.Duration

	// LockTTL bounds how long a crashed replica can hold the lock.
	LockTTL time.Duration
}

// DefaultWarmLeaderboardConfig warms today's board.
func DefaultWarmLeaderboardConfig() WarmLeaderboardConfig {
	return WarmLeaderboardConfig{
		DayOffsets: []int{0},
		Timeout:    5 * time.Minute,
		LockTTL:    5 * time.Minute,
	}
}

// WarmStats describes the last run.
type WarmStats struct {
	StartedAt    time.Time
	Duration     time.Duration
	BoardsBuilt  int
	FailedBoards int
	Skipped      bool
}

// WarmLeaderboardJob keeps the board cache fresh so requests are served
// from it.
type WarmLeaderboardJob struct {
	refresher BoardRefresher
	locker    Locker
	logger    *logger.Logger
	config    WarmLeaderboardConfig

	lastStats atomic.Pointer[WarmStats]
}

// NewWarmLeaderboardJob creates the job. locker may be nil when only one
// replica runs.
func NewWarmLeaderboardJob(
	refresher BoardRefresher,
	locker Locker,
	log *logger.Logger,
	config WarmLeaderboardConfig,
) *WarmLeaderboardJob {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultWarmLeaderboardConfig()
	if len(config.DayOffsets) == 0 {
		config.DayOffsets = def.DayOffsets
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.LockTTL <= 0 {
		config.LockTTL = def.LockTTL
	}

	return &WarmLeaderboardJob{
		refresher: refresher,
		locker:    locker,
		logger:    log.With(logger.Component("warm_leaderboard")),
		config:    config,
	}
}

// Name returns the job name.
func (j *WarmLeaderboardJob) Name() string {
	return "warm_leaderboard"
}

// Description returns the job description.
func (j *WarmLeaderboardJob) Description() string {
	return "Rebuilds cached leaderboards ahead of requests"
}

// LastStats returns the stats of the last run, or nil before the first.
func (j *WarmLeaderboardJob) LastStats() *WarmStats {
	return j.lastStats.Load()
}

// Run rebuilds every configured board. A failing board does not stop the
// others; the run fails if any board failed.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	stats := &WarmStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		j.lastStats.Store(stats)
	}()

	if j.locker != nil {
		release, ok, err := j.locker.TryLock(ctx, j.Name(), uuid.NewString(), j.config.LockTTL)
		if err != nil {
			j.logger.Warn("lock unavailable, warming anyway", logger.Err(err))
		} else if !ok {
			stats.Skipped = true
			j.logger.Debug("another replica is warming")
			return nil
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					j.logger.Warn("failed to release lock", logger.Err(err))
				}
			}()
		}
	}

	var errs []error
	for _, offset := range j.config.DayOffsets {
		board, err := j.refresher.Refresh(ctx, offset)
		if err != nil {
			stats.FailedBoards++
			errs = append(errs, fmt.Errorf("day %d: %w", offset, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		stats.BoardsBuilt++
		j.logger.Debug("board warmed",
			logger.DayOffset(offset),
			logger.TargetDate(board.TargetDate),
			logger.Int("failed_handles", len(board.FailedHandles)),
		)
	}

	return errors.Join(errs...)
}
