// Package query contains the read use cases served by the API and the CLI.
// Queries never modify the roster; they fetch, aggregate and cache.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/pkg/logger"
	"github.com/cfboard/cfboard/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Builds (or serves from cache) the board of one calendar day.
// ══════════════════════════════════════════════════════════════════════════════

// Where a served board came from.
const (
	SourceFresh = "fresh"
	SourceBuilt = "built"
	SourceStale = "stale"
)

// DefaultBuildTimeout bounds a single board refresh.
const DefaultBuildTimeout = 5 * time.Minute

// GetLeaderboardQuery holds the request parameters.
type GetLeaderboardQuery struct {
	// DayOffset selects the target day, 0 (today) to 7.
	DayOffset int

	// SortBy is "solvedToday" or "rating"; empty means solvedToday.
	SortBy string

	// ForceRefresh skips the fresh cache read. The HTTP routes never set it.
	ForceRefresh bool
}

// Validate checks the query and returns the parsed sort key.
func (q GetLeaderboardQuery) Validate() (leaderboard.SortKey, error) {
	if err := leaderboard.ValidateDayOffset(q.DayOffset); err != nil {
		return "", err
	}
	return leaderboard.ParseSortKey(q.SortBy)
}

// GetLeaderboardResult is a board ready to be rendered.
type GetLeaderboardResult struct {
	Board  *leaderboard.Board
	Source string
}

// BuildRecorder receives board build and serve events.
type BuildRecorder interface {
	ObserveBoardBuild(dayOffset, students, failed int, elapsed time.Duration)
	BoardServed(source string)
}

// LeaderboardOption configures a GetLeaderboardHandler.
type LeaderboardOption func(*GetLeaderboardHandler)

// WithFetchPolicy overrides the batch fetch policy.
func WithFetchPolicy(p FetchPolicy) LeaderboardOption {
	return func(h *GetLeaderboardHandler) { h.policy = p }
}

// WithBuildRecorder reports builds to r.
func WithBuildRecorder(r BuildRecorder) LeaderboardOption {
	return func(h *GetLeaderboardHandler) { h.recorder = r }
}

// WithLeaderboardLogger sets the logger.
func WithLeaderboardLogger(l *logger.Logger) LeaderboardOption {
	return func(h *GetLeaderboardHandler) { h.logger = l }
}

// WithClock overrides the clock used for target dates.
func WithClock(now func() time.Time) LeaderboardOption {
	return func(h *GetLeaderboardHandler) { h.now = now }
}

// WithBuildTimeout bounds a refresh that outlives its caller.
func WithBuildTimeout(d time.Duration) LeaderboardOption {
	return func(h *GetLeaderboardHandler) { h.buildTimeout = d }
}

// GetLeaderboardHandler serves boards per day offset.
type GetLeaderboardHandler struct {
	roster       student.Roster
	source       student.Source
	cache        leaderboard.Cache
	policy       FetchPolicy
	recorder     BuildRecorder
	logger       *logger.Logger
	now          func() time.Time
	buildTimeout time.Duration
	group        singleflight.Group
}

// NewGetLeaderboardHandler creates the handler. cache is owned by the
// caller and shared between handlers that should see the same boards.
func NewGetLeaderboardHandler(
	roster student.Roster,
	source student.Source,
	cache leaderboard.Cache,
	opts ...LeaderboardOption,
) *GetLeaderboardHandler {
	h := &GetLeaderboardHandler{
		roster:       roster,
		source:       source,
		cache:        cache,
		policy:       DefaultFetchPolicy(),
		logger:       logger.Nop(),
		now:          time.Now,
		buildTimeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("get_leaderboard"))
	return h
}

// Handle returns the board for the query. A fresh cached board is served
// as is; otherwise the board is rebuilt, with concurrent callers for the
// same day sharing one rebuild. When the rebuild fails the last cached
// board is served marked stale.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	key, err := q.Validate()
	if err != nil {
		return nil, err
	}

	now := h.now()
	cacheKey := leaderboard.CacheKey(q.DayOffset, timeutil.TargetDate(now, q.DayOffset))

	if !q.ForceRefresh {
		if board, ok := h.cache.Fresh(ctx, cacheKey); ok {
			return h.serve(board.SortedBy(key), SourceFresh), nil
		}
	}

	board, err := h.refresh(ctx, now, q.DayOffset)
	if err == nil {
		return h.serve(board.SortedBy(key), SourceBuilt), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if last, ok := h.cache.Last(ctx, cacheKey); ok {
		h.logger.Warn("serving stale board",
			logger.DayOffset(q.DayOffset),
			logger.Time("generated_at", last.GeneratedAt),
			logger.Err(err),
		)
		stale := last.SortedBy(key)
		stale.Stale = true
		return h.serve(stale, SourceStale), nil
	}

	return nil, shared.WrapError("leaderboard", "Build", shared.ErrBoardUnavailable, shared.ErrBoardUnavailable.Message, err)
}

// Refresh rebuilds the board of dayOffset and stores it in the cache.
// Concurrent refreshes of the same day share one build, which keeps
// running under its own timeout if the caller goes away.
func (h *GetLeaderboardHandler) Refresh(ctx context.Context, dayOffset int) (*leaderboard.Board, error) {
	if err := leaderboard.ValidateDayOffset(dayOffset); err != nil {
		return nil, err
	}
	return h.refresh(ctx, h.now(), dayOffset)
}

// refresh builds the board of dayOffset as seen at now, so the board's
// target date always matches its cache key.
func (h *GetLeaderboardHandler) refresh(ctx context.Context, now time.Time, dayOffset int) (*leaderboard.Board, error) {
	key := leaderboard.CacheKey(dayOffset, timeutil.TargetDate(now, dayOffset))

	ch := h.group.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.buildTimeout)
		defer cancel()
		return h.build(buildCtx, key, now, dayOffset)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*leaderboard.Board), nil
	}
}

func (h *GetLeaderboardHandler) build(ctx context.Context, key string, now time.Time, dayOffset int) (*leaderboard.Board, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "leaderboard.build")
	defer span.End()
	span.SetAttributes(attribute.Int("board.day_offset", dayOffset))

	start := time.Now()
	log := h.logger.With(logger.DayOffset(dayOffset))

	handles, err := h.roster.Handles(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "roster")
		if errors.Is(err, shared.ErrRosterNotLoaded) {
			return nil, err
		}
		return nil, shared.WrapError("student", "Load", shared.ErrRosterNotLoaded, "roster could not be loaded", err)
	}

	results, err := fetchEach(ctx, h.policy, log, "codeforces.fetch_user", handles, h.source.FetchSnapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		return nil, fmt.Errorf("fetch roster: %w", err)
	}

	outcomes := make([]leaderboard.Outcome, 0, len(results))
	for _, r := range results {
		outcomes = append(outcomes, leaderboard.Outcome{Handle: r.handle, Snapshot: r.value, Err: r.err})
	}

	board, err := leaderboard.Build(outcomes, leaderboard.BuildOptions{
		Now:       now,
		DayOffset: dayOffset,
		SortKey:   leaderboard.DefaultSortKey,
		ID:        uuid.NewString(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.String("board.target_date", board.TargetDate),
		attribute.Int("board.students", board.TotalStudents),
		attribute.Int("board.failed", len(board.FailedHandles)),
	)
	if h.recorder != nil {
		h.recorder.ObserveBoardBuild(dayOffset, board.TotalStudents, len(board.FailedHandles), elapsed)
	}

	if err := h.cache.Store(ctx, key, board); err != nil {
		log.Warn("failed to store board", logger.Err(err))
	}

	log.Info("board built",
		logger.TargetDate(board.TargetDate),
		logger.Int("students", board.TotalStudents),
		logger.Int("fetched", board.FetchedStudents),
		logger.Strings("failed_handles", board.FailedHandles),
		logger.Latency(elapsed),
	)

	return board, nil
}

func (h *GetLeaderboardHandler) serve(board *leaderboard.Board, source string) *GetLeaderboardResult {
	if h.recorder != nil {
		h.recorder.BoardServed(source)
	}
	return &GetLeaderboardResult{Board: board, Source: source}
}
