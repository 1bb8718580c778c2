package query

import (
	"context"
	"fmt"
	"time"

	"github.com/cfboard/cfboard/internal/domain/contest"
	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/pkg/logger"
)

// RecentContestCount is how many finished rounds the standings view shows.
const RecentContestCount = 3

// ContestSource lists rounds from the judge.
type ContestSource interface {
	Contests(ctx context.Context) ([]contest.Contest, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// GET UPCOMING CONTESTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetUpcomingContestsHandler lists rounds that have not finished.
type GetUpcomingContestsHandler struct {
	contests ContestSource
	now      func() time.Time
}

// NewGetUpcomingContestsHandler creates the handler. A nil now uses
// time.Now.
func NewGetUpcomingContestsHandler(contests ContestSource, now func() time.Time) *GetUpcomingContestsHandler {
	if now == nil {
		now = time.Now
	}
	return &GetUpcomingContestsHandler{contests: contests, now: now}
}

// Handle returns the upcoming list, live rounds first.
func (h *GetUpcomingContestsHandler) Handle(ctx context.Context) ([]contest.Upcoming, error) {
	all, err := h.contests.Contests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	return contest.ListUpcoming(all, h.now()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET RECENT STANDINGS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetRecentStandingsHandler shows how the roster did in the latest rounds.
type GetRecentStandingsHandler struct {
	roster   student.Roster
	contests ContestSource
	source   student.Source
	policy   FetchPolicy
	logger   *logger.Logger
}

// NewGetRecentStandingsHandler creates the handler.
func NewGetRecentStandingsHandler(
	roster student.Roster,
	contests ContestSource,
	source student.Source,
	policy FetchPolicy,
	log *logger.Logger,
) *GetRecentStandingsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetRecentStandingsHandler{
		roster:   roster,
		contests: contests,
		source:   source,
		policy:   policy,
		logger:   log.With(logger.Component("get_recent_standings")),
	}
}

// Handle returns one Standings per recent finished round, most recent
// first. Each handle's rating history is fetched once and matched against
// every round; a handle whose history fails shows as not participating.
func (h *GetRecentStandingsHandler) Handle(ctx context.Context) ([]contest.Standings, error) {
	all, err := h.contests.Contests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}

	recent := contest.LatestFinished(all, RecentContestCount)
	out := make([]contest.Standings, 0, len(recent))
	if len(recent) == 0 {
		return out, nil
	}

	handles, err := h.roster.Handles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	results, err := fetchEach(ctx, h.policy, h.logger, "codeforces.fetch_rating", handles, h.source.RatingHistory)
	if err != nil {
		return nil, fmt.Errorf("fetch rating histories: %w", err)
	}

	names := make([]string, 0, len(results))
	history := make(map[string][]contest.RatingChange, len(results))
	for _, r := range results {
		names = append(names, r.handle.String())
		if r.err == nil {
			history[r.handle.String()] = r.value
		}
	}

	for _, c := range recent {
		out = append(out, contest.BuildStandings(c, names, history))
	}
	return out, nil
}
