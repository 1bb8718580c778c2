package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cfboard/cfboard/internal/application/query"
	"github.com/cfboard/cfboard/internal/domain/contest"
	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/pkg/logger"
)

// Comments returned in failure envelopes.
const (
	commentUpstreamUnavailable = "Codeforces unavailable"
	commentInvalidDayOffset    = "Invalid day offset"
	commentInvalidSort         = "Invalid sort key"
	commentNotConfigured       = "Endpoint not configured"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot lists the public endpoints.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "cfboard",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"today":     "/api/students/today",
			"day":       "/api/students/day/{offset}",
			"upcoming":  "/api/contests/upcoming",
			"standings": "/api/contests/last-3-standings",
			"health":    "/health",
		},
	})
}

// handleHealth reports every check; 503 when any of them fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if status.Version == "" {
		status.Version = s.config.Version
	}
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// boardResponse flattens the board next to the envelope status.
type boardResponse struct {
	Status string `json:"status"`
	Source string `json:"source"`
	*leaderboard.Board
}

// handleToday handles GET /api/students/today.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	s.serveBoard(w, r, 0)
}

// handleDay handles GET /api/students/day/{offset}.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.PathValue("offset"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, commentInvalidDayOffset)
		return
	}
	s.serveBoard(w, r, offset)
}

func (s *Server) serveBoard(w http.ResponseWriter, r *http.Request, offset int) {
	if s.deps.Leaderboard == nil {
		writeFailure(w, http.StatusNotImplemented, commentNotConfigured)
		return
	}

	q := query.GetLeaderboardQuery{
		DayOffset: offset,
		SortBy:    r.URL.Query().Get("sort"),
	}

	result, err := s.deps.Leaderboard.Handle(r.Context(), q)
	if err != nil {
		s.writeBoardError(w, r, offset, err)
		return
	}

	writeJSON(w, http.StatusOK, boardResponse{
		Status: StatusOK,
		Source: result.Source,
		Board:  result.Board,
	})
}

func (s *Server) writeBoardError(w http.ResponseWriter, r *http.Request, offset int, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidDayOffset):
		writeFailure(w, http.StatusBadRequest, commentInvalidDayOffset)
	case errors.Is(err, shared.ErrInvalidSortKey):
		writeFailure(w, http.StatusBadRequest, commentInvalidSort)
	case shared.IsValidation(err):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
	default:
		logger.FromContext(r.Context()).Error("board unavailable",
			logger.DayOffset(offset),
			logger.Err(err),
		)
		writeFailure(w, http.StatusInternalServerError, commentUpstreamUnavailable)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type upcomingResponse struct {
	Status   string             `json:"status"`
	Comment  string             `json:"comment,omitempty"`
	Contests []contest.Upcoming `json:"contests"`
}

type standingsResponse struct {
	Status   string              `json:"status"`
	Comment  string              `json:"comment,omitempty"`
	Contests []contest.Standings `json:"contests"`
}

// handleUpcomingContests handles GET /api/contests/upcoming.
func (s *Server) handleUpcomingContests(w http.ResponseWriter, r *http.Request) {
	if s.deps.UpcomingContests == nil {
		writeFailure(w, http.StatusNotImplemented, commentNotConfigured)
		return
	}

	contests, err := s.deps.UpcomingContests.Handle(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("upcoming contests unavailable", logger.Err(err))
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusInternalServerError, upcomingResponse{
			Status:   StatusFailed,
			Comment:  commentUpstreamUnavailable,
			Contests: []contest.Upcoming{},
		})
		return
	}

	writeJSON(w, http.StatusOK, upcomingResponse{Status: StatusOK, Contests: contests})
}

// handleRecentStandings handles GET /api/contests/last-3-standings.
func (s *Server) handleRecentStandings(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecentStandings == nil {
		writeFailure(w, http.StatusNotImplemented, commentNotConfigured)
		return
	}

	standings, err := s.deps.RecentStandings.Handle(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("recent standings unavailable", logger.Err(err))
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusInternalServerError, standingsResponse{
			Status:   StatusFailed,
			Comment:  commentUpstreamUnavailable,
			Contests: []contest.Standings{},
		})
		return
	}

	writeJSON(w, http.StatusOK, standingsResponse{Status: StatusOK, Contests: standings})
}
