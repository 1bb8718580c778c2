// Package contest models Codeforces contests: the upcoming list shown on
// the dashboard and the standings of tracked students in recent rounds.
package contest

import (
	"fmt"
	"sort"
	"time"

	"github.com/cfboard/cfboard/pkg/timeutil"
)

// Phase is the contest lifecycle phase reported by contest.list.
type Phase string

const (
	PhaseBefore            Phase = "BEFORE"
	PhaseCoding            Phase = "CODING"
	PhasePendingSystemTest Phase = "PENDING_SYSTEM_TEST"
	PhaseSystemTest        Phase = "SYSTEM_TEST"
	PhaseFinished          Phase = "FINISHED"
)

// SoonWindow is how far ahead a contest counts as starting soon.
const SoonWindow = 24 * time.Hour

// Contest is a single round.
type Contest struct {
	ID        int
	Name      string
	Phase     Phase
	StartTime time.Time
	Duration  time.Duration
}

// EndTime returns when the contest finishes.
func (c Contest) EndTime() time.Time {
	return c.StartTime.Add(c.Duration)
}

// IsUpcoming reports whether the contest has not finished coding yet.
func (c Contest) IsUpcoming() bool {
	return c.Phase == PhaseBefore || c.Phase == PhaseCoding
}

// IsLive reports whether now falls within [start, end].
func (c Contest) IsLive(now time.Time) bool {
	return !now.Before(c.StartTime) && !now.After(c.EndTime())
}

// IsSoon reports whether a contest that is not live starts within SoonWindow.
func (c Contest) IsSoon(now time.Time) bool {
	return !c.IsLive(now) && c.StartTime.Sub(now) <= SoonWindow
}

// URL returns the contest page.
func (c Contest) URL() string {
	return fmt.Sprintf("https://codeforces.com/contests/%d", c.ID)
}

// ══════════════════════════════════════════════════════════════════════════════
// UPCOMING
// ══════════════════════════════════════════════════════════════════════════════

// Upcoming is the dashboard view of a contest that has not ended.
type Upcoming struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	StartTime string    `json:"startTime"`
	StartsAt  time.Time `json:"startsAt"`
	Duration  string    `json:"duration"`
	URL       string    `json:"url"`
	IsLive    bool      `json:"isLive"`
	IsSoon    bool      `json:"isSoon"`
}

// ListUpcoming keeps contests in BEFORE or CODING and orders them live
// first, then starting soon, then by start time.
func ListUpcoming(contests []Contest, now time.Time) []Upcoming {
	out := make([]Upcoming, 0)
	for _, c := range contests {
		if !c.IsUpcoming() {
			continue
		}
		out = append(out, Upcoming{
			ID:        c.ID,
			Name:      c.Name,
			StartTime: timeutil.FormatDisplay(c.StartTime),
			StartsAt:  c.StartTime.UTC(),
			Duration:  timeutil.FormatHoursMinutes(c.Duration),
			URL:       c.URL(),
			IsLive:    c.IsLive(now),
			IsSoon:    c.IsSoon(now),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsLive != b.IsLive {
			return a.IsLive
		}
		if a.IsSoon != b.IsSoon {
			return a.IsSoon
		}
		return a.StartsAt.Before(b.StartsAt)
	})
	return out
}

// LatestFinished returns up to n finished contests, most recent start first.
func LatestFinished(contests []Contest, n int) []Contest {
	finished := make([]Contest, 0)
	for _, c := range contests {
		if c.Phase == PhaseFinished {
			finished = append(finished, c)
		}
	}

	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].StartTime.After(finished[j].StartTime)
	})

	if n >= 0 && len(finished) > n {
		finished = finished[:n]
	}
	return finished
}
