// Package leaderboard turns per-student snapshots into the ranked dashboard
// board: per-entry aggregates, weekly winners and positions with medals.
package leaderboard

import (
	"github.com/cfboard/cfboard/internal/domain/activity"
	"github.com/cfboard/cfboard/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// MEDAL
// ══════════════════════════════════════════════════════════════════════════════

// Medal is shown next to the first three positions.
type Medal string

const (
	MedalGold   Medal = "🥇"
	MedalSilver Medal = "🥈"
	MedalBronze Medal = "🥉"
	MedalNone   Medal = ""
)

// MedalFor returns the medal for a 1-based position.
func MedalFor(position int) Medal {
	switch position {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return MedalNone
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one student's row on the board.
type Entry struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Rank      string `json:"rank"`

	// SolvedToday counts problems first solved on the target date.
	SolvedToday     int                      `json:"solvedToday"`
	TodayProblems   []activity.ProblemRef    `json:"todayProblems"`
	DifficultyCount activity.DifficultyCount `json:"difficultyCount"`
	Streak          int                      `json:"streak"`

	// WeeklySolves has one key per window date.
	WeeklySolves   map[string]int `json:"weeklySolves"`
	WeeklyTagCount map[string]int `json:"weeklyTagCount"`

	// Position and Medal are assigned by Rank.
	Position int   `json:"position"`
	Medal    Medal `json:"medal"`

	// Failed marks a placeholder for a handle whose data could not be fetched.
	Failed bool `json:"failed,omitempty"`
}

// Aggregate runs the per-student pipeline over a snapshot: first-solve
// dedup over the whole history, the target day's new solves, difficulty
// buckets, streak and the weekly window.
func Aggregate(snap *student.Snapshot, target string, window []string) Entry {
	idx := activity.BuildFirstSolveIndex(snap.Submissions)
	today := idx.SolvedOn(target)
	weekly := activity.Weekly(idx, window)

	return Entry{
		Handle:          snap.Profile.Handle.String(),
		Rating:          snap.Profile.Rating,
		MaxRating:       snap.Profile.MaxRating,
		Rank:            snap.Profile.Rank,
		SolvedToday:     len(today),
		TodayProblems:   today,
		DifficultyCount: activity.CountDifficulty(today),
		Streak:          activity.Streak(idx, target),
		WeeklySolves:    weekly.Solves,
		WeeklyTagCount:  weekly.Tags,
	}
}

// Placeholder is the zero-valued entry substituted for a failed handle.
// Every window date is present with a zero count.
func Placeholder(handle string, window []string) Entry {
	weekly := activity.EmptyWeekly(window)
	return Entry{
		Handle:         handle,
		Rank:           student.UnknownRank,
		TodayProblems:  []activity.ProblemRef{},
		WeeklySolves:   weekly.Solves,
		WeeklyTagCount: weekly.Tags,
		Failed:         true,
	}
}

// DaysSolved returns how many window dates have at least one first solve.
func (e Entry) DaysSolved() int {
	n := 0
	for _, c := range e.WeeklySolves {
		if c > 0 {
			n++
		}
	}
	return n
}

// WeeklyTotal returns the number of first solves in the window.
func (e Entry) WeeklyTotal() int {
	n := 0
	for _, c := range e.WeeklySolves {
		n += c
	}
	return n
}

// clone returns a copy that shares no slices or maps with e.
func (e Entry) clone() Entry {
	c := e
	c.TodayProblems = make([]activity.ProblemRef, len(e.TodayProblems))
	for i, p := range e.TodayProblems {
		p.Tags = append([]string(nil), p.Tags...)
		c.TodayProblems[i] = p
	}
	c.WeeklySolves = copyCounts(e.WeeklySolves)
	c.WeeklyTagCount = copyCounts(e.WeeklyTagCount)
	return c
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
