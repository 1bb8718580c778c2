package activity

import (
	"github.com/cfboard/cfboard/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK
// ══════════════════════════════════════════════════════════════════════════════

// Streak counts consecutive days with at least one first solve, walking
// backward from target. It is 0 when target itself has none. The walk is
// bounded by the number of distinct first-solve dates.
func Streak(idx FirstSolveIndex, target string) int {
	day, err := timeutil.ParseDate(target)
	if err != nil {
		return 0
	}

	dates := idx.Dates()
	streak := 0
	for streak < len(dates) {
		if _, ok := dates[timeutil.FormatDate(day)]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY WINDOW
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyStats holds per-day and per-tag first-solve counts for a window.
type WeeklyStats struct {
	// Solves has every window date as a key, zero when idle.
	Solves map[string]int
	// Tags counts in-window first solves per tag. A problem adds one to
	// each of its tags.
	Tags map[string]int
}

// ActiveDays returns how many window dates have at least one solve.
func (w WeeklyStats) ActiveDays() int {
	n := 0
	for _, c := range w.Solves {
		if c > 0 {
			n++
		}
	}
	return n
}

// Total returns the number of first solves in the window.
func (w WeeklyStats) Total() int {
	n := 0
	for _, c := range w.Solves {
		n += c
	}
	return n
}

// Weekly aggregates first solves falling inside window. Problems first
// solved before the window never count, even if resubmitted inside it.
func Weekly(idx FirstSolveIndex, window []string) WeeklyStats {
	stats := EmptyWeekly(window)

	for _, fs := range idx {
		if _, ok := stats.Solves[fs.Date]; !ok {
			continue
		}
		stats.Solves[fs.Date]++
		for _, tag := range uniqueTags(fs.Submission.Problem.Tags) {
			stats.Tags[tag]++
		}
	}

	return stats
}

// EmptyWeekly returns zeroed stats covering window.
func EmptyWeekly(window []string) WeeklyStats {
	solves := make(map[string]int, len(window))
	for _, d := range window {
		solves[d] = 0
	}
	return WeeklyStats{
		Solves: solves,
		Tags:   make(map[string]int),
	}
}

func uniqueTags(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// DIFFICULTY
// ══════════════════════════════════════════════════════════════════════════════

// Bucket is a difficulty band.
type Bucket string

const (
	BucketEasy Bucket = "easy" // < 1200
	BucketMed1 Bucket = "med1" // [1200, 1400)
	BucketMed2 Bucket = "med2" // [1400, 1600)
	BucketHard Bucket = "hard" // >= 1600
)

// BucketOf classifies a problem rating. Unrated problems (rating <= 0)
// have no bucket.
func BucketOf(rating int) (Bucket, bool) {
	switch {
	case rating <= 0:
		return "", false
	case rating < 1200:
		return BucketEasy, true
	case rating < 1400:
		return BucketMed1, true
	case rating < 1600:
		return BucketMed2, true
	default:
		return BucketHard, true
	}
}

// DifficultyCount counts problems per difficulty band.
type DifficultyCount struct {
	Easy int `json:"easy"`
	Med1 int `json:"med1"`
	Med2 int `json:"med2"`
	Hard int `json:"hard"`
}

// Total returns the number of rated problems counted.
func (d DifficultyCount) Total() int {
	return d.Easy + d.Med1 + d.Med2 + d.Hard
}

// CountDifficulty buckets problems by rating, skipping unrated ones.
func CountDifficulty(refs []ProblemRef) DifficultyCount {
	var dc DifficultyCount
	for _, r := range refs {
		b, ok := BucketOf(r.Rating)
		if !ok {
			continue
		}
		switch b {
		case BucketEasy:
			dc.Easy++
		case BucketMed1:
			dc.Med1++
		case BucketMed2:
			dc.Med2++
		case BucketHard:
			dc.Hard++
		}
	}
	return dc
}
