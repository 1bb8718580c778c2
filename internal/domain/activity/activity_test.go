package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfboard/cfboard/pkg/timeutil"
)

// at returns epoch seconds for hour h of a board date.
func at(t *testing.T, date string, h int) int64 {
	t.Helper()
	d, err := timeutil.ParseDate(date)
	require.NoError(t, err)
	return d.Add(time.Duration(h) * time.Hour).Unix()
}

var nextID int64

func sub(t *testing.T, verdict Verdict, date string, h int, contest int, index string, rating int, tags ...string) Submission {
	t.Helper()
	nextID++
	return Submission{
		ID:        nextID,
		Verdict:   verdict,
		CreatedAt: at(t, date, h),
		Problem: Problem{
			ContestID: contest,
			Index:     index,
			Name:      "P" + index,
			Rating:    rating,
			Tags:      tags,
		},
	}
}

func ok(t *testing.T, date string, h int, contest int, index string, rating int, tags ...string) Submission {
	return sub(t, VerdictOK, date, h, contest, index, rating, tags...)
}

func week(t *testing.T, target string) []string {
	w, err := timeutil.WeekWindow(target)
	require.NoError(t, err)
	return w
}

// ══════════════════════════════════════════════════════════════════════════════
// FIRST SOLVE INDEX
// ══════════════════════════════════════════════════════════════════════════════

func TestBuildFirstSolveIndex_MinimumDateRegardlessOfOrder(t *testing.T) {
	subs := []Submission{
		ok(t, "2024-03-05", 10, 100, "A", 800),
		ok(t, "2024-03-01", 10, 100, "A", 800),
		sub(t, VerdictWrongAnswer, "2024-02-20", 10, 100, "A", 800),
		ok(t, "2024-03-03", 10, 100, "A", 800),
	}
	reversed := []Submission{subs[3], subs[2], subs[1], subs[0]}

	a := BuildFirstSolveIndex(subs)
	b := BuildFirstSolveIndex(reversed)

	key := ProblemKey{ContestID: 100, Index: "A"}
	require.Len(t, a, 1)
	assert.Equal(t, "2024-03-01", a[key].Date)
	assert.Equal(t, a, b)
}

func TestBuildFirstSolveIndex_IgnoresRejected(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		sub(t, VerdictWrongAnswer, "2024-03-01", 10, 1, "A", 800),
		sub(t, VerdictTimeLimitExceeded, "2024-03-01", 11, 1, "B", 800),
	})
	assert.Empty(t, idx)
}

func TestBuildFirstSolveIndex_SameDayCollapses(t *testing.T) {
	first := ok(t, "2024-03-01", 9, 1, "A", 800)
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-03-01", 15, 1, "A", 800),
		first,
	})

	require.Len(t, idx, 1)
	assert.Equal(t, first.ID, idx[first.Problem.Key()].Submission.ID)
}

func TestBuildFirstSolveIndex_UsesBoardTimezone(t *testing.T) {
	// 19:00 UTC on the 1st is 01:00 on the 2nd at UTC+6.
	s := Submission{
		ID:        1,
		Verdict:   VerdictOK,
		CreatedAt: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC).Unix(),
		Problem:   Problem{ContestID: 1, Index: "A"},
	}
	idx := BuildFirstSolveIndex([]Submission{s})

	d, found := idx.DateOf(s.Problem.Key())
	assert.True(t, found)
	assert.Equal(t, "2024-03-02", d)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY
// ══════════════════════════════════════════════════════════════════════════════

func TestSolvedOn_OnlyNewSolves(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-03-01", 10, 1, "A", 800),  // old solve
		ok(t, "2024-03-05", 12, 1, "A", 800),  // resubmission today
		ok(t, "2024-03-05", 11, 2, "B", 1300), // new today
		ok(t, "2024-03-05", 9, 3, "C", 0),     // new today, unrated
	})

	refs := idx.SolvedOn("2024-03-05")

	require.Len(t, refs, 2)
	assert.Equal(t, 3, refs[0].ContestID, "ordered by submission time")
	assert.Equal(t, 2, refs[1].ContestID)
	assert.Equal(t, "PB", refs[1].Name)
	assert.Equal(t, 1300, refs[1].Rating)
}

func TestSolvedOn_NoDuplicateKeys(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-03-05", 10, 1, "A", 800),
		ok(t, "2024-03-05", 11, 1, "A", 800),
		ok(t, "2024-03-05", 12, 1, "A", 800),
	})
	assert.Len(t, idx.SolvedOn("2024-03-05"), 1)
}

func TestSolvedOn_EmptyDay(t *testing.T) {
	idx := BuildFirstSolveIndex(nil)
	refs := idx.SolvedOn("2024-03-05")
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK
// ══════════════════════════════════════════════════════════════════════════════

func TestStreak_NoSubmissions(t *testing.T) {
	assert.Equal(t, 0, Streak(BuildFirstSolveIndex(nil), "2024-03-05"))
}

func TestStreak_ConsecutiveDaysEndingAtTarget(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-03-05", 10, 1, "A", 800),
		ok(t, "2024-03-04", 10, 2, "A", 800),
		ok(t, "2024-03-03", 10, 3, "A", 800),
		// gap on the 2nd
		ok(t, "2024-03-01", 10, 4, "A", 800),
	})

	assert.Equal(t, 3, Streak(idx, "2024-03-05"))
	assert.Equal(t, 2, Streak(idx, "2024-03-04"))
	assert.Equal(t, 0, Streak(idx, "2024-03-02"))
	assert.Equal(t, 1, Streak(idx, "2024-03-01"))
}

func TestStreak_ResubmissionDoesNotExtend(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-03-04", 10, 1, "A", 800),
		ok(t, "2024-03-05", 10, 1, "A", 800), // already solved
	})
	assert.Equal(t, 0, Streak(idx, "2024-03-05"))
}

func TestStreak_AcrossMonthBoundary(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-03-01", 10, 1, "A", 800),
		ok(t, "2024-02-29", 10, 2, "A", 800),
		ok(t, "2024-02-28", 10, 3, "A", 800),
	})
	assert.Equal(t, 3, Streak(idx, "2024-03-01"))
}

func TestStreak_InvalidTarget(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{ok(t, "2024-03-01", 10, 1, "A", 800)})
	assert.Equal(t, 0, Streak(idx, "not-a-date"))
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY
// ══════════════════════════════════════════════════════════════════════════════

func TestWeekly_AllWindowDatesPresent(t *testing.T) {
	window := week(t, "2024-03-07")
	stats := Weekly(BuildFirstSolveIndex(nil), window)

	assert.Len(t, stats.Solves, 7)
	for _, d := range window {
		c, found := stats.Solves[d]
		assert.True(t, found, d)
		assert.Zero(t, c)
	}
	assert.Empty(t, stats.Tags)
	assert.Zero(t, stats.ActiveDays())
}

func TestWeekly_CountsOnlyInWindowFirstSolves(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-02-20", 10, 1, "A", 800, "dp"),          // first solved before window
		ok(t, "2024-03-05", 10, 1, "A", 800, "dp"),          // resubmitted inside window
		ok(t, "2024-03-05", 11, 2, "B", 1500, "dp", "math"), // counts
		ok(t, "2024-03-07", 11, 3, "C", 1700, "graphs"),     // counts
		ok(t, "2024-03-08", 11, 4, "D", 1700, "graphs"),     // after target
	})

	stats := Weekly(idx, week(t, "2024-03-07"))

	assert.Equal(t, 1, stats.Solves["2024-03-05"])
	assert.Equal(t, 1, stats.Solves["2024-03-07"])
	assert.Equal(t, 2, stats.Total())
	assert.Equal(t, 2, stats.ActiveDays())
	assert.Equal(t, map[string]int{"dp": 1, "math": 1, "graphs": 1}, stats.Tags)
}

func TestWeekly_ProblemCountsOncePerTag(t *testing.T) {
	idx := BuildFirstSolveIndex([]Submission{
		ok(t, "2024-03-05", 10, 1, "A", 800, "dp", "dp"),
	})
	stats := Weekly(idx, week(t, "2024-03-07"))
	assert.Equal(t, 1, stats.Tags["dp"])
}

// ══════════════════════════════════════════════════════════════════════════════
// DIFFICULTY
// ══════════════════════════════════════════════════════════════════════════════

func TestBucketOf_Boundaries(t *testing.T) {
	cases := map[int]Bucket{
		800:  BucketEasy,
		1199: BucketEasy,
		1200: BucketMed1,
		1399: BucketMed1,
		1400: BucketMed2,
		1599: BucketMed2,
		1600: BucketHard,
		3500: BucketHard,
	}
	for rating, want := range cases {
		got, ok := BucketOf(rating)
		assert.True(t, ok, rating)
		assert.Equal(t, want, got, rating)
	}

	_, rated := BucketOf(0)
	assert.False(t, rated)
}

func TestCountDifficulty_SkipsUnrated(t *testing.T) {
	dc := CountDifficulty([]ProblemRef{
		{Rating: 800}, {Rating: 1200}, {Rating: 1450}, {Rating: 1600}, {Rating: 2400}, {Rating: 0},
	})
	assert.Equal(t, DifficultyCount{Easy: 1, Med1: 1, Med2: 1, Hard: 2}, dc)
	assert.Equal(t, 5, dc.Total())
}
