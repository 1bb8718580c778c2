package leaderboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfboard/cfboard/internal/domain/activity"
	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/pkg/timeutil"
)

// 2024-05-10 12:00 at UTC+6.
var now = time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC)

var nextID int64

// solve returns an accepted submission at noon of a board date.
func solve(t *testing.T, date string, contest int, index string, rating int, tags ...string) activity.Submission {
	t.Helper()
	d, err := timeutil.ParseDate(date)
	require.NoError(t, err)
	nextID++
	return activity.Submission{
		ID:        nextID,
		Verdict:   activity.VerdictOK,
		CreatedAt: d.Add(12 * time.Hour).Unix(),
		Problem: activity.Problem{
			ContestID: contest,
			Index:     index,
			Name:      fmt.Sprintf("Problem %d%s", contest, index),
			Rating:    rating,
			Tags:      tags,
		},
	}
}

// dailySolves returns one distinct solve on each date.
func dailySolves(t *testing.T, contest int, dates ...string) []activity.Submission {
	subs := make([]activity.Submission, 0, len(dates))
	for i, d := range dates {
		subs = append(subs, solve(t, d, contest, fmt.Sprintf("D%d", i), 1000))
	}
	return subs
}

func snapshot(handle string, rating int, subs ...activity.Submission) *student.Snapshot {
	return student.NewSnapshot(student.NewProfile(student.Handle(handle), rating, 0, "expert"), subs, now)
}

func ok(handle string, rating int, subs ...activity.Submission) Outcome {
	return Outcome{Handle: student.Handle(handle), Snapshot: snapshot(handle, rating, subs...)}
}

func window(t *testing.T) []string {
	w, err := timeutil.WeekWindow("2024-05-10")
	require.NoError(t, err)
	return w
}

func handles(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Handle)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

func TestRank_SolvedTodayDescendingThenRatingAscending(t *testing.T) {
	entries := []Entry{
		{Handle: "A", SolvedToday: 3, Rating: 1500},
		{Handle: "B", SolvedToday: 3, Rating: 1200},
		{Handle: "C", SolvedToday: 5, Rating: 900},
	}

	Rank(entries, SortBySolvedToday)

	assert.Equal(t, []string{"C", "B", "A"}, handles(entries))
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
	}
	assert.Equal(t, MedalGold, entries[0].Medal)
	assert.Equal(t, MedalSilver, entries[1].Medal)
	assert.Equal(t, MedalBronze, entries[2].Medal)
}

func TestRank_RatingIsStable(t *testing.T) {
	entries := []Entry{
		{Handle: "low", Rating: 1100},
		{Handle: "tie1", Rating: 1600},
		{Handle: "tie2", Rating: 1600},
		{Handle: "top", Rating: 2100},
	}

	Rank(entries, SortByRating)

	assert.Equal(t, []string{"top", "tie1", "tie2", "low"}, handles(entries))
	assert.Equal(t, 4, entries[3].Position)
	assert.Equal(t, MedalNone, entries[3].Medal)
}

func TestRank_UnknownKeyFallsBackToDefault(t *testing.T) {
	entries := []Entry{
		{Handle: "a", SolvedToday: 1, Rating: 3000},
		{Handle: "b", SolvedToday: 2, Rating: 800},
	}

	Rank(entries, SortKey("xp"))

	assert.Equal(t, []string{"b", "a"}, handles(entries))
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		raw     string
		want    SortKey
		wantErr bool
	}{
		{raw: "", want: SortBySolvedToday},
		{raw: "solvedToday", want: SortBySolvedToday},
		{raw: " rating ", want: SortByRating},
		{raw: "maxRating", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSortKey(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, shared.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WINNERS
// ══════════════════════════════════════════════════════════════════════════════

func activeDays(days int) map[string]int {
	m := map[string]int{
		"2024-05-10": 0, "2024-05-09": 0, "2024-05-08": 0, "2024-05-07": 0,
		"2024-05-06": 0, "2024-05-05": 0, "2024-05-04": 0,
	}
	for i := 0; i < days; i++ {
		m[fmt.Sprintf("2024-05-%02d", 10-i)] = 1
	}
	return m
}

func TestSelectWeeklyWinner_RatingBreaksTie(t *testing.T) {
	entries := []Entry{
		{Handle: "y", Rating: 1300, WeeklySolves: activeDays(5)},
		{Handle: "x", Rating: 1400, WeeklySolves: activeDays(5)},
		{Handle: "z", Rating: 2400, WeeklySolves: activeDays(4)},
	}

	w := SelectWeeklyWinner(entries)

	require.NotNil(t, w)
	assert.Equal(t, "x", w.Handle)
	assert.Equal(t, 5, w.DaysSolved)
	assert.Equal(t, 1400, w.Rating)
}

func TestSelectWeeklyWinner_MoreDaysBeatsRating(t *testing.T) {
	entries := []Entry{
		{Handle: "strong", Rating: 2000, WeeklySolves: activeDays(5)},
		{Handle: "steady", Rating: 1000, WeeklySolves: activeDays(7)},
	}

	w := SelectWeeklyWinner(entries)

	require.NotNil(t, w)
	assert.Equal(t, "steady", w.Handle)
}

func TestSelectWeeklyWinner_NobodyQualifies(t *testing.T) {
	entries := []Entry{
		{Handle: "a", Rating: 1500, WeeklySolves: activeDays(4)},
		Placeholder("b", window(t)),
	}

	assert.Nil(t, SelectWeeklyWinner(entries))
	assert.Nil(t, SelectWeeklyWinner(nil))
}

func TestSelectWeeklyWinner_FullTieKeepsFirst(t *testing.T) {
	entries := []Entry{
		{Handle: "first", Rating: 1500, WeeklySolves: activeDays(6)},
		{Handle: "second", Rating: 1500, WeeklySolves: activeDays(6)},
	}

	w := SelectWeeklyWinner(entries)

	require.NotNil(t, w)
	assert.Equal(t, "first", w.Handle)
}

func TestSelectTagWinners(t *testing.T) {
	entries := []Entry{
		{Handle: "y", Rating: 1300, WeeklyTagCount: map[string]int{"dp": 3, "math": 1}},
		{Handle: "x", Rating: 1700, WeeklyTagCount: map[string]int{"dp": 3, "graphs": 0}},
		{Handle: "w", Rating: 900, WeeklyTagCount: map[string]int{"math": 4}},
		{Handle: "v", Rating: 900, WeeklyTagCount: map[string]int{"math": 4}},
	}

	winners := SelectTagWinners(entries)

	assert.Equal(t, TagWinner{Winner: "x", Count: 3}, winners["dp"])
	assert.Equal(t, TagWinner{Winner: "w", Count: 4}, winners["math"])
	assert.NotContains(t, winners, "graphs")
	assert.Len(t, winners, 2)
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILD
// ══════════════════════════════════════════════════════════════════════════════

func TestBuild_AggregatesPerStudent(t *testing.T) {
	subs := []activity.Submission{
		solve(t, "2024-05-10", 100, "A", 800, "greedy"),
		solve(t, "2024-05-10", 100, "B", 1300, "dp", "greedy"),
		solve(t, "2024-05-10", 100, "C", 0, "implementation"),
		solve(t, "2024-05-09", 101, "A", 1700, "dp"),
		solve(t, "2024-05-08", 102, "A", 1450),
		// outside the window
		solve(t, "2024-04-20", 90, "A", 1000, "dp"),
	}

	board, err := Build([]Outcome{ok("alice", 1500, subs...)}, BuildOptions{Now: now, ID: "b1"})
	require.NoError(t, err)

	require.Len(t, board.Result, 1)
	e := board.Result[0]
	assert.Equal(t, "alice", e.Handle)
	assert.Equal(t, 1500, e.MaxRating)
	assert.Equal(t, 3, e.SolvedToday)
	assert.Len(t, e.TodayProblems, 3)
	assert.Equal(t, activity.DifficultyCount{Easy: 1, Med1: 1}, e.DifficultyCount)
	assert.Equal(t, 3, e.Streak)
	assert.Len(t, e.WeeklySolves, 7)
	assert.Equal(t, 3, e.WeeklySolves["2024-05-10"])
	assert.Equal(t, 1, e.WeeklySolves["2024-05-08"])
	assert.Equal(t, 0, e.WeeklySolves["2024-05-04"])
	assert.Equal(t, map[string]int{"greedy": 2, "dp": 2, "implementation": 1}, e.WeeklyTagCount)
	assert.Equal(t, 1, e.Position)
	assert.Equal(t, MedalGold, e.Medal)

	assert.Equal(t, "b1", board.ID)
	assert.Equal(t, "2024-05-10", board.TargetDate)
	assert.Equal(t, SortBySolvedToday, board.SortBy)
	assert.Equal(t, []string{"2024-05-10", "2024-05-09", "2024-05-08", "2024-05-07", "2024-05-06", "2024-05-05", "2024-05-04"}, board.Window)
}

func TestBuild_ResubmissionNeverCountsAgain(t *testing.T) {
	subs := []activity.Submission{
		solve(t, "2024-05-01", 200, "A", 1200, "dp"),
		solve(t, "2024-05-10", 200, "A", 1200, "dp"),
		solve(t, "2024-05-07", 200, "A", 1200, "dp"),
	}

	board, err := Build([]Outcome{ok("alice", 1500, subs...)}, BuildOptions{Now: now})
	require.NoError(t, err)

	e := board.Result[0]
	assert.Zero(t, e.SolvedToday)
	assert.Zero(t, e.Streak)
	assert.Zero(t, e.WeeklyTotal())
	assert.Empty(t, e.WeeklyTagCount)
}

func TestBuild_DayOffsetMovesTargetAndWindow(t *testing.T) {
	subs := []activity.Submission{
		solve(t, "2024-05-08", 300, "A", 1000),
		solve(t, "2024-05-07", 300, "B", 1000),
		solve(t, "2024-05-10", 300, "C", 1000),
	}

	board, err := Build([]Outcome{ok("alice", 1500, subs...)}, BuildOptions{Now: now, DayOffset: 2})
	require.NoError(t, err)

	assert.Equal(t, "2024-05-08", board.TargetDate)
	assert.Equal(t, 2, board.DayOffset)
	assert.Equal(t, "2024-05-08", board.Window[0])
	assert.Equal(t, "2024-05-02", board.Window[6])

	e := board.Result[0]
	assert.Equal(t, 1, e.SolvedToday)
	assert.Equal(t, 2, e.Streak)
	assert.NotContains(t, e.WeeklySolves, "2024-05-10")
}

func TestBuild_FailedHandleGetsPlaceholder(t *testing.T) {
	outcomes := []Outcome{
		ok("alice", 1500, solve(t, "2024-05-10", 100, "A", 800, "dp")),
		{Handle: "bob", Err: errors.New("upstream timeout")},
		{Handle: "carol"},
	}

	board, err := Build(outcomes, BuildOptions{Now: now})
	require.NoError(t, err)

	assert.Equal(t, 3, board.TotalStudents)
	assert.Equal(t, 1, board.FetchedStudents)
	assert.Equal(t, []string{"bob", "carol"}, board.FailedHandles)
	assert.True(t, board.HasFailures())
	require.Len(t, board.Result, 3)

	bob, found := board.Entry("BOB")
	require.True(t, found)
	assert.True(t, bob.Failed)
	assert.Zero(t, bob.SolvedToday)
	assert.Zero(t, bob.Streak)
	assert.Zero(t, bob.DifficultyCount.Total())
	assert.NotNil(t, bob.TodayProblems)
	assert.Empty(t, bob.TodayProblems)
	assert.Empty(t, bob.WeeklyTagCount)
	require.Len(t, bob.WeeklySolves, 7)
	for _, d := range board.Window {
		assert.Contains(t, bob.WeeklySolves, d)
		assert.Zero(t, bob.WeeklySolves[d])
	}
}

func TestBuild_EmptyRoster(t *testing.T) {
	board, err := Build(nil, BuildOptions{Now: now})
	require.NoError(t, err)

	assert.Empty(t, board.Result)
	assert.Empty(t, board.FailedHandles)
	assert.Empty(t, board.WeeklyTagWinners)
	assert.Nil(t, board.WeeklyWinner)
	assert.Zero(t, board.TotalStudents)
}

func TestBuild_RejectsInvalidOptions(t *testing.T) {
	for _, offset := range []int{-1, 8} {
		_, err := Build(nil, BuildOptions{Now: now, DayOffset: offset})
		assert.ErrorIs(t, err, shared.ErrInvalidDayOffset)
	}

	_, err := Build(nil, BuildOptions{Now: now, SortKey: "xp"})
	assert.ErrorIs(t, err, shared.ErrInvalidSortKey)
}

func TestBuild_WinnersUseRosterOrder(t *testing.T) {
	days := []string{"2024-05-10", "2024-05-09", "2024-05-08", "2024-05-07", "2024-05-06"}
	bobSubs := append(dailySolves(t, 500, days...), solve(t, "2024-05-10", 501, "X", 1000))

	outcomes := []Outcome{
		ok("alice", 1500, dailySolves(t, 400, days...)...),
		ok("bob", 1500, bobSubs...),
	}

	board, err := Build(outcomes, BuildOptions{Now: now})
	require.NoError(t, err)

	assert.Equal(t, "bob", board.Result[0].Handle)
	require.NotNil(t, board.WeeklyWinner)
	assert.Equal(t, "alice", board.WeeklyWinner.Handle)
	assert.Equal(t, 5, board.WeeklyWinner.DaysSolved)
}

func TestBoard_SortedByReturnsIndependentCopy(t *testing.T) {
	outcomes := []Outcome{
		ok("alice", 1900, solve(t, "2024-05-10", 100, "A", 800)),
		ok("bob", 1200, solve(t, "2024-05-10", 100, "A", 800), solve(t, "2024-05-10", 100, "B", 900)),
		ok("carol", 1900),
	}
	board, err := Build(outcomes, BuildOptions{Now: now})
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "alice", "carol"}, handles(board.Result))

	byRating := board.SortedBy(SortByRating)

	assert.Equal(t, []string{"alice", "carol", "bob"}, handles(byRating.Result))
	assert.Equal(t, SortByRating, byRating.SortBy)
	assert.Equal(t, MedalGold, byRating.Result[0].Medal)

	byRating.Result[0].WeeklySolves["2024-05-10"] = 99
	assert.Equal(t, []string{"bob", "alice", "carol"}, handles(board.Result))
	alice, _ := board.Entry("alice")
	assert.Equal(t, 1, alice.WeeklySolves["2024-05-10"])
}

func TestBoard_JSONShape(t *testing.T) {
	board, err := Build([]Outcome{{Handle: "ghost", Err: errors.New("not found")}}, BuildOptions{Now: now})
	require.NoError(t, err)

	raw, err := json.Marshal(board)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"result", "weeklyTagWinners", "weeklyWinner", "totalStudents", "fetchedStudents", "failedHandles", "targetDate"} {
		assert.Contains(t, decoded, key)
	}

	entry := decoded["result"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{}, entry["todayProblems"])
	assert.Equal(t, true, entry["failed"])
	assert.Equal(t, "🥇", entry["medal"])
}
