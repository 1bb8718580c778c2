package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cfboard/cfboard/internal/domain/activity"
	"github.com/cfboard/cfboard/internal/domain/contest"
	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/internal/domain/student"
)

func newPresenter() (*Presenter, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, WithoutColor()), &buf
}

func TestBoard(t *testing.T) {
	p, buf := newPresenter()

	p.Board(&leaderboard.Board{
		TargetDate: "2024-05-04",
		SortBy:     leaderboard.SortBySolvedToday,
		Result: []leaderboard.Entry{
			{
				Handle: "alice", Rating: 1500, MaxRating: 1600, Rank: "specialist", SolvedToday: 2, Position: 1, Medal: leaderboard.MedalGold,
				TodayProblems: []activity.ProblemRef{
					{Name: "Two Buttons", Rating: 1400, ContestID: 520, Index: "B"},
					{Name: "Unrated Warmup", ContestID: 1900, Index: "A"},
				},
			},
			{Handle: "ghost", Rank: "-", Position: 2, Failed: true},
		},
		WeeklyWinner:     &leaderboard.WeeklyWinner{Handle: "alice", DaysSolved: 5, Rating: 1500},
		WeeklyTagWinners: map[string]leaderboard.TagWinner{"dp": {Winner: "alice", Count: 4}},
		FailedHandles:    []string{"ghost"},
		Stale:            true,
		GeneratedAt:      time.Date(2024, 5, 4, 6, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "Target date 2024-05-04")
	assert.Contains(t, out, "Stale board")
	assert.Contains(t, out, "1 🥇")
	assert.Contains(t, out, "ghost (unavailable)")
	assert.Contains(t, out, "Solved on 2024-05-04")
	assert.Contains(t, out, "520B Two Buttons")
	assert.Contains(t, out, "1900A Unrated Warmup")
	assert.Contains(t, out, "Weekly winner: alice (5 active days, rating 1500)")
	assert.Contains(t, out, "dp")
	assert.Contains(t, out, "Could not fetch: ghost")
	assert.NotContains(t, out, "\x1b[")
}

func TestBoard_NoWinner(t *testing.T) {
	p, buf := newPresenter()
	p.Board(&leaderboard.Board{TargetDate: "2024-05-04"})
	assert.Contains(t, buf.String(), "Weekly winner: none")
	assert.NotContains(t, buf.String(), "Solved on")
}

func TestUpcoming(t *testing.T) {
	p, buf := newPresenter()
	p.Upcoming([]contest.Upcoming{
		{ID: 1, Name: "Live Round", IsLive: true, Duration: "2h 0m"},
		{ID: 2, Name: "Soon Round", IsSoon: true},
	})

	out := buf.String()
	assert.Contains(t, out, "LIVE")
	assert.Contains(t, out, "soon")
	assert.Contains(t, out, "2h 0m")

	buf.Reset()
	p.Upcoming(nil)
	assert.Equal(t, "No upcoming contests\n", buf.String())
}

func TestStandings(t *testing.T) {
	p, buf := newPresenter()
	p.Standings([]contest.Standings{{
		ContestID: 1900,
		Name:      "Round 900",
		Participants: []contest.Participant{
			{Handle: "bob", Participated: true, Standing: 120, RatingChange: -20},
			{Handle: "alice", Participated: true, Standing: 350, RatingChange: 40},
			{Handle: "dave"},
		},
	}})

	out := buf.String()
	assert.Contains(t, out, "Round 900 (#1900), 2 participated")
	assert.Contains(t, out, "-20")
	assert.Contains(t, out, "+40")
	assert.Contains(t, out, "Did not participate")
}

func TestRoster(t *testing.T) {
	p, buf := newPresenter()
	p.Roster([]student.Handle{"tourist", "Petr"})
	assert.Contains(t, buf.String(), "tourist")
	assert.Contains(t, buf.String(), "Petr")

	buf.Reset()
	p.Roster(nil)
	assert.Equal(t, "No tracked students\n", buf.String())
}
