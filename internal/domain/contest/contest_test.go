package contest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

func TestListUpcoming_FiltersAndOrders(t *testing.T) {
	contests := []Contest{
		{ID: 1, Name: "Far", Phase: PhaseBefore, StartTime: now.Add(72 * time.Hour), Duration: 2 * time.Hour},
		{ID: 2, Name: "Old", Phase: PhaseFinished, StartTime: now.Add(-72 * time.Hour), Duration: 2 * time.Hour},
		{ID: 3, Name: "Soon", Phase: PhaseBefore, StartTime: now.Add(3 * time.Hour), Duration: 2*time.Hour + 15*time.Minute},
		{ID: 4, Name: "Live", Phase: PhaseCoding, StartTime: now.Add(-time.Hour), Duration: 2 * time.Hour},
		{ID: 5, Name: "Nearer", Phase: PhaseBefore, StartTime: now.Add(48 * time.Hour), Duration: time.Hour},
		{ID: 6, Name: "Testing", Phase: PhaseSystemTest, StartTime: now.Add(-3 * time.Hour), Duration: time.Hour},
	}

	list := ListUpcoming(contests, now)

	ids := make([]int, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []int{4, 3, 5, 1}, ids)

	assert.True(t, list[0].IsLive)
	assert.False(t, list[0].IsSoon)
	assert.True(t, list[1].IsSoon)
	assert.Equal(t, "2h 15m", list[1].Duration)
	assert.Equal(t, "https://codeforces.com/contests/3", list[1].URL)
	// 15:00 UTC is 21:00 at UTC+6
	assert.Equal(t, "04/05/2024, 21:00:00", list[1].StartTime)
}

func TestListUpcoming_Empty(t *testing.T) {
	list := ListUpcoming(nil, now)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestLatestFinished(t *testing.T) {
	contests := []Contest{
		{ID: 1, Phase: PhaseFinished, StartTime: now.Add(-10 * 24 * time.Hour)},
		{ID: 2, Phase: PhaseFinished, StartTime: now.Add(-2 * 24 * time.Hour)},
		{ID: 3, Phase: PhaseBefore, StartTime: now.Add(24 * time.Hour)},
		{ID: 4, Phase: PhaseFinished, StartTime: now.Add(-5 * 24 * time.Hour)},
		{ID: 5, Phase: PhaseFinished, StartTime: now.Add(-1 * 24 * time.Hour)},
	}

	latest := LatestFinished(contests, 3)

	require.Len(t, latest, 3)
	assert.Equal(t, 5, latest[0].ID)
	assert.Equal(t, 2, latest[1].ID)
	assert.Equal(t, 4, latest[2].ID)
}

func TestBuildStandings_OrdersByRankNonParticipantsLast(t *testing.T) {
	c := Contest{ID: 1900, Name: "Round 900"}
	history := map[string][]RatingChange{
		"alice": {{ContestID: 1800, Rank: 10}, {ContestID: 1900, Rank: 350, OldRating: 1500, NewRating: 1540}},
		"bob":   {{ContestID: 1900, Rank: 120, OldRating: 1700, NewRating: 1680}},
		"carol": {{ContestID: 1800, Rank: 5}},
		// dave's history failed to load
	}

	s := BuildStandings(c, []string{"carol", "alice", "dave", "bob"}, history)

	require.Len(t, s.Participants, 4)
	assert.Equal(t, "bob", s.Participants[0].Handle)
	assert.Equal(t, -20, s.Participants[0].RatingChange)
	assert.Equal(t, "alice", s.Participants[1].Handle)
	assert.Equal(t, 40, s.Participants[1].RatingChange)
	assert.Equal(t, "carol", s.Participants[2].Handle)
	assert.Equal(t, "dave", s.Participants[3].Handle)
	assert.False(t, s.Participants[3].Participated)
	assert.Equal(t, 2, s.ParticipantCount())
}

func TestParticipant_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Participant{Handle: "dave"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"handle":"dave","standing":"Did not participate","ratingChange":"—"}`, string(b))

	b, err = json.Marshal(Participant{Handle: "bob", Participated: true, Standing: 120, RatingChange: -20})
	require.NoError(t, err)
	assert.JSONEq(t, `{"handle":"bob","standing":120,"ratingChange":-20}`, string(b))
}
