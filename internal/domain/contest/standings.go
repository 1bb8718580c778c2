package contest

import (
	"encoding/json"
	"sort"
)

// Labels used when a handle has no result in a contest.
const (
	NotParticipatedLabel = "Did not participate"
	NoRatingChangeLabel  = "—"
)

// RatingChange is one entry of user.rating.
type RatingChange struct {
	ContestID int
	Rank      int
	OldRating int
	NewRating int
}

// Delta returns the rating change.
func (rc RatingChange) Delta() int {
	return rc.NewRating - rc.OldRating
}

// Participant is one tracked handle's result in a contest.
type Participant struct {
	Handle       string
	Participated bool
	Standing     int
	RatingChange int
}

// MarshalJSON renders non-participants with the dashboard's text labels
// in place of numbers.
func (p Participant) MarshalJSON() ([]byte, error) {
	type out struct {
		Handle       string `json:"handle"`
		Standing     any    `json:"standing"`
		RatingChange any    `json:"ratingChange"`
	}
	if !p.Participated {
		return json.Marshal(out{Handle: p.Handle, Standing: NotParticipatedLabel, RatingChange: NoRatingChangeLabel})
	}
	return json.Marshal(out{Handle: p.Handle, Standing: p.Standing, RatingChange: p.RatingChange})
}

// Standings is the tracked group's result in one contest.
type Standings struct {
	ContestID    int           `json:"contestId"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
}

// ParticipantCount returns how many handles took part.
func (s Standings) ParticipantCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.Participated {
			n++
		}
	}
	return n
}

// BuildStandings matches each handle's rating history against c. handles
// keeps roster order; history holds each handle's user.rating entries
// (a missing handle means its history could not be fetched).
// Participants are ordered by contest rank, non-participants last.
func BuildStandings(c Contest, handles []string, history map[string][]RatingChange) Standings {
	participants := make([]Participant, 0, len(handles))
	for _, h := range handles {
		p := Participant{Handle: h}
		for _, rc := range history[h] {
			if rc.ContestID == c.ID {
				p.Participated = true
				p.Standing = rc.Rank
				p.RatingChange = rc.Delta()
				break
			}
		}
		participants = append(participants, p)
	}

	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.Participated != b.Participated {
			return a.Participated
		}
		if !a.Participated {
			return false
		}
		return a.Standing < b.Standing
	})

	return Standings{
		ContestID:    c.ID,
		Name:         c.Name,
		Participants: participants,
	}
}
