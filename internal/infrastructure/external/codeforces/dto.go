package codeforces

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE WRAPPER
// ══════════════════════════════════════════════════════════════════════════════

// Status values of the response envelope.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// Envelope is the wrapper around every Codeforces API response.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	Result  T      `json:"result"`
}

// APIError is a FAILED envelope or an unexpected HTTP status.
type APIError struct {
	Method     string
	HTTPStatus int
	Comment    string
}

func (e *APIError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("codeforces %s: status %d", e.Method, e.HTTPStatus)
	}
	return fmt.Sprintf("codeforces %s: status %d: %s", e.Method, e.HTTPStatus, e.Comment)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER DTOs
// ══════════════════════════════════════════════════════════════════════════════

// UserDTO is an element of user.info. Rating fields are absent for
// unrated users.
type UserDTO struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating,omitempty"`
	MaxRating int    `json:"maxRating,omitempty"`
	Rank      string `json:"rank,omitempty"`
	MaxRank   string `json:"maxRank,omitempty"`
}

// RatingChangeDTO is an element of user.rating.
type RatingChangeDTO struct {
	ContestID               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Handle                  string `json:"handle"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ProblemDTO is the problem embedded in a submission.
type ProblemDTO struct {
	ContestID int      `json:"contestId,omitempty"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// SubmissionDTO is an element of user.status. Verdict is absent while
// the submission is still being judged.
type SubmissionDTO struct {
	ID                  int64      `json:"id"`
	ContestID           int        `json:"contestId,omitempty"`
	CreationTimeSeconds int64      `json:"creationTimeSeconds"`
	Problem             ProblemDTO `json:"problem"`
	ProgrammingLanguage string     `json:"programmingLanguage,omitempty"`
	Verdict             string     `json:"verdict,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEST DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ContestDTO is an element of contest.list.
type ContestDTO struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Phase               string `json:"phase"`
	DurationSeconds     int64  `json:"durationSeconds"`
	StartTimeSeconds    int64  `json:"startTimeSeconds,omitempty"`
	RelativeTimeSeconds int64  `json:"relativeTimeSeconds,omitempty"`
}
