// Package activity derives per-student solve statistics from a raw
// Codeforces submission history: first solves, the problems solved on a
// given day, streaks, weekly counts and difficulty buckets.
// This is a pure domain layer with zero external dependencies beyond
// the board calendar helpers.
package activity

import (
	"fmt"
	"strings"
)

// Verdict is the judge's verdict for a submission.
type Verdict string

const (
	// VerdictOK marks an accepted submission.
	VerdictOK Verdict = "OK"

	// Other common verdicts. Only VerdictOK affects statistics.
	VerdictWrongAnswer       Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictCompilationError  Verdict = "COMPILATION_ERROR"
	VerdictTesting           Verdict = "TESTING"
)

// ProblemKey identifies a problem by (contestId, index).
type ProblemKey struct {
	ContestID int
	Index     string
}

// String returns the conventional "1900A" form.
func (k ProblemKey) String() string {
	return fmt.Sprintf("%d%s", k.ContestID, k.Index)
}

// Less orders keys by contest, then index.
func (k ProblemKey) Less(other ProblemKey) bool {
	if k.ContestID != other.ContestID {
		return k.ContestID < other.ContestID
	}
	return k.Index < other.Index
}

// Problem is the problem metadata attached to a submission.
// Rating is 0 when the problem is unrated.
type Problem struct {
	ContestID int
	Index     string
	Name      string
	Rating    int
	Tags      []string
}

// Key returns the problem identity.
func (p Problem) Key() ProblemKey {
	return ProblemKey{ContestID: p.ContestID, Index: p.Index}
}

// Rated reports whether the problem has a difficulty rating.
func (p Problem) Rated() bool {
	return p.Rating > 0
}

// Submission is one judged attempt. CreatedAt is UTC epoch seconds.
type Submission struct {
	ID        int64
	Verdict   Verdict
	CreatedAt int64
	Problem   Problem
}

// Accepted reports whether the submission was judged correct.
func (s Submission) Accepted() bool {
	return s.Verdict == VerdictOK
}

// before orders submissions by time, then id.
func (s Submission) before(other Submission) bool {
	if s.CreatedAt != other.CreatedAt {
		return s.CreatedAt < other.CreatedAt
	}
	return s.ID < other.ID
}

// ProblemRef is the public view of a newly solved problem.
type ProblemRef struct {
	Name      string   `json:"name"`
	Rating    int      `json:"rating,omitempty"`
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Tags      []string `json:"tags"`
}

// URL returns the problem page on codeforces.com.
func (r ProblemRef) URL() string {
	return fmt.Sprintf("https://codeforces.com/problemset/problem/%d/%s", r.ContestID, r.Index)
}

// Label is the short "1900A Name" form used by terminal output.
func (r ProblemRef) Label() string {
	return strings.TrimSpace(fmt.Sprintf("%d%s %s", r.ContestID, r.Index, r.Name))
}

func refOf(p Problem) ProblemRef {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	return ProblemRef{
		Name:      p.Name,
		Rating:    p.Rating,
		ContestID: p.ContestID,
		Index:     p.Index,
		Tags:      tags,
	}
}
