package activity

import (
	"sort"

	"github.com/cfboard/cfboard/pkg/timeutil"
)

// FirstSolve is the earliest accepted submission of one problem.
type FirstSolve struct {
	// Date is the board date (UTC+6) of Submission.
	Date       string
	Submission Submission
}

// FirstSolveIndex maps every problem a student has ever solved to its
// first accepted submission. A problem counts as solved for daily, weekly
// and streak purposes only on that date.
type FirstSolveIndex map[ProblemKey]FirstSolve

// BuildFirstSolveIndex reduces a full submission history to first solves.
// Input order does not matter. Ties on timestamp are broken by the lower
// submission id.
func BuildFirstSolveIndex(submissions []Submission) FirstSolveIndex {
	idx := make(FirstSolveIndex)

	for _, s := range submissions {
		if !s.Accepted() {
			continue
		}

		key := s.Problem.Key()
		if cur, ok := idx[key]; ok && !s.before(cur.Submission) {
			continue
		}
		idx[key] = FirstSolve{
			Date:       timeutil.DateOf(s.CreatedAt),
			Submission: s,
		}
	}

	return idx
}

// DateOf returns the first-solve date of a problem.
func (idx FirstSolveIndex) DateOf(key ProblemKey) (string, bool) {
	fs, ok := idx[key]
	return fs.Date, ok
}

// Dates returns the set of dates with at least one first solve.
func (idx FirstSolveIndex) Dates() map[string]struct{} {
	dates := make(map[string]struct{}, len(idx))
	for _, fs := range idx {
		dates[fs.Date] = struct{}{}
	}
	return dates
}

// SolvedOn returns the problems first solved on date, ordered by
// submission time.
func (idx FirstSolveIndex) SolvedOn(date string) []ProblemRef {
	solves := idx.between(date, date)

	refs := make([]ProblemRef, 0, len(solves))
	for _, fs := range solves {
		refs = append(refs, refOf(fs.Submission.Problem))
	}
	return refs
}

// between returns first solves with from <= Date <= to, in chronological
// order. ISO dates compare lexicographically.
func (idx FirstSolveIndex) between(from, to string) []FirstSolve {
	out := make([]FirstSolve, 0)
	for _, fs := range idx {
		if fs.Date >= from && fs.Date <= to {
			out = append(out, fs)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Submission, out[j].Submission
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.Problem.Key().Less(b.Problem.Key())
	})
	return out
}
