package leaderboard

import (
	"sort"
	"time"

	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/pkg/timeutil"
)

// MaxDayOffset is the oldest day the board can be built for.
const MaxDayOffset = 7

// ValidateDayOffset checks that offset is within 0..MaxDayOffset.
func ValidateDayOffset(offset int) error {
	if offset < 0 || offset > MaxDayOffset {
		return shared.ErrInvalidDayOffset
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BOARD
// ══════════════════════════════════════════════════════════════════════════════

// Outcome is the result of fetching one tracked handle. Exactly one of
// Snapshot and Err is expected to be set; a nil Snapshot counts as failed.
type Outcome struct {
	Handle   student.Handle
	Snapshot *student.Snapshot
	Err      error
}

// Failed reports whether the handle needs a placeholder.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.Snapshot == nil
}

// BuildOptions parameterizes Build.
type BuildOptions struct {
	// Now is the reference instant. The target date is derived from it.
	Now       time.Time
	DayOffset int
	SortKey   SortKey
	// ID identifies the built board.
	ID string
}

// Board is the complete dashboard payload for one target date.
type Board struct {
	ID         string   `json:"id"`
	TargetDate string   `json:"targetDate"`
	DayOffset  int      `json:"dayOffset"`
	Window     []string `json:"window"`
	SortBy     SortKey  `json:"sortBy"`
	Result     []Entry  `json:"result"`
	// WeeklyTagWinners is keyed by tag.
	WeeklyTagWinners map[string]TagWinner `json:"weeklyTagWinners"`
	WeeklyWinner     *WeeklyWinner        `json:"weeklyWinner"`

	TotalStudents   int      `json:"totalStudents"`
	FetchedStudents int      `json:"fetchedStudents"`
	FailedHandles   []string `json:"failedHandles"`
	// Roster lists every row's handle in roster order.
	Roster []string `json:"roster"`

	GeneratedAt time.Time `json:"generatedAt"`
	// Stale is set when a cached board is served after a failed refresh.
	Stale bool `json:"stale,omitempty"`
}

// Build aggregates every outcome, in roster order, into a ranked board.
// Failed handles become placeholders and are listed in FailedHandles;
// they never fail the build. Winners are selected over roster order
// before ranking. An empty outcome list yields an empty board.
func Build(outcomes []Outcome, opts BuildOptions) (*Board, error) {
	if err := ValidateDayOffset(opts.DayOffset); err != nil {
		return nil, err
	}
	key := opts.SortKey
	if key == "" {
		key = DefaultSortKey
	}
	if !key.IsValid() {
		return nil, shared.ErrInvalidSortKey
	}

	target := timeutil.TargetDate(opts.Now, opts.DayOffset)
	window, err := timeutil.WeekWindow(target)
	if err != nil {
		return nil, shared.WrapError("leaderboard", "Build", shared.ErrInvalidFormat, "cannot build window", err)
	}

	entries := make([]Entry, 0, len(outcomes))
	roster := make([]string, 0, len(outcomes))
	failed := make([]string, 0)
	for _, o := range outcomes {
		var e Entry
		if o.Failed() {
			e = Placeholder(o.Handle.String(), window)
			failed = append(failed, e.Handle)
		} else {
			e = Aggregate(o.Snapshot, target, window)
		}
		entries = append(entries, e)
		roster = append(roster, e.Handle)
	}

	board := &Board{
		ID:               opts.ID,
		TargetDate:       target,
		DayOffset:        opts.DayOffset,
		Window:           window,
		SortBy:           key,
		WeeklyTagWinners: SelectTagWinners(entries),
		WeeklyWinner:     SelectWeeklyWinner(entries),
		TotalStudents:    len(outcomes),
		FetchedStudents:  len(outcomes) - len(failed),
		FailedHandles:    failed,
		Roster:           roster,
		GeneratedAt:      opts.Now.UTC(),
	}

	Rank(entries, key)
	board.Result = entries
	return board, nil
}

// SortedBy returns a copy of the board ranked by key. The receiver is not
// modified, so a cached board can be shared between requests.
func (b *Board) SortedBy(key SortKey) *Board {
	if !key.IsValid() {
		key = DefaultSortKey
	}

	out := *b
	out.SortBy = key
	out.Window = append([]string(nil), b.Window...)
	out.FailedHandles = append([]string(nil), b.FailedHandles...)
	out.Roster = append([]string(nil), b.Roster...)
	out.WeeklyTagWinners = make(map[string]TagWinner, len(b.WeeklyTagWinners))
	for tag, w := range b.WeeklyTagWinners {
		out.WeeklyTagWinners[tag] = w
	}
	if b.WeeklyWinner != nil {
		ww := *b.WeeklyWinner
		out.WeeklyWinner = &ww
	}

	// Re-rank from roster order so ties resolve the same way as in Build.
	out.Result = make([]Entry, len(b.Result))
	for i, e := range b.Result {
		out.Result[i] = e.clone()
	}
	sortByRosterOrder(out.Result, b.Roster)
	Rank(out.Result, key)
	return &out
}

func sortByRosterOrder(entries []Entry, roster []string) {
	order := make(map[string]int, len(roster))
	for i, h := range roster {
		order[h] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return order[entries[i].Handle] < order[entries[j].Handle]
	})
}

// Entry returns the row for handle, compared case-insensitively.
func (b *Board) Entry(handle string) (Entry, bool) {
	h := student.Handle(handle)
	for _, e := range b.Result {
		if h.Equal(student.Handle(e.Handle)) {
			return e, true
		}
	}
	return Entry{}, false
}

// HasFailures reports whether any handle was replaced by a placeholder.
func (b *Board) HasFailures() bool {
	return len(b.FailedHandles) > 0
}
