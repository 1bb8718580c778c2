package leaderboard

import (
	"sort"
	"strings"

	"github.com/cfboard/cfboard/internal/domain/shared"
)

// SortKey selects the board ordering.
type SortKey string

const (
	// SortBySolvedToday orders by today's new solves, most first, and then
	// by rating, lowest first.
	SortBySolvedToday SortKey = "solvedToday"
	// SortByRating orders by rating, highest first.
	SortByRating SortKey = "rating"

	DefaultSortKey = SortBySolvedToday
)

// ParseSortKey accepts "solvedToday" and "rating". An empty value selects
// DefaultSortKey.
func ParseSortKey(raw string) (SortKey, error) {
	switch SortKey(strings.TrimSpace(raw)) {
	case "":
		return DefaultSortKey, nil
	case SortBySolvedToday:
		return SortBySolvedToday, nil
	case SortByRating:
		return SortByRating, nil
	default:
		return "", shared.ErrInvalidSortKey
	}
}

// IsValid reports whether k is a known key.
func (k SortKey) IsValid() bool {
	return k == SortBySolvedToday || k == SortByRating
}

func (k SortKey) less(a, b *Entry) bool {
	switch k {
	case SortByRating:
		return a.Rating > b.Rating
	default:
		if a.SolvedToday != b.SolvedToday {
			return a.SolvedToday > b.SolvedToday
		}
		return a.Rating < b.Rating
	}
}

// Rank orders entries in place by key and assigns 1-based positions and
// medals. The sort is stable, so full ties keep their incoming order.
// An unknown key falls back to DefaultSortKey.
func Rank(entries []Entry, key SortKey) {
	if !key.IsValid() {
		key = DefaultSortKey
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return key.less(&entries[i], &entries[j])
	})

	for i := range entries {
		entries[i].Position = i + 1
		entries[i].Medal = MedalFor(i + 1)
	}
}
