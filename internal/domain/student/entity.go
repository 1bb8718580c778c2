package student

import (
	"strings"
	"time"

	"github.com/cfboard/cfboard/internal/domain/activity"
	"github.com/cfboard/cfboard/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLE
// ══════════════════════════════════════════════════════════════════════════════

// Handle is a Codeforces handle.
type Handle string

const (
	minHandleLen = 3
	maxHandleLen = 24
)

// NewHandle trims and validates a handle.
func NewHandle(raw string) (Handle, error) {
	h := Handle(strings.TrimSpace(raw))
	if err := h.Validate(); err != nil {
		return "", err
	}
	return h, nil
}

// Validate checks length and the allowed alphabet (letters, digits, _ - .).
func (h Handle) Validate() error {
	if h == "" {
		return shared.ErrEmptyHandle
	}
	if len(h) < minHandleLen || len(h) > maxHandleLen {
		return shared.ErrInvalidHandle
	}
	for _, r := range h {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return shared.ErrInvalidHandle
		}
	}
	return nil
}

// String returns the handle as given.
func (h Handle) String() string {
	return string(h)
}

// Equal compares handles case-insensitively.
func (h Handle) Equal(other Handle) bool {
	return strings.EqualFold(string(h), string(other))
}

// NormalizeHandles trims entries, drops empty ones and removes
// case-insensitive duplicates, keeping the first occurrence and order.
func NormalizeHandles(raw []string) []Handle {
	seen := make(map[string]struct{}, len(raw))
	out := make([]Handle, 0, len(raw))
	for _, r := range raw {
		h := strings.TrimSpace(r)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Handle(h))
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE & SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// UnknownRank is shown for unrated users.
const UnknownRank = "-"

// Profile is what user.info reports about a student.
// Rating and MaxRating are 0 for unrated users.
type Profile struct {
	Handle    Handle
	Rating    int
	MaxRating int
	Rank      string
}

// NewProfile applies the display defaults: MaxRating falls back to Rating
// and an empty rank becomes UnknownRank.
func NewProfile(handle Handle, rating, maxRating int, rank string) Profile {
	if maxRating == 0 {
		maxRating = rating
	}
	if strings.TrimSpace(rank) == "" {
		rank = UnknownRank
	}
	return Profile{
		Handle:    handle,
		Rating:    rating,
		MaxRating: maxRating,
		Rank:      rank,
	}
}

// Snapshot is one student's raw data from a single fetch cycle.
type Snapshot struct {
	Profile     Profile
	Submissions []activity.Submission
	FetchedAt   time.Time
}

// NewSnapshot builds a snapshot. The submission slice is copied.
func NewSnapshot(profile Profile, submissions []activity.Submission, fetchedAt time.Time) *Snapshot {
	subs := make([]activity.Submission, len(submissions))
	copy(subs, submissions)
	return &Snapshot{
		Profile:     profile,
		Submissions: subs,
		FetchedAt:   fetchedAt,
	}
}
