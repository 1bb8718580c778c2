package student

import (
	"context"

	"github.com/cfboard/cfboard/internal/domain/contest"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Implementations live in infrastructure/persistence and infrastructure/external.
// ══════════════════════════════════════════════════════════════════════════════

// Roster lists the tracked handles in display order.
type Roster interface {
	// Handles returns the normalized tracked handles. An empty roster is
	// not an error.
	Handles(ctx context.Context) ([]Handle, error)
}

// Directory is a Roster that can be edited.
type Directory interface {
	Roster

	// Add starts tracking a handle.
	// Returns ErrHandleExists if it is already tracked.
	Add(ctx context.Context, handle Handle) error

	// Remove stops tracking a handle.
	// Returns ErrHandleNotFound if it is not tracked.
	Remove(ctx context.Context, handle Handle) error
}

// Source fetches raw student data from the judge.
type Source interface {
	// FetchSnapshot returns the profile and the most recent submissions of
	// one handle.
	FetchSnapshot(ctx context.Context, handle Handle) (*Snapshot, error)

	// RatingHistory returns the rated contests a handle took part in.
	RatingHistory(ctx context.Context, handle Handle) ([]contest.RatingChange, error)
}
