// Package student models the tracked Codeforces users ("students").
//
// The package defines:
//
//   - Handle: a validated Codeforces handle
//   - Profile: rating and rank as reported by user.info
//   - Snapshot: a profile plus the raw submission history fetched in one cycle
//   - Roster and Directory: ports for the list of tracked handles
//   - Source: the port through which snapshots are fetched
//
// Snapshots are immutable once fetched; everything derived from them lives
// in the activity and leaderboard packages.
//
// # Handles
//
// Codeforces handles are case-insensitive. NormalizeHandles trims input,
// drops empty entries and keeps the first spelling of each handle:
//
//	handles := NormalizeHandles([]string{" tourist", "Petr", "TOURIST", ""})
//	// []Handle{"tourist", "Petr"}
package student
