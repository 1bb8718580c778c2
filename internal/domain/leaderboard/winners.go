package leaderboard

// MinActiveDays is how many window days a student needs to qualify as
// weekly winner.
const MinActiveDays = 5

// WeeklyWinner is the most consistent student of the window.
type WeeklyWinner struct {
	Handle     string `json:"handle"`
	DaysSolved int    `json:"daysSolved"`
	Rating     int    `json:"rating"`
}

// TagWinner is the student with the most in-window first solves for a tag.
type TagWinner struct {
	Winner string `json:"winner"`
	Count  int    `json:"count"`
}

// SelectWeeklyWinner picks, among entries with at least MinActiveDays
// active days, the one with the most active days, then the highest
// rating, then the first in entries order. It returns nil when nobody
// qualifies.
func SelectWeeklyWinner(entries []Entry) *WeeklyWinner {
	var best *WeeklyWinner
	for i := range entries {
		e := &entries[i]
		days := e.DaysSolved()
		if days < MinActiveDays {
			continue
		}
		if best == nil ||
			days > best.DaysSolved ||
			(days == best.DaysSolved && e.Rating > best.Rating) {
			best = &WeeklyWinner{Handle: e.Handle, DaysSolved: days, Rating: e.Rating}
		}
	}
	return best
}

// SelectTagWinners picks a winner for every tag some entry has a positive
// count for: highest count, then highest rating, then first in entries
// order. Tags nobody solved are absent.
func SelectTagWinners(entries []Entry) map[string]TagWinner {
	type leader struct {
		TagWinner
		rating int
	}

	leaders := make(map[string]leader)
	for i := range entries {
		e := &entries[i]
		for tag, count := range e.WeeklyTagCount {
			if count <= 0 {
				continue
			}
			cur, ok := leaders[tag]
			if !ok ||
				count > cur.Count ||
				(count == cur.Count && e.Rating > cur.rating) {
				leaders[tag] = leader{TagWinner: TagWinner{Winner: e.Handle, Count: count}, rating: e.Rating}
			}
		}
	}

	out := make(map[string]TagWinner, len(leaders))
	for tag, l := range leaders {
		out[tag] = l.TagWinner
	}
	return out
}
