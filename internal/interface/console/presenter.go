// Package console renders boards, contests and the roster as terminal
// tables for the CLI.
package console

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/cfboard/cfboard/internal/domain/contest"
	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// ══════════════════════════════════════════════════════════════════════════════

// Presenter writes tables to out.
type Presenter struct {
	out io.Writer

	header *color.Color
	first  *color.Color
	warn   *color.Color
	bad    *color.Color
	good   *color.Color
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithoutColor disables ANSI colors regardless of the terminal.
func WithoutColor() Option {
	return func(p *Presenter) {
		for _, c := range []*color.Color{p.header, p.first, p.warn, p.bad, p.good} {
			c.DisableColor()
		}
	}
}

// New creates a presenter writing to out.
func New(out io.Writer, opts ...Option) *Presenter {
	p := &Presenter{
		out:    out,
		header: color.New(color.FgGreen, color.Underline),
		first:  color.New(color.FgYellow),
		warn:   color.New(color.FgYellow, color.Bold),
		bad:    color.New(color.FgRed),
		good:   color.New(color.FgGreen),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Presenter) newTable(headers ...any) table.Table {
	return table.New(headers...).
		WithWriter(p.out).
		WithHeaderFormatter(p.header.SprintfFunc()).
		WithFirstColumnFormatter(p.first.SprintfFunc())
}

// ══════════════════════════════════════════════════════════════════════════════
// BOARD
// ══════════════════════════════════════════════════════════════════════════════

// Board renders the ranked rows followed by the weekly winners.
func (p *Presenter) Board(b *leaderboard.Board) {
	fmt.Fprintf(p.out, "Target date %s (day offset %d), sorted by %s\n", b.TargetDate, b.DayOffset, b.SortBy)
	if b.Stale {
		p.warn.Fprintf(p.out, "Stale board generated at %s\n", b.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintln(p.out)

	tbl := p.newTable("#", "Handle", "Rating", "Max", "Rank", "Today", "Streak", "Week", "Easy/Med1/Med2/Hard")
	for _, e := range b.Result {
		handle := e.Handle
		if e.Failed {
			handle = p.bad.Sprint(handle + " (unavailable)")
		}
		d := e.DifficultyCount
		tbl.AddRow(
			position(e),
			handle,
			e.Rating,
			e.MaxRating,
			e.Rank,
			e.SolvedToday,
			e.Streak,
			e.WeeklyTotal(),
			fmt.Sprintf("%d/%d/%d/%d", d.Easy, d.Med1, d.Med2, d.Hard),
		)
	}
	tbl.Print()

	p.solvedToday(b)

	fmt.Fprintln(p.out)
	if w := b.WeeklyWinner; w != nil {
		p.good.Fprintf(p.out, "Weekly winner: %s (%d active days, rating %d)\n", w.Handle, w.DaysSolved, w.Rating)
	} else {
		fmt.Fprintln(p.out, "Weekly winner: none")
	}

	if len(b.WeeklyTagWinners) > 0 {
		tags := make([]string, 0, len(b.WeeklyTagWinners))
		for tag := range b.WeeklyTagWinners {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		tagTbl := p.newTable("Tag", "Winner", "Solved")
		for _, tag := range tags {
			tw := b.WeeklyTagWinners[tag]
			tagTbl.AddRow(tag, tw.Winner, tw.Count)
		}
		fmt.Fprintln(p.out)
		tagTbl.Print()
	}

	if len(b.FailedHandles) > 0 {
		fmt.Fprintln(p.out)
		p.bad.Fprintf(p.out, "Could not fetch: %s\n", strings.Join(b.FailedHandles, ", "))
	}
}

// solvedToday lists the target date's first solves, one row per problem.
func (p *Presenter) solvedToday(b *leaderboard.Board) {
	tbl := p.newTable("Handle", "Solved on "+b.TargetDate, "Rating")
	rows := 0
	for _, e := range b.Result {
		for _, ref := range e.TodayProblems {
			rating := "-"
			if ref.Rating > 0 {
				rating = strconv.Itoa(ref.Rating)
			}
			tbl.AddRow(e.Handle, ref.Label(), rating)
			rows++
		}
	}
	if rows == 0 {
		return
	}
	fmt.Fprintln(p.out)
	tbl.Print()
}

func position(e leaderboard.Entry) string {
	pos := strconv.Itoa(e.Position)
	if e.Medal != leaderboard.MedalNone {
		return pos + " " + string(e.Medal)
	}
	return pos
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTESTS
// ══════════════════════════════════════════════════════════════════════════════

// Upcoming renders the upcoming contest list.
func (p *Presenter) Upcoming(list []contest.Upcoming) {
	if len(list) == 0 {
		fmt.Fprintln(p.out, "No upcoming contests")
		return
	}

	tbl := p.newTable("ID", "Name", "Start (UTC+6)", "Duration", "Status", "URL")
	for _, c := range list {
		status := ""
		switch {
		case c.IsLive:
			status = p.good.Sprint("LIVE")
		case c.IsSoon:
			status = p.warn.Sprint("soon")
		}
		tbl.AddRow(c.ID, c.Name, c.StartTime, c.Duration, status, c.URL)
	}
	tbl.Print()
}

// Standings renders one table per contest.
func (p *Presenter) Standings(list []contest.Standings) {
	if len(list) == 0 {
		fmt.Fprintln(p.out, "No finished contests")
		return
	}

	for i, s := range list {
		if i > 0 {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintf(p.out, "%s (#%d), %d participated\n", s.Name, s.ContestID, s.ParticipantCount())

		tbl := p.newTable("Handle", "Standing", "Δ")
		for _, pt := range s.Participants {
			if !pt.Participated {
				tbl.AddRow(pt.Handle, contest.NotParticipatedLabel, contest.NoRatingChangeLabel)
				continue
			}
			tbl.AddRow(pt.Handle, pt.Standing, p.delta(pt.RatingChange))
		}
		tbl.Print()
	}
}

func (p *Presenter) delta(d int) string {
	switch {
	case d > 0:
		return p.good.Sprintf("+%d", d)
	case d < 0:
		return p.bad.Sprintf("%d", d)
	default:
		return "0"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// Roster renders the tracked handles in display order.
func (p *Presenter) Roster(handles []student.Handle) {
	if len(handles) == 0 {
		fmt.Fprintln(p.out, "No tracked students")
		return
	}

	tbl := p.newTable("#", "Handle")
	for i, h := range handles {
		tbl.AddRow(i+1, h.String())
	}
	tbl.Print()
}
