// Package timeutil provides calendar helpers for the board's fixed UTC+6 day.
// Every student shares one definition of "today": the UTC instant shifted by
// six hours, with no daylight saving and no per-user zones.
// All functions are pure; the current instant is always passed in.
package timeutil

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// BoardOffset is the fixed offset of the board's calendar day.
	BoardOffset = 6 * time.Hour

	// DateLayout is the canonical date format. Strings in this layout
	// compare lexicographically in calendar order.
	DateLayout = "2006-01-02"

	// DisplayLayout is used for human-facing contest start times.
	DisplayLayout = "02/01/2006, 15:04:05"

	// WeekDays is the length of the trailing weekly window.
	WeekDays = 7
)

// BoardTZ is the fixed UTC+6 zone (Asia/Dhaka has no DST).
var BoardTZ = time.FixedZone("Asia/Dhaka", int(BoardOffset.Seconds()))

// ══════════════════════════════════════════════════════════════════════════════
// CONVERSION
// ══════════════════════════════════════════════════════════════════════════════

// DateOf returns the board date of a UTC epoch-seconds timestamp.
func DateOf(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).In(BoardTZ).Format(DateLayout)
}

// FormatDate formats t as a board date.
func FormatDate(t time.Time) string {
	return t.In(BoardTZ).Format(DateLayout)
}

// FormatDisplay formats t as "DD/MM/YYYY, HH:MM:SS" in the board zone.
func FormatDisplay(t time.Time) string {
	return t.In(BoardTZ).Format(DisplayLayout)
}

// ParseDate parses a YYYY-MM-DD string as midnight in the board zone.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, BoardTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q: %w", date, err)
	}
	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DAY ARITHMETIC
// ══════════════════════════════════════════════════════════════════════════════

// TargetDate returns the board date dayOffset days before now.
// dayOffset 0 is today.
func TargetDate(now time.Time, dayOffset int) string {
	return FormatDate(now.In(BoardTZ).AddDate(0, 0, -dayOffset))
}

// Window returns n contiguous board dates starting at target and walking
// backward: target, target-1, ..., target-(n-1).
func Window(target string, n int) ([]string, error) {
	t, err := ParseDate(target)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}

	days := make([]string, n)
	for i := 0; i < n; i++ {
		days[i] = FormatDate(t.AddDate(0, 0, -i))
	}
	return days, nil
}

// WeekWindow is Window(target, WeekDays).
func WeekWindow(target string) ([]string, error) {
	return Window(target, WeekDays)
}

// ══════════════════════════════════════════════════════════════════════════════
// DURATIONS
// ══════════════════════════════════════════════════════════════════════════════

// FormatHoursMinutes renders a duration as "<h>h <m>m", dropping seconds.
func FormatHoursMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
