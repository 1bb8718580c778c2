package scheduler

import "time"

// defaultInterval replaces a non-positive interval.
const defaultInterval = time.Minute

// IntervalSchedule fires every Interval after the previous run.
type IntervalSchedule struct {
	Interval time.Duration
}

func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &IntervalSchedule{Interval: interval}
}

func (s *IntervalSchedule) Next(t time.Time) time.Time { return t.Add(s.Interval) }

func (s *IntervalSchedule) String() string { return "@every " + s.Interval.String() }
