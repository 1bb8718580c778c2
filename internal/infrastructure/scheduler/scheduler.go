// Package scheduler runs background jobs on fixed intervals. The service
// uses it to keep the board cache warm so requests rarely wait on the
// judge.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cfboard/cfboard/pkg/logger"
)

var (
	ErrNilJob                  = errors.New("job cannot be nil")
	ErrNilSchedule             = errors.New("schedule cannot be nil")
	ErrJobAlreadyExists        = errors.New("job already exists")
	ErrJobNotFound             = errors.New("job not found")
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")
	ErrSchedulerNotRunning     = errors.New("scheduler is not running")
)

// Job is a unit of background work.
type Job interface {
	Name() string
	Description() string

	// Run does one pass. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// Schedule decides when a job runs next.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

// JobObserver receives one call per finished run.
type JobObserver interface {
	ObserveJob(job string, err error, elapsed time.Duration)
}

// JobResult describes one run.
type JobResult struct {
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
	Manual    bool
}

// Success reports whether the run returned no error.
func (r JobResult) Success() bool { return r.Err == nil }

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	NextRun     time.Time
	RunCount    int64
	FailCount   int64
	LastResult  *JobResult
}

// Config contains configuration for the Scheduler.
type Config struct {
	Logger   *logger.Logger
	Observer JobObserver

	// Tick is how often due jobs are checked. Default 1s.
	Tick time.Duration

	// RunOnStart makes every job due as soon as Start is called.
	RunOnStart bool
}

type entry struct {
	job      Job
	schedule Schedule
	next     time.Time
	busy     bool
	runs     int64
	fails    int64
	last     *JobResult
}

// Scheduler owns a set of jobs and one loop goroutine.
type Scheduler struct {
	cfg Config
	log *logger.Logger
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	since   time.Time
}

func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	return &Scheduler{
		cfg:     cfg,
		log:     cfg.Logger.With(logger.Component("scheduler")),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Register adds job with schedule. Names must be unique.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	switch {
	case job == nil:
		return ErrNilJob
	case schedule == nil:
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}
	e := &entry{job: job, schedule: schedule, next: schedule.Next(s.now())}
	s.entries[name] = e
	s.order = append(s.order, name)

	s.log.Info("job registered",
		logger.String("job", name),
		logger.String("schedule", schedule.String()),
		logger.Time("next_run", e.next),
	)
	return nil
}

// Start launches the loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSchedulerAlreadyRunning
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.since = s.now()
	if s.cfg.RunOnStart {
		for _, e := range s.entries {
			e.next = s.since
		}
	}

	s.log.Info("scheduler started", logger.Int("jobs_count", len(s.entries)))

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return ErrSchedulerNotRunning
	}
	cancel()
	s.wg.Wait()

	s.log.Info("scheduler stopped", logger.Duration("uptime", s.now().Sub(s.since)))
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		s.dispatch(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// dispatch starts every due job that is not still running from a previous
// tick.
func (s *Scheduler) dispatch(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*entry
	for _, name := range s.order {
		e := s.entries[name]
		if e.busy || now.Before(e.next) {
			continue
		}
		e.busy = true
		e.next = e.schedule.Next(now)
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			s.execute(ctx, e, false)

			s.mu.Lock()
			e.busy = false
			s.mu.Unlock()
		}(e)
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry, manual bool) JobResult {
	name := e.job.Name()
	start := s.now()

	err := e.job.Run(ctx)
	result := JobResult{
		JobName:   name,
		StartedAt: start,
		Duration:  s.now().Sub(start),
		Err:       err,
		Manual:    manual,
	}

	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveJob(name, err, result.Duration)
	}

	s.mu.Lock()
	e.runs++
	if err != nil {
		e.fails++
	}
	e.last = &result
	s.mu.Unlock()

	switch {
	case err == nil:
		s.log.Info("job completed", logger.String("job", name), logger.Latency(result.Duration), logger.Bool("manual", manual))
	case errors.Is(err, context.Canceled):
		s.log.Info("job cancelled", logger.String("job", name))
	default:
		s.log.Error("job failed", logger.String("job", name), logger.Latency(result.Duration), logger.Err(err))
	}
	return result
}

// RunNow runs a job by name on the caller's goroutine, ignoring its
// schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*JobResult, error) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	result := s.execute(ctx, e, true)
	return &result, result.Err
}

// ListJobs returns the registered jobs in registration order.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.order))
	for _, name := range s.order {
		e := s.entries[name]
		info := JobInfo{
			Name:        name,
			Description: e.job.Description(),
			Schedule:    e.schedule.String(),
			NextRun:     e.next,
			RunCount:    e.runs,
			FailCount:   e.fails,
		}
		if e.last != nil {
			last := *e.last
			info.LastResult = &last
		}
		infos = append(infos, info)
	}
	return infos
}

// Check reports the last failed run of any job, for health endpoints.
// Jobs that have not run yet count as healthy.
func (s *Scheduler) Check(context.Context) error {
	var errs []error
	for _, info := range s.ListJobs() {
		if info.LastResult != nil && !info.LastResult.Success() {
			errs = append(errs, fmt.Errorf("%s: %w", info.Name, info.LastResult.Err))
		}
	}
	return errors.Join(errs...)
}
