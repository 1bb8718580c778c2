// Package circuitbreaker stops calling the Codeforces API after repeated
// failures and probes it again after a cool-down. It wraps sony/gobreaker
// with the option style and context-aware Execute used across cfboard.
package circuitbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

var (
	// ErrCircuitOpen is returned while the circuit is open.
	ErrCircuitOpen = gobreaker.ErrOpenState
	// ErrTooManyRequests is returned when the half-open probe budget is spent.
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// Config holds circuit breaker configuration.
type Config struct {
	Name string

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int

	// Probes is how many half-open calls are let through; that many
	// consecutive successes close the circuit again.
	Probes int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State)

	// CountsAgainst decides whether an error counts as an upstream failure.
	// If nil, all non-nil errors count.
	CountsAgainst func(error) bool
}

// DefaultConfig returns the breaker settings used for the judge API.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		Probes:           1,
		Timeout:          30 * time.Second,
	}
}

// Option configures a breaker.
type Option func(*Config)

// WithFailureThreshold sets the consecutive failure count that trips the circuit.
func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

// WithProbes sets the half-open probe budget.
func WithProbes(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Probes = n
		}
	}
}

// WithTimeout sets the open-state duration.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithOnStateChange sets the transition callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) {
		c.OnStateChange = fn
	}
}

// WithCountsAgainst sets the failure classifier.
func WithCountsAgainst(fn func(error) bool) Option {
	return func(c *Config) {
		c.CountsAgainst = fn
	}
}

// Counts are the request counters of the current generation.
type Counts struct {
	Requests             int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker guards calls to one upstream.
type CircuitBreaker struct {
	config Config
	cb     *gobreaker.CircuitBreaker
}

// New creates a breaker.
func New(name string, opts ...Option) *CircuitBreaker {
	config := DefaultConfig(name)
	for _, opt := range opts {
		opt(&config)
	}

	threshold := uint32(config.FailureThreshold)
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: uint32(config.Probes),
		Timeout:     config.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
	}
	if config.CountsAgainst != nil {
		countsAgainst := config.CountsAgainst
		settings.IsSuccessful = func(err error) bool {
			return err == nil || !countsAgainst(err)
		}
	}
	if config.OnStateChange != nil {
		onChange := config.OnStateChange
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			onChange(name, fromGobreaker(from), fromGobreaker(to))
		}
	}

	return &CircuitBreaker{
		config: config,
		cb:     gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs fn if the circuit allows it and records the outcome. A
// context that is already done is reported without touching the counters.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

// State returns the current state.
func (b *CircuitBreaker) State() State {
	return fromGobreaker(b.cb.State())
}

// Counts returns the counters of the current generation.
func (b *CircuitBreaker) Counts() Counts {
	c := b.cb.Counts()
	return Counts{
		Requests:             int(c.Requests),
		TotalSuccesses:       int(c.TotalSuccesses),
		TotalFailures:        int(c.TotalFailures),
		ConsecutiveSuccesses: int(c.ConsecutiveSuccesses),
		ConsecutiveFailures:  int(c.ConsecutiveFailures),
	}
}

// Name returns the breaker name.
func (b *CircuitBreaker) Name() string {
	return b.config.Name
}

// IsOpen reports whether calls are currently rejected.
func (b *CircuitBreaker) IsOpen() bool {
	return b.State() == StateOpen
}

// CodeforcesBreaker returns the breaker for the Codeforces API. Errors for
// which countsAgainst returns false (unknown handles, bad requests) never
// open the circuit.
func CodeforcesBreaker(threshold int, timeout time.Duration, countsAgainst func(error) bool, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(
		"codeforces-api",
		WithFailureThreshold(threshold),
		WithProbes(1),
		WithTimeout(timeout),
		WithCountsAgainst(countsAgainst),
		WithOnStateChange(onStateChange),
	)
}
