// Package retry runs calls to the Codeforces API a bounded number of times
// with a fixed pause between attempts. Scheduling is delegated to
// github.com/cenkalti/backoff/v4; this package adds error classification.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

type markerKind int

const (
	kindRetryable markerKind = iota + 1
	kindPermanent
)

// marker tags an error as worth retrying or not. Do strips it.
type marker struct {
	kind markerKind
	err  error
}

func (m *marker) Error() string { return m.err.Error() }
func (m *marker) Unwrap() error { return m.err }

func mark(kind markerKind, err error) error {
	if err == nil {
		return nil
	}
	return &marker{kind: kind, err: err}
}

func hasMark(err error, kind markerKind) bool {
	var m *marker
	for err != nil {
		if !errors.As(err, &m) {
			return false
		}
		if m.kind == kind {
			return true
		}
		err = m.err
	}
	return false
}

// Retryable marks a transient failure (5xx, 429, network).
func Retryable(err error) error { return mark(kindRetryable, err) }

// Permanent marks a failure that another attempt cannot fix (unknown
// handle, malformed request).
func Permanent(err error) error { return mark(kindPermanent, err) }

func IsRetryable(err error) bool { return hasMark(err, kindRetryable) }
func IsPermanent(err error) bool { return hasMark(err, kindPermanent) }

// UnlessPermanent retries everything except permanent errors and context
// cancellation.
func UnlessPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsPermanent(err)
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Config holds retry settings.
type Config struct {
	// MaxAttempts counts the first call. Default 3.
	MaxAttempts int

	// Delay is the pause before every retry. Default 1s.
	Delay time.Duration

	// RetryIf decides whether an error is retried. If nil only errors
	// marked Retryable are.
	RetryIf func(error) bool

	// OnRetry is called before each pause with the attempt that failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig matches the per-handle fetch policy.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, Delay: time.Second}
}

type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithConstantDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Delay = d
		}
	}
}

func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) { c.RetryIf = fn }
}

func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// Retrier runs operations under one Config.
type Retrier struct {
	config Config
}

func New(opts ...Option) *Retrier {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Retrier{config: config}
}

func (r *Retrier) Config() Config {
	return r.config
}

// Do calls operation until it succeeds, returns a non-retried error, the
// attempts run out or ctx is done. The returned error has its Retryable or
// Permanent mark removed.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attempt := 0
	op := func() error {
		attempt++
		err := operation(ctx)
		switch {
		case err == nil:
			return nil
		case IsPermanent(err), !r.retries(err):
			return backoff.Permanent(unmark(err))
		default:
			return err
		}
	}

	var notify backoff.Notify
	if r.config.OnRetry != nil {
		notify = func(err error, delay time.Duration) {
			r.config.OnRetry(attempt, unmark(err), delay)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.config.Delay), uint64(r.config.MaxAttempts-1)),
		ctx,
	)
	return unmark(backoff.RetryNotify(op, policy, notify))
}

func (r *Retrier) retries(err error) bool {
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return IsRetryable(err)
}

func unmark(err error) error {
	if m, ok := err.(*marker); ok {
		return m.err
	}
	return err
}

// Do runs operation with a one-off Retrier.
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, operation)
}

// DoWithData is Do for operations that return a value.
func DoWithData[T any](ctx context.Context, r *Retrier, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = operation(ctx)
		return opErr
	})
	return result, err
}

// UpstreamRetrier is the per-handle Codeforces policy: fixed delay, every
// non-permanent error retried. opts are applied last.
func UpstreamRetrier(maxAttempts int, delay time.Duration, opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(maxAttempts),
		WithConstantDelay(delay),
		WithRetryIf(UnlessPermanent),
	}
	return New(append(base, opts...)...)
}
