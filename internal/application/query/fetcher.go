package query

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/pkg/logger"
	"github.com/cfboard/cfboard/pkg/retry"
)

const tracerName = "github.com/cfboard/cfboard/internal/application/query"

// ══════════════════════════════════════════════════════════════════════════════
// BATCH FETCH POLICY
// ══════════════════════════════════════════════════════════════════════════════

// FetchPolicy controls how a roster is walked against the judge.
type FetchPolicy struct {
	// UserDelay is the idle gap between the end of one user's fetch and the
	// start of the next.
	UserDelay time.Duration

	// MaxAttempts bounds the tries per user, first try included.
	MaxAttempts int

	// RetryDelay is the fixed wait between two tries of the same user.
	RetryDelay time.Duration
}

// DefaultFetchPolicy returns 300ms pacing and 3 attempts one second apart.
func DefaultFetchPolicy() FetchPolicy {
	return FetchPolicy{
		UserDelay:   300 * time.Millisecond,
		MaxAttempts: 3,
		RetryDelay:  time.Second,
	}
}

func (p FetchPolicy) withDefaults() FetchPolicy {
	def := DefaultFetchPolicy()
	if p.UserDelay < 0 {
		p.UserDelay = 0
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.RetryDelay < 0 {
		p.RetryDelay = 0
	}
	return p
}

// fetched is the result of one handle's fetch after retries.
type fetched[T any] struct {
	handle student.Handle
	value  T
	err    error
}

// fetchEach walks handles in order, one at a time, waiting UserDelay after
// each handle's fetch ends before the next one starts. Each handle is
// retried per the policy; a handle whose retries run out keeps its error.
// Only context cancellation stops the walk.
func fetchEach[T any](
	ctx context.Context,
	policy FetchPolicy,
	log *logger.Logger,
	span string,
	handles []student.Handle,
	fetch func(ctx context.Context, handle student.Handle) (T, error),
) ([]fetched[T], error) {
	policy = policy.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	tracer := otel.Tracer(tracerName)

	out := make([]fetched[T], 0, len(handles))
	for i, handle := range handles {
		if i > 0 {
			if err := pause(ctx, policy.UserDelay); err != nil {
				return nil, err
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		retrier := retry.UpstreamRetrier(policy.MaxAttempts, policy.RetryDelay,
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				log.Debug("retrying fetch",
					logger.Handle(handle.String()),
					logger.Attempt(attempt),
					logger.Duration("delay", delay),
					logger.Err(err),
				)
			}),
		)

		spanCtx, sp := tracer.Start(ctx, span, trace.WithAttributes(attribute.String("cf.handle", handle.String())))
		value, err := retry.DoWithData(spanCtx, retrier, func(ctx context.Context) (T, error) {
			return fetch(ctx, handle)
		})
		if err != nil {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, err.Error())
		}
		sp.End()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			log.Warn("fetch failed, giving up on handle",
				logger.Handle(handle.String()),
				logger.Err(err),
			)
		}

		out = append(out, fetched[T]{handle: handle, value: value, err: err})
	}

	return out, nil
}

// pause waits d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
