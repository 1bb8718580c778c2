// Package codeforces implements the Codeforces API client.
// It fetches user profiles, submissions, rating histories and the contest
// list, and maps them to domain types.
package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cfboard/cfboard/internal/domain/contest"
	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/pkg/circuitbreaker"
	"github.com/cfboard/cfboard/pkg/logger"
	"github.com/cfboard/cfboard/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://codeforces.com/api"

// ClientConfig contains configuration for the Codeforces API client.
type ClientConfig struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// APIKey and APISecret enable signed requests when both are set.
	APIKey    string
	APISecret string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RequestsPerSecond and Burst pace every call made by the client.
	RequestsPerSecond float64
	Burst             int

	// SubmissionCount bounds user.status; older submissions are not seen.
	SubmissionCount int

	// BreakerThreshold consecutive upstream failures open the circuit for
	// BreakerTimeout.
	BreakerThreshold int
	BreakerTimeout   time.Duration

	// Logger for structured logging.
	Logger *logger.Logger

	// Observer receives per-request outcomes, typically metrics.
	Observer Observer
}

// DefaultClientConfig returns the defaults used by the dashboard.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 4,
		Burst:             2,
		SubmissionCount:   500,
		BreakerThreshold:  5,
		BreakerTimeout:    30 * time.Second,
	}
}

// Observer is notified after every API call.
type Observer interface {
	ObserveRequest(method, outcome string, elapsed time.Duration)
}

// Request outcomes reported to the Observer.
const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeRejected    = "circuit_open"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Codeforces API client. It is safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *logger.Logger
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	signer     *Signer
	mapper     *Mapper
	tracer     trace.Tracer
	now        func() time.Time
}

// NewClient creates a new Codeforces API client.
func NewClient(config ClientConfig) *Client {
	def := DefaultClientConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.SubmissionCount <= 0 {
		config.SubmissionCount = def.SubmissionCount
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = def.BreakerThreshold
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = def.BreakerTimeout
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	log := config.Logger.With(logger.Component("codeforces"))

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     log,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		breaker: circuitbreaker.CodeforcesBreaker(
			config.BreakerThreshold,
			config.BreakerTimeout,
			countsAgainstUpstream,
			func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		),
		signer: NewSigner(config.APIKey, config.APISecret),
		mapper: NewMapper(),
		tracer: otel.Tracer("github.com/cfboard/cfboard/codeforces"),
		now:    time.Now,
	}
}

// Breaker exposes the circuit breaker for health checks.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// ══════════════════════════════════════════════════════════════════════════════
// RAW API METHODS
// ══════════════════════════════════════════════════════════════════════════════

// UserInfo calls user.info for one or more handles.
func (c *Client) UserInfo(ctx context.Context, handles ...string) ([]UserDTO, error) {
	params := url.Values{}
	params.Set("handles", strings.Join(handles, ";"))

	var users []UserDTO
	if err := c.call(ctx, "user.info", params, &users); err != nil {
		return nil, fmt.Errorf("user.info %s: %w", strings.Join(handles, ";"), err)
	}
	return users, nil
}

// UserStatus calls user.status for the most recent count submissions.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]SubmissionDTO, error) {
	params := url.Values{}
	params.Set("handle", handle)
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(count))

	var subs []SubmissionDTO
	if err := c.call(ctx, "user.status", params, &subs); err != nil {
		return nil, fmt.Errorf("user.status %s: %w", handle, err)
	}
	return subs, nil
}

// UserRating calls user.rating.
func (c *Client) UserRating(ctx context.Context, handle string) ([]RatingChangeDTO, error) {
	params := url.Values{}
	params.Set("handle", handle)

	var changes []RatingChangeDTO
	if err := c.call(ctx, "user.rating", params, &changes); err != nil {
		return nil, fmt.Errorf("user.rating %s: %w", handle, err)
	}
	return changes, nil
}

// ContestList calls contest.list.
func (c *Client) ContestList(ctx context.Context, gym bool) ([]ContestDTO, error) {
	params := url.Values{}
	params.Set("gym", strconv.FormatBool(gym))

	var contests []ContestDTO
	if err := c.call(ctx, "contest.list", params, &contests); err != nil {
		return nil, fmt.Errorf("contest.list: %w", err)
	}
	return contests, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// FetchSnapshot fetches the profile and the latest submissions of handle.
// The two calls run concurrently; either failing fails the snapshot.
func (c *Client) FetchSnapshot(ctx context.Context, handle student.Handle) (*student.Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "codeforces.FetchSnapshot",
		trace.WithAttributes(attribute.String("cf.handle", handle.String())))
	defer span.End()

	var (
		users []UserDTO
		subs  []SubmissionDTO
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = c.UserInfo(gctx, handle.String())
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = c.UserStatus(gctx, handle.String(), c.config.SubmissionCount)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(users) == 0 {
		err := retry.Permanent(shared.WrapError("codeforces", "FetchSnapshot", shared.ErrNotFound,
			"user.info returned no user", fmt.Errorf("handle %s", handle)))
		span.RecordError(err)
		return nil, err
	}

	submissions := c.mapper.SubmissionsFromDTOs(subs)
	span.SetAttributes(attribute.Int("cf.submissions", len(submissions)))

	return student.NewSnapshot(c.mapper.ProfileFromDTO(&users[0]), submissions, c.now()), nil
}

// RatingHistory returns the rated contests handle took part in.
func (c *Client) RatingHistory(ctx context.Context, handle student.Handle) ([]contest.RatingChange, error) {
	dtos, err := c.UserRating(ctx, handle.String())
	if err != nil {
		return nil, err
	}
	return c.mapper.RatingChangesFromDTOs(dtos), nil
}

// Profile returns the user.info profile of handle, with the handle in the
// judge's canonical case.
func (c *Client) Profile(ctx context.Context, handle student.Handle) (student.Profile, error) {
	users, err := c.UserInfo(ctx, handle.String())
	if err != nil {
		return student.Profile{}, err
	}
	if len(users) == 0 {
		return student.Profile{}, retry.Permanent(shared.WrapError("codeforces", "Profile", shared.ErrNotFound,
			"user.info returned no user", fmt.Errorf("handle %s", handle)))
	}
	return c.mapper.ProfileFromDTO(&users[0]), nil
}

// Contests returns all non-gym contests.
func (c *Client) Contests(ctx context.Context) ([]contest.Contest, error) {
	dtos, err := c.ContestList(ctx, false)
	if err != nil {
		return nil, err
	}
	return c.mapper.ContestsFromDTOs(dtos), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// call performs one API call through the circuit breaker and the rate
// limiter. Errors are marked retry.Retryable or retry.Permanent; the
// client itself never retries.
func (c *Client) call(ctx context.Context, method string, params url.Values, result any) error {
	start := time.Now()

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return c.doSingleRequest(ctx, method, params, result)
	})

	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	if c.config.Observer != nil {
		c.config.Observer.ObserveRequest(method, outcome, elapsed)
	}

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrServiceUnavailable, "circuit open", err))
		}
		c.logger.Debug("codeforces request failed",
			logger.UpstreamMethod(method),
			logger.Latency(elapsed),
			logger.Err(err),
		)
		return err
	}

	c.logger.Debug("codeforces request",
		logger.UpstreamMethod(method),
		logger.Latency(elapsed),
	)
	return nil
}

// doSingleRequest performs a single HTTP request and decodes the envelope
// into result.
func (c *Client) doSingleRequest(ctx context.Context, method string, params url.Values, result any) error {
	if c.signer != nil {
		params = c.signer.Sign(method, params)
	}

	fullURL := c.config.BaseURL + "/" + method
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrServiceUnavailable, "read response", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrRateLimited, "rate limit exceeded",
			&APIError{Method: method, HTTPStatus: resp.StatusCode}))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrServiceUnavailable, "upstream error",
			&APIError{Method: method, HTTPStatus: resp.StatusCode}))
	}

	var envelope Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return retry.Permanent(&APIError{Method: method, HTTPStatus: resp.StatusCode})
		}
		return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrExternalService, "invalid response", err))
	}

	if envelope.Status != StatusOK {
		return classifyFailure(method, resp.StatusCode, envelope.Comment)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return retry.Permanent(shared.WrapError("codeforces", method, shared.ErrExternalService, "decode result", err))
		}
	}
	return nil
}

// classifyFailure turns a FAILED envelope into a marked error.
func classifyFailure(method string, status int, comment string) error {
	apiErr := &APIError{Method: method, HTTPStatus: status, Comment: comment}
	lower := strings.ToLower(comment)

	switch {
	case strings.Contains(lower, "not found"):
		return retry.Permanent(shared.WrapError("codeforces", method, shared.ErrNotFound, "handle not found", apiErr))
	case strings.Contains(lower, "call limit exceeded"):
		return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrRateLimited, "call limit exceeded", apiErr))
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return retry.Permanent(apiErr)
	default:
		return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrExternalService, "request failed", apiErr))
	}
}

// classifyTransportError marks network errors retryable. Cancellation of
// the caller's context is returned as is.
func classifyTransportError(ctx context.Context, method string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrTimeout, "request timeout", err))
	}
	return retry.Retryable(shared.WrapError("codeforces", method, shared.ErrServiceUnavailable, "request failed", err))
}

// countsAgainstUpstream reports whether err says something about upstream
// health. Unknown handles and cancelled requests do not.
func countsAgainstUpstream(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !retry.IsPermanent(err)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return OutcomeRejected
	case errors.Is(err, shared.ErrRateLimited):
		return OutcomeRateLimited
	case retry.IsPermanent(err):
		return OutcomeFailed
	default:
		return OutcomeError
	}
}
