// Package http serves the dashboard REST API: the day boards, contest
// lists, health probes and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cfboard/cfboard/internal/application/query"
	"github.com/cfboard/cfboard/internal/domain/contest"
	"github.com/cfboard/cfboard/internal/interface/http/handlers"
	"github.com/cfboard/cfboard/pkg/logger"
)

const tracerName = "github.com/cfboard/cfboard/internal/interface/http"

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config is the listener and middleware setup of the API server.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	EnableCORS     bool
	AllowedOrigins []string

	// EnableMetrics exposes GET /metrics when a metrics handler is set.
	EnableMetrics bool

	// RateLimitPerMinute is per client IP. Zero disables limiting.
	RateLimitPerMinute int

	// ContestsMaxAge is the Cache-Control max-age of the contest routes.
	ContestsMaxAge time.Duration

	// Version is reported by the health endpoints.
	Version string
}

// DefaultConfig listens on :3000 with a 2 request per second budget per IP.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               3000,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       5 * time.Minute,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		EnableMetrics:      true,
		RateLimitPerMinute: 120,
		ContestsMaxAge:     time.Minute,
		Version:            "dev",
	}
}

// Address is the host:port the server binds.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardQuery serves day boards.
type LeaderboardQuery interface {
	Handle(ctx context.Context, q query.GetLeaderboardQuery) (*query.GetLeaderboardResult, error)
}

// UpcomingContestsQuery lists contests that have not ended.
type UpcomingContestsQuery interface {
	Handle(ctx context.Context) ([]contest.Upcoming, error)
}

// RecentStandingsQuery returns the tracked group's recent contest results.
type RecentStandingsQuery interface {
	Handle(ctx context.Context) ([]contest.Standings, error)
}

// Metrics records HTTP traffic and exposes the scrape endpoint.
type Metrics interface {
	Handler() http.Handler
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Dependencies are the queries behind the routes. A nil query makes its
// routes answer 501.
type Dependencies struct {
	Leaderboard      LeaderboardQuery
	UpcomingContests UpcomingContestsQuery
	RecentStandings  RecentStandingsQuery

	// Metrics is optional.
	Metrics Metrics

	// HealthChecker defaults to a checker with no checks.
	HealthChecker handlers.HealthChecker

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the dashboard API server.
type Server struct {
	config  Config
	deps    Dependencies
	router  *http.ServeMux
	handler http.Handler
	srv     *http.Server
	logger  *logger.Logger
	limiter *handlers.IPRateLimiter

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewServer wires the routes and the middleware chain. Nothing listens
// until Start.
func NewServer(config Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewCompositeHealthChecker(config.Version)
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: log.With(logger.Component("http")),
	}
	if config.RateLimitPerMinute > 0 {
		s.limiter = handlers.NewIPRateLimiter(config.RateLimitPerMinute, 10*time.Minute)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)
	s.srv = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /healthz", s.handleHealth)
	s.handle("GET /ready", s.handleReady)
	s.handle("GET /live", s.handleLive)
	s.handle("GET /{$}", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// Dashboard API
	// ─────────────────────────────────────────────────────────────────────────
	noCache := handlers.Chain(handlers.NoCacheMiddleware)
	contestsCache := handlers.Chain(handlers.CacheControlMiddleware(s.config.ContestsMaxAge, false))

	s.handle("GET /api/students/today", s.handleToday, noCache)
	s.handle("GET /api/students/day/{offset}", s.handleDay, noCache)
	s.handle("GET /api/contests/upcoming", s.handleUpcomingContests, contestsCache)
	s.handle("GET /api/contests/last-3-standings", s.handleRecentStandings, contestsCache)

	if s.config.EnableMetrics && s.deps.Metrics != nil {
		s.router.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// handle registers fn under pattern. The pattern is the metrics route label.
func (s *Server) handle(pattern string, fn http.HandlerFunc, mw ...handlers.MiddlewareFunc) {
	var h http.Handler = fn
	if len(mw) > 0 {
		h = handlers.ChainHandler(h, mw...)
	}
	if s.deps.Metrics != nil {
		h = s.instrument(pattern, h)
	}
	s.router.Handle(pattern, h)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := recordStatus(w)
		next.ServeHTTP(rec, r)
		s.deps.Metrics.ObserveHTTP(r.Method, route, rec.status, time.Since(start))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

var errAlreadyRunning = errors.New("http: server already running")

// Start binds the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("http: listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. A clean shutdown
// returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		_ = ln.Close()
		return errAlreadyRunning
	}
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if s.limiter != nil {
		go s.sweepLimiter(done)
	}

	s.logger.Info("http server listening", logger.String("address", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: serve: %w", err)
	}
	return nil
}

// StartAsync runs Start in the background. The channel yields the serve
// error, if any, and is then closed.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.Start(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown drains in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}

// IsRunning reports whether Serve is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) sweepLimiter(done <-chan struct{}) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			s.limiter.Sweep()
		}
	}
}
