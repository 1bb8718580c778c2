package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cfboard/cfboard/config"
	"github.com/cfboard/cfboard/internal/application/command"
	"github.com/cfboard/cfboard/internal/application/query"
	"github.com/cfboard/cfboard/internal/domain/leaderboard"
	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/internal/infrastructure/external/codeforces"
	"github.com/cfboard/cfboard/internal/infrastructure/metrics"
	"github.com/cfboard/cfboard/internal/infrastructure/persistence/file"
	"github.com/cfboard/cfboard/internal/infrastructure/persistence/memory"
	"github.com/cfboard/cfboard/internal/infrastructure/persistence/postgres"
	"github.com/cfboard/cfboard/internal/infrastructure/persistence/redis"
	"github.com/cfboard/cfboard/internal/infrastructure/scheduler"
	"github.com/cfboard/cfboard/internal/infrastructure/scheduler/jobs"
	"github.com/cfboard/cfboard/internal/infrastructure/telemetry"
	"github.com/cfboard/cfboard/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION WIRING
// ══════════════════════════════════════════════════════════════════════════════

// app holds every component built from the configuration. Optional
// components (db, redis) are nil when not configured.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   *metrics.Metrics
	telemetry *telemetry.Telemetry

	client *codeforces.Client
	db     *postgres.Connection
	redis  *redis.Cache

	roster    student.Roster
	directory student.Directory
	cache     leaderboard.Cache

	leaderboard *query.GetLeaderboardHandler
	upcoming    *query.GetUpcomingContestsHandler
	standings   *query.GetRecentStandingsHandler
	manage      *command.ManageRosterHandler
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. TRACING
	// ─────────────────────────────────────────────────────────────────────────
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    string(cfg.App.Environment),
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		Insecure:       cfg.Observability.OTLPInsecure,
		SampleRatio:    cfg.Observability.SampleRatio,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	a.telemetry = tel

	// ─────────────────────────────────────────────────────────────────────────
	// 2. CODEFORCES CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	cf := cfg.Codeforces
	a.client = codeforces.NewClient(codeforces.ClientConfig{
		BaseURL:           cf.BaseURL,
		APIKey:            cf.APIKey,
		APISecret:         cf.APISecret,
		Timeout:           cf.RequestTimeout,
		RequestsPerSecond: cf.RequestsPerSecond,
		Burst:             cf.Burst,
		SubmissionCount:   cf.SubmissionCount,
		BreakerThreshold:  cf.CircuitBreakerThreshold,
		BreakerTimeout:    cf.CircuitBreakerTimeout,
		Logger:            log,
		Observer:          a.metrics,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ROSTER
	// ─────────────────────────────────────────────────────────────────────────
	switch cfg.Roster.Source {
	case config.RosterSourcePostgres:
		if err := a.openDatabase(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
		repo := postgres.NewRosterRepository(a.db)
		a.roster, a.directory = repo, repo
	default:
		a.roster = file.NewRoster(cfg.Roster.File)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. BOARD CACHE (memory, optionally backed by redis)
	// ─────────────────────────────────────────────────────────────────────────
	cacheOpts := []memory.Option{
		memory.WithRecorder(a.metrics),
		memory.WithLogger(log),
	}
	if cfg.Redis.Enabled {
		rc, err := redis.NewCache(redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("redis unavailable, using the in-process cache only", logger.Err(err))
		} else {
			a.redis = rc
			cacheOpts = append(cacheOpts, memory.WithSharedTier(redis.NewBoardCache(rc, cfg.Board.CacheTTL, log)))
		}
	}
	a.cache = memory.NewBoardCache(cfg.Board.CacheTTL, cacheOpts...)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. USE CASES
	// ─────────────────────────────────────────────────────────────────────────
	policy := query.FetchPolicy{
		UserDelay:   cf.UserDelay,
		MaxAttempts: cf.MaxAttempts,
		RetryDelay:  cf.RetryDelay,
	}
	a.leaderboard = query.NewGetLeaderboardHandler(a.roster, a.client, a.cache,
		query.WithFetchPolicy(policy),
		query.WithBuildRecorder(a.metrics),
		query.WithLeaderboardLogger(log),
		query.WithBuildTimeout(cfg.Board.BuildTimeout),
	)
	a.upcoming = query.NewGetUpcomingContestsHandler(a.client, time.Now)
	a.standings = query.NewGetRecentStandingsHandler(a.roster, a.client, a.client, policy, log)
	if a.directory != nil {
		a.manage = command.NewManageRosterHandler(a.directory, a.client, log)
	}

	return a, nil
}

func (a *app) openDatabase(ctx context.Context) error {
	conn, err := postgres.NewConnection(ctx, a.databaseConfig())
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.db = conn
	return nil
}

func (a *app) databaseConfig() postgres.Config {
	pg := postgres.DefaultConfig()
	pg.URL = a.cfg.Database.URL
	if a.cfg.Database.MaxConns > 0 {
		pg.MaxConns = a.cfg.Database.MaxConns
	}
	if a.cfg.Database.MinConns > 0 {
		pg.MinConns = a.cfg.Database.MinConns
	}
	pg.MaxConnLifetime = a.cfg.Database.ConnMaxLifetime
	pg.MaxConnIdleTime = a.cfg.Database.ConnMaxIdleTime
	return pg
}

func (a *app) newScheduler(runOnStart bool) *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		Logger:     a.log,
		Observer:   a.metrics,
		RunOnStart: runOnStart,
	})
}

// warmJob builds the cache warm job. Replicas coordinate through redis
// when it is connected.
func (a *app) warmJob() *jobs.WarmLeaderboardJob {
	var locker jobs.Locker
	if a.redis != nil {
		locker = a.redis
	}
	return jobs.NewWarmLeaderboardJob(a.leaderboard, locker, a.log, jobs.WarmLeaderboardConfig{
		DayOffsets: a.cfg.Scheduler.WarmDayOffsets,
		Timeout:    a.cfg.Scheduler.JobTimeout,
		LockTTL:    a.cfg.Scheduler.LockTTL,
	})
}

// errNoDirectory is returned by roster edits when handles live in a file.
var errNoDirectory = errors.New("roster editing requires ROSTER_SOURCE=postgres")

// Close releases every opened resource.
func (a *app) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", logger.Err(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.log.Warn("shutdown telemetry", logger.Err(err))
		}
	}
	a.log.Sync()
}
