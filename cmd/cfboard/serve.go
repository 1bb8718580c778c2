package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cfboard/cfboard/internal/infrastructure/scheduler"
	httpapi "github.com/cfboard/cfboard/internal/interface/http"
	"github.com/cfboard/cfboard/internal/interface/http/handlers"
	"github.com/cfboard/cfboard/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the board refresh scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := a.log

	log.Info("starting cfboard",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("roster_source", cfg.Roster.Source),
		logger.Bool("redis", a.redis != nil),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	if a.db != nil {
		health.AddCheck("postgres", handlers.NewPingCheck(a.db))
	}
	if a.redis != nil {
		health.AddOptionalCheck("redis", handlers.NewPingCheck(a.redis))
	}
	health.AddOptionalCheck("codeforces", handlers.NewBreakerCheck(a.client.Breaker()))

	// ─────────────────────────────────────────────────────────────────────────
	// SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = a.newScheduler(cfg.Scheduler.RunOnStart)
		warm := a.warmJob()
		if err := sched.Register(warm, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshInterval)); err != nil {
			return fmt.Errorf("register warm job: %w", err)
		}
		health.AddOptionalCheck("scheduler", sched.Check)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	httpCfg.Version = cfg.App.Version

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		Leaderboard:      a.leaderboard,
		UpcomingContests: a.upcoming,
		RecentStandings:  a.standings,
		Metrics:          a.metrics,
		HealthChecker:    health,
		Logger:           log,
	})
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error("http server stopped", logger.Err(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Warn("stop scheduler", logger.Err(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown http server", logger.Err(err))
	}

	log.Info("cfboard stopped")
	return serveErr
}
