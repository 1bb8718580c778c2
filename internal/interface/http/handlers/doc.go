// Package handlers contains HTTP health checks and reusable middleware.
//
// # Health Checks
//
// Checks are registered by name and run in parallel, each under its own
// timeout. Critical checks decide readiness; optional ones only degrade
// health:
//
//	checker := handlers.NewCompositeHealthChecker(version)
//	checker.AddCheck("postgres", handlers.NewPingCheck(conn))
//	checker.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
//	checker.AddOptionalCheck("codeforces", handlers.NewBreakerCheck(client.Breaker()))
//
// # Middleware
//
//	handler := handlers.ChainHandler(
//	    mux,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	)
package handlers
