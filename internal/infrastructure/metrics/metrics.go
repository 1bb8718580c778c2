// Package metrics exposes Prometheus instruments for the board pipeline,
// the Codeforces client, the caches, the scheduler and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cfboard"

// Board sources reported by BoardServed.
const (
	SourceFresh = "fresh"
	SourceBuilt = "built"
	SourceStale = "stale"
)

// Metrics holds every instrument on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	boardBuildDuration *prometheus.HistogramVec
	boardStudents      *prometheus.GaugeVec
	boardFailedHandles *prometheus.GaugeVec
	boardServed        *prometheus.CounterVec

	cacheLookups *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// New creates the instruments and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codeforces",
			Name:      "requests_total",
			Help:      "Codeforces API calls by method and outcome.",
		}, []string{"method", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "codeforces",
			Name:      "request_duration_seconds",
			Help:      "Codeforces API call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method"}),

		boardBuildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "build_duration_seconds",
			Help:      "Time to fetch every tracked handle and build a board.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"day_offset"}),
		boardStudents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "students",
			Help:      "Tracked handles in the last built board.",
		}, []string{"day_offset"}),
		boardFailedHandles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "failed_handles",
			Help:      "Handles replaced by placeholders in the last built board.",
		}, []string{"day_offset"}),
		boardServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "served_total",
			Help:      "Boards served by source (fresh cache, built, stale fallback).",
		}, []string{"source"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Board cache lookups by tier and result.",
		}, []string{"tier", "result"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.upstreamLatency,
		m.boardBuildDuration,
		m.boardStudents,
		m.boardFailedHandles,
		m.boardServed,
		m.cacheLookups,
		m.httpRequests,
		m.httpDuration,
		m.jobRuns,
		m.jobDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDERS
// ══════════════════════════════════════════════════════════════════════════════

// ObserveRequest records one Codeforces API call.
func (m *Metrics) ObserveRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(method, outcome).Inc()
	m.upstreamLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveBoardBuild records a completed board build.
func (m *Metrics) ObserveBoardBuild(dayOffset, students, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	day := strconv.Itoa(dayOffset)
	m.boardBuildDuration.WithLabelValues(day).Observe(elapsed.Seconds())
	m.boardStudents.WithLabelValues(day).Set(float64(students))
	m.boardFailedHandles.WithLabelValues(day).Set(float64(failed))
}

// BoardServed counts a board returned to a caller.
func (m *Metrics) BoardServed(source string) {
	if m == nil {
		return
	}
	m.boardServed.WithLabelValues(source).Inc()
}

// CacheLookup counts a cache read.
func (m *Metrics) CacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(tier, result).Inc()
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveJob records one scheduled job run.
func (m *Metrics) ObserveJob(job string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
