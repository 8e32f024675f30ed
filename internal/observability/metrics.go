package observability

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// Label values shared by callers.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	OutcomeFinalized   = "finalized"
	OutcomeMaintained  = "maintained"
	OutcomeWaiting     = "waiting_on_label"
	OutcomeOffTarget   = "off_target"
	OutcomeOrphaned    = "orphaned"
	OutcomeMissingUser = "missing_user"
	OutcomeTooShort    = "too_short"

	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec

	eventsIngested  prometheus.Counter
	eventsProcessed *prometheus.CounterVec
	xpAwarded       prometheus.Counter
	levelUps        prometheus.Counter
	streakDecisions *prometheus.CounterVec
	vacationUses    *prometheus.CounterVec
	labelLookups    *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics set when METRICS_ENABLED is on.
// A nil *Metrics is valid everywhere and records nothing.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("prometheus metrics initialized")
		}
	})
	return instance
}

// NewMetrics registers every collector on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sn_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "sn_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sn_aggregate_operation_duration_seconds",
			Help:    "Transactional write latency by operation/status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		aggregateConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_aggregate_conflicts_total",
			Help: "Transactional writes that hit a conflict.",
		}, []string{"operation"}),
		aggregateRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_aggregate_retries_total",
			Help: "Transactional writes retried after a transient failure.",
		}, []string{"operation"}),
		jobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_job_runs_total",
			Help: "Background job runs by type/status.",
		}, []string{"job_type", "status"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sn_job_duration_seconds",
			Help:    "Background job duration by type/status.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"job_type", "status"}),
		eventsIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "sn_raw_events_ingested_total",
			Help: "Raw activity pings accepted by the ingest endpoint.",
		}),
		eventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_raw_events_processed_total",
			Help: "Raw activity pings handled by the sessionizer by outcome.",
		}, []string{"outcome"}),
		xpAwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "sn_experience_awarded_total",
			Help: "Sum of positive experience deltas appended to the ledger.",
		}),
		levelUps: f.NewCounter(prometheus.CounterOpts{
			Name: "sn_level_ups_total",
			Help: "Levels gained across all profiles.",
		}),
		streakDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_streak_decisions_total",
			Help: "Streak crediting decisions by kind.",
		}, []string{"decision"}),
		vacationUses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_vacation_credits_used_total",
			Help: "Vacation credits consumed by initiator.",
		}, []string{"source"}),
		labelLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sn_content_label_lookups_total",
			Help: "Content label lookups by cache result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateLatency.WithLabelValues(orUnknown(op), orUnknown(status)).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(orUnknown(op)).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(orUnknown(op)).Inc()
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(orUnknown(jobType), orUnknown(status)).Inc()
	m.jobDuration.WithLabelValues(orUnknown(jobType), orUnknown(status)).Observe(dur.Seconds())
}

func (m *Metrics) AddEventsIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsIngested.Add(float64(n))
}

func (m *Metrics) AddEventsProcessed(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsProcessed.WithLabelValues(orUnknown(outcome)).Add(float64(n))
}

func (m *Metrics) ObserveExperience(delta int64, levelsGained int) {
	if m == nil {
		return
	}
	if delta > 0 {
		m.xpAwarded.Add(float64(delta))
	}
	if levelsGained > 0 {
		m.levelUps.Add(float64(levelsGained))
	}
}

func (m *Metrics) IncStreakDecision(decision string) {
	if m == nil {
		return
	}
	m.streakDecisions.WithLabelValues(orUnknown(decision)).Inc()
}

func (m *Metrics) IncVacationUse(source string) {
	if m == nil {
		return
	}
	m.vacationUses.WithLabelValues(orUnknown(source)).Inc()
}

func (m *Metrics) IncLabelLookup(result string) {
	if m == nil {
		return
	}
	m.labelLookups.WithLabelValues(orUnknown(result)).Inc()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
