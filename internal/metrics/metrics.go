package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthsync_sync_runs_total",
		Help: "Total number of sync runs by outcome.",
	}, []string{"status"})

	syncActivitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthsync_sync_activities_total",
		Help: "Total number of activities upserted by sync runs.",
	})

	syncDaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthsync_sync_days_total",
		Help: "Total number of daily metric rows upserted by sync runs.",
	})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "healthsync_sync_duration_seconds",
		Help:    "Histogram of sync run durations.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "healthsync_circuit_breaker_state",
		Help: "External-service circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"breaker"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthsync_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})
)

// ObserveSyncSuccess records a completed run and its counts.
func ObserveSyncSuccess(activities, days int, elapsed time.Duration) {
	syncRunsTotal.WithLabelValues("success").Inc()
	syncActivitiesTotal.Add(float64(activities))
	syncDaysTotal.Add(float64(days))
	syncDuration.Observe(elapsed.Seconds())
}

// ObserveSyncError records a failed run.
func ObserveSyncError(elapsed time.Duration) {
	syncRunsTotal.WithLabelValues("error").Inc()
	syncDuration.Observe(elapsed.Seconds())
}

// SetBreakerState records a circuit breaker state transition.
func SetBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	breakerState.WithLabelValues(name).Set(v)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records per-route request counts.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		})
	}
}
