package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ordersync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ordersync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Sync engine metrics
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ordersync",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ordersync",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of a full sync run in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"provider"},
	)

	recordsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ordersync",
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Total number of records upserted",
		},
		[]string{"provider"},
	)

	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ordersync",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Outbound provider API requests by provider and result",
		},
		[]string{"provider", "result"},
	)

	throttleQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ordersync",
			Subsystem: "throttle",
			Name:      "queue_depth",
			Help:      "Pending requests waiting in a provider throttle queue",
		},
		[]string{"provider"},
	)

	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ordersync",
			Subsystem: "token",
			Name:      "refresh_total",
			Help:      "OAuth token refresh attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
)

// RecordSyncRun records a finished sync run
func RecordSyncRun(provider, outcome string, duration time.Duration) {
	syncRunsTotal.WithLabelValues(provider, outcome).Inc()
	syncDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordsSynced adds to the upserted record counter
func RecordsSynced(provider string, n int) {
	recordsSynced.WithLabelValues(provider).Add(float64(n))
}

// RecordProviderRequest records one outbound API call
func RecordProviderRequest(provider, result string) {
	providerRequestsTotal.WithLabelValues(provider, result).Inc()
}

// SetQueueDepth reports the current throttle queue depth
func SetQueueDepth(provider string, depth int) {
	throttleQueueDepth.WithLabelValues(provider).Set(float64(depth))
}

// RecordTokenRefresh records one token refresh attempt
func RecordTokenRefresh(provider, outcome string) {
	tokenRefreshTotal.WithLabelValues(provider, outcome).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status for HTTP metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP handlers with request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}
