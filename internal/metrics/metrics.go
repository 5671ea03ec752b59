package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyrot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyrot_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyrot_evaluations_total",
			Help: "Total number of transform evaluations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	evaluatedPoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyrot_evaluated_points_total",
			Help: "Total number of coordinate pairs transformed.",
		},
		[]string{"kind"},
	)

	evaluationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyrot_evaluation_duration_seconds",
			Help:    "Duration of a single batch evaluation in seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"kind"},
	)

	batchChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyrot_batch_chunks_total",
			Help: "Total number of chunks dispatched to batch workers.",
		},
	)

	batchWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyrot_batch_workers",
			Help: "Configured number of batch evaluation workers.",
		},
	)

	catalogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyrot_catalog_entries",
			Help: "Number of named transforms loaded from configuration.",
		},
	)

	limiterRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyrot_limiter_rejections_total",
			Help: "Evaluation requests rejected by the per-client concurrency limit.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		evaluationsTotal,
		evaluatedPoints,
		evaluationDurationSeconds,
		batchChunks,
		batchWorkers,
		catalogEntries,
		limiterRejections,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEvaluation records one evaluation of a transform kind.
func RecordEvaluation(kind string, points int, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	evaluationsTotal.WithLabelValues(kind, outcome).Inc()
	if err == nil {
		evaluatedPoints.WithLabelValues(kind).Add(float64(points))
	}
	evaluationDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// AddBatchChunks counts chunks handed to workers.
func AddBatchChunks(n int) {
	batchChunks.Add(float64(n))
}

// SetBatchWorkers sets the configured worker count.
func SetBatchWorkers(n int) {
	batchWorkers.Set(float64(n))
}

// SetCatalogEntries sets the number of loaded catalog entries.
func SetCatalogEntries(n int) {
	catalogEntries.Set(float64(n))
}

// IncLimiterRejections counts a request turned away by the concurrency limit.
func IncLimiterRejections() {
	limiterRejections.Inc()
}

// knownRoutes are exact paths reported as their own label.
var knownRoutes = map[string]bool{
	"/":                  true,
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/transforms": true,
	"/api/v1/evaluate":   true,
}

// normalizeRoute collapses parameterized and unknown paths so the path label
// stays bounded no matter what clients request.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/transforms/"); ok && rest != "" {
		name, sub, _ := strings.Cut(rest, "/")
		if name == "" {
			return "other"
		}
		switch sub {
		case "":
			return "/api/v1/transforms/{name}"
		case "inverse", "evaluate":
			return "/api/v1/transforms/{name}/" + sub
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
