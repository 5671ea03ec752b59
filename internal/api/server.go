// Package api exposes the transform catalog and ad-hoc evaluation over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/skyrot/internal/auth"
	"github.com/star/skyrot/internal/batch"
	"github.com/star/skyrot/internal/catalog"
	"github.com/star/skyrot/internal/health"
	"github.com/star/skyrot/internal/metrics"
)

// Options configures the HTTP server.
type Options struct {
	Addr               string
	Auth               auth.Config
	TrustProxy         bool // honor X-Forwarded-For / X-Real-IP
	MaxPoints          int  // per-request coordinate pair budget
	MaxConcurrentPerIP int
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, logger *slog.Logger, cat *catalog.Catalog, pool *batch.Pool) *Server {
	h := &handlers{
		logger:     logger,
		catalog:    cat,
		pool:       pool,
		limiter:    newEvalLimiter(opts.MaxConcurrentPerIP),
		maxPoints:  opts.MaxPoints,
		trustProxy: opts.TrustProxy,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(h.ready))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/transforms", h.listTransforms)
	mux.HandleFunc("GET /api/v1/transforms/{name}", h.getTransform)
	mux.HandleFunc("GET /api/v1/transforms/{name}/inverse", h.getInverse)
	mux.HandleFunc("POST /api/v1/transforms/{name}/evaluate", h.evaluateNamed)
	mux.HandleFunc("POST /api/v1/evaluate", h.evaluateInline)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
