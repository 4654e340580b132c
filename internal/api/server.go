// Package api serves the HTTP surface: session lifecycle, control
// input, flight telemetry (REST and WebSocket), and the operational
// endpoints.
package api

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rickfu415/landing-control/internal/auth"
	"github.com/rickfu415/landing-control/internal/health"
	"github.com/rickfu415/landing-control/internal/metrics"
	"github.com/rickfu415/landing-control/internal/session"
)

// SessionDefaults seed new sessions when the create request leaves
// fields unset.
type SessionDefaults struct {
	Preset        string
	StartAltitude float64
	TickInterval  time.Duration
	TimeStep      float64
	WindLevel     int
	WindSeed      int64
	SimpleAero    bool
}

// Config configures the HTTP server.
type Config struct {
	Addr            string
	Auth            auth.Config
	TrustProxy      bool
	MaxStreamsPerIP int
	Defaults        SessionDefaults
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	registry   *session.Registry
	cfg        Config
	limiter    *streamLimiter
}

// NewServer creates a configured HTTP server over the given session
// registry.
func NewServer(cfg Config, registry *session.Registry, logger *slog.Logger) *Server {
	if cfg.MaxStreamsPerIP <= 0 {
		cfg.MaxStreamsPerIP = 10
	}
	s := &Server{
		logger:   logger,
		registry: registry,
		cfg:      cfg,
		limiter:  newStreamLimiter(cfg.MaxStreamsPerIP),
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/presets", s.handlePresets)
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/input", s.handleInput)
	mux.HandleFunc("POST /api/v1/sessions/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/v1/sessions/{id}/resume", s.handleResume)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("GET /api/v1/sessions/{id}/flight", s.handleFlight)
	mux.HandleFunc("GET /api/v1/sessions/{id}/ws", s.handleStream)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// WriteTimeout would kill long-lived WebSocket streams; the
		// stream handler manages its own write deadlines.
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
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

// Hijack passes through to the underlying writer so the WebSocket
// upgrade works behind the middleware chain.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(sr.ResponseWriter).Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
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
