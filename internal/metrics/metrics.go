// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the simulation core.
package metrics

import (
	"bufio"
	"net"
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
			Name: "landersim_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "landersim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "landersim_sessions_active",
			Help: "Number of live simulation sessions.",
		},
	)

	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "landersim_ticks_total",
			Help: "Total number of physics ticks across all sessions.",
		},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "landersim_tick_duration_seconds",
			Help: "Wall-clock duration of one physics tick.",
			// Ticks run well under a millisecond; resolve down to 10µs.
			Buckets: prometheus.ExponentialBuckets(1e-5, 2, 12),
		},
	)

	landingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "landersim_landings_total",
			Help: "Completed flights by outcome.",
		},
		[]string{"outcome"},
	)

	wsClientsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "landersim_ws_clients_active",
			Help: "Number of connected telemetry WebSocket clients.",
		},
	)

	wsMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "landersim_ws_messages_total",
			Help: "Total telemetry messages sent over WebSocket.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(sessionsActive)
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(tickDurationSeconds)
	prometheus.MustRegister(landingsTotal)
	prometheus.MustRegister(wsClientsActive)
	prometheus.MustRegister(wsMessagesTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetSessionsActive records the live session count.
func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

// IncTicks counts one physics tick.
func IncTicks() {
	ticksTotal.Inc()
}

// ObserveTickDuration records the wall-clock cost of one physics tick.
func ObserveTickDuration(d time.Duration) {
	tickDurationSeconds.Observe(d.Seconds())
}

// IncLanding counts one completed flight.
func IncLanding(landed bool) {
	outcome := "crashed"
	if landed {
		outcome = "landed"
	}
	landingsTotal.WithLabelValues(outcome).Inc()
}

// IncWSClients and DecWSClients track connected stream clients.
func IncWSClients() { wsClientsActive.Inc() }
func DecWSClients() { wsClientsActive.Dec() }

// IncWSMessages counts one telemetry frame sent to a client.
func IncWSMessages() { wsMessagesTotal.Inc() }

// knownRoutes are the exact paths served by the API.
var knownRoutes = map[string]bool{
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/":                true,
	"/api/v1/presets":  true,
	"/api/v1/sessions": true,
}

// normalizeRoute collapses parameterized session paths to one label and
// unknown paths to "other", keeping metric cardinality bounded against
// bot traffic.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/sessions/"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			suffix := rest[i:]
			switch suffix {
			case "/input", "/pause", "/resume", "/reset", "/flight", "/ws":
				return "/api/v1/sessions/{id}" + suffix
			}
			return "other"
		}
		return "/api/v1/sessions/{id}"
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

// Hijack passes through to the underlying writer so the WebSocket
// upgrade works behind the middleware chain.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(rw.ResponseWriter).Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
