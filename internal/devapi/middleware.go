package devapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operational endpoints of the dev server.
const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

type serverMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newServerMetrics() *serverMetrics {
	reg := prometheus.NewRegistry()
	return &serverMetrics{
		registry: reg,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "nbalake",
			Subsystem: "devapi",
			Name:      "requests_total",
			Help:      "Requests served by the dev API, by path and status code.",
		}, []string{"path", "code"}),
	}
}

// instrument counts every response of next under path.
func (m *serverMetrics) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		m.requests.WithLabelValues(path, strconv.Itoa(wrapped.statusCode)).Inc()
	}
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
