package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/scalarfield/pkg/codec"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	fieldOperationsTotal   *prometheus.CounterVec
	fieldOperationDuration *prometheus.HistogramVec
	fieldsTotal            prometheus.Gauge
	fieldBytesTotal        prometheus.Gauge
	fieldBytesProcessed    *prometheus.CounterVec

	codecErrorsTotal  *prometheus.CounterVec
	authRequestsTotal *prometheus.CounterVec
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all API metrics and registers them on reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfield_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sfield_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sfield_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		fieldOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfield_field_operations_total",
				Help: "Total number of field repository operations",
			},
			[]string{"operation", "status"},
		),

		fieldOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sfield_field_operation_duration_seconds",
				Help:    "Field operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		fieldsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sfield_fields_total",
				Help: "Number of fields in the repository",
			},
		),

		fieldBytesTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sfield_field_bytes_total",
				Help: "Encoded size of all stored fields in bytes",
			},
		),

		fieldBytesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfield_field_bytes_processed_total",
				Help: "Bytes of encoded fields read from or written to clients",
			},
			[]string{"direction"},
		),

		codecErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfield_codec_errors_total",
				Help: "Rejected field containers by error kind",
			},
			[]string{"kind"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfield_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sfield_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordFieldOperation records a repository or conversion operation
func (m *Metrics) RecordFieldOperation(operation string, success bool, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	m.fieldOperationsTotal.WithLabelValues(operation, status).Inc()
	m.fieldOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBytes counts encoded bytes received ("in") or sent ("out")
func (m *Metrics) RecordBytes(direction string, n int) {
	m.fieldBytesProcessed.WithLabelValues(direction).Add(float64(n))
}

// RecordCodecError counts a rejected container when err carries a codec kind
func (m *Metrics) RecordCodecError(err error) {
	var cerr *codec.CodecError
	if errors.As(err, &cerr) {
		m.codecErrorsTotal.WithLabelValues(cerr.Kind.String()).Inc()
	}
}

// UpdateFieldStats updates the repository gauges
func (m *Metrics) UpdateFieldStats(fields int, totalBytes int64) {
	m.fieldsTotal.Set(float64(fields))
	m.fieldBytesTotal.Set(float64(totalBytes))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware counts authentication outcomes for requests that
// carry an API key.
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
