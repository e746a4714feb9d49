package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querylab/docquery/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal         *prometheus.CounterVec
	queryDuration        *prometheus.HistogramVec
	queryConfidence      *prometheus.HistogramVec
	vectorHits           *prometheus.HistogramVec
	lexicalFallbackTotal *prometheus.CounterVec
	uploadsTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docquery",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docquery",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docquery",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docquery",
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Total processed queries by domain.",
		},
		[]string{"service", "domain"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docquery",
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "domain"},
	)
	queryConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docquery",
			Subsystem: "retrieval",
			Name:      "query_confidence",
			Help:      "Distribution of answer confidence scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "domain"},
	)
	vectorHits := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docquery",
			Subsystem: "retrieval",
			Name:      "vector_hits",
			Help:      "Distribution of above-threshold vector hits per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	lexicalFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docquery",
			Subsystem: "retrieval",
			Name:      "lexical_fallback_total",
			Help:      "Total queries served entirely by lexical search.",
		},
		[]string{"service"},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docquery",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total document uploads by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		queryDuration,
		queryConfidence,
		vectorHits,
		lexicalFallbackTotal,
		uploadsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		queriesTotal:         queriesTotal,
		queryDuration:        queryDuration,
		queryConfidence:      queryConfidence,
		vectorHits:           vectorHits,
		lexicalFallbackTotal: lexicalFallbackTotal,
		uploadsTotal:         uploadsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/queries/"):
		return "/v1/queries/{query_id}"
	default:
		return path
	}
}

// QueryObserver adapts the registry to the query pipeline's metrics
// hook.
type QueryObserver struct {
	m       *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) QueryObserver(service string) *QueryObserver {
	return &QueryObserver{m: m, service: service}
}

func (o *QueryObserver) ObserveQuery(dom domain.Domain, confidence float64, elapsed time.Duration) {
	o.m.queriesTotal.WithLabelValues(o.service, string(dom)).Inc()
	o.m.queryDuration.WithLabelValues(o.service, string(dom)).Observe(elapsed.Seconds())
	o.m.queryConfidence.WithLabelValues(o.service, string(dom)).Observe(confidence)
}

func (m *HTTPServerMetrics) ObserveVectorHits(service string, n int) {
	m.vectorHits.WithLabelValues(service).Observe(float64(n))
}

func (m *HTTPServerMetrics) RecordLexicalFallback(service string) {
	m.lexicalFallbackTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordUpload(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
