package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// validation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	replaceRecords  *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "binding_validation_rejections_total",
		Help: "Validation rejections by error code",
	}, []string{"code"})

	replaceRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "binding_replace_records_total",
		Help: "Bulk replace record outcomes",
	}, []string{"outcome"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "capacity_cache_latency_seconds",
		Help:    "Latency for capacity cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capacity_cache_hits_total",
		Help: "Capacity cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capacity_cache_misses_total",
		Help: "Capacity cache misses",
	})

	registry.MustRegister(requestDuration, requestTotal, rejections, replaceRecords, cacheLatency, cacheHits, cacheMisses)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		rejections:      rejections,
		replaceRecords:  replaceRecords,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the /metrics endpoint handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordValidationRejection counts one rejected mutation by error code.
func (s *MetricsService) RecordValidationRejection(code string) {
	if s == nil {
		return
	}
	s.rejections.WithLabelValues(code).Inc()
}

// RecordReplaceOutcome counts one bulk-replace record result.
func (s *MetricsService) RecordReplaceOutcome(replaced bool) {
	if s == nil {
		return
	}
	outcome := "replaced"
	if !replaced {
		outcome = "failed"
	}
	s.replaceRecords.WithLabelValues(outcome).Inc()
}

// RecordCacheOperation records a capacity cache lookup.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if s == nil {
		return
	}
	s.cacheLatency.Observe(duration.Seconds())
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}
