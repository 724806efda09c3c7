package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"iotdash/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncUpstreamRequests(operation, outcome string)
	ObserveUpstreamDuration(operation string, duration time.Duration)
	SetSensorValue(feedKey string, value float64)
	DeleteSensorValue(feedKey string)
	IncMonitorRuns()
	IncMonitorSkips()
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	sensorValue      *prometheus.GaugeVec
	monitorRuns      prometheus.Counter
	monitorSkips     prometheus.Counter
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncUpstreamRequests(operation, outcome string) {
	m.upstreamRequests.WithLabelValues(operation, outcome).Inc()
}

func (m *MetricsProvider) ObserveUpstreamDuration(operation string, duration time.Duration) {
	m.upstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *MetricsProvider) SetSensorValue(feedKey string, value float64) {
	m.sensorValue.WithLabelValues(feedKey).Set(value)
}

func (m *MetricsProvider) DeleteSensorValue(feedKey string) {
	m.sensorValue.DeleteLabelValues(feedKey)
}

func (m *MetricsProvider) IncMonitorRuns() {
	m.monitorRuns.Inc()
}

func (m *MetricsProvider) IncMonitorSkips() {
	m.monitorSkips.Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iotdash_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iotdash_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "iotdash_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "iotdash_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		upstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iotdash_upstream_requests_total",
			Help: "Total number of upstream telemetry API calls",
		}, []string{"operation", "outcome"}),

		upstreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iotdash_upstream_request_duration_seconds",
			Help:    "Upstream telemetry API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		sensorValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iotdash_sensor_value",
			Help: "Latest numeric reading per monitored feed",
		}, []string{"feed"}),

		monitorRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "iotdash_monitor_runs_total",
			Help: "Total number of completed monitor refresh cycles",
		}),

		monitorSkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "iotdash_monitor_skipped_total",
			Help: "Monitor ticks skipped because the previous cycle was still running",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                     {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)     {}
func (n *noopMetrics) IncCacheHits()                                        {}
func (n *noopMetrics) IncCacheMisses()                                      {}
func (n *noopMetrics) IncUpstreamRequests(_, _ string)                      {}
func (n *noopMetrics) ObserveUpstreamDuration(_ string, _ time.Duration)    {}
func (n *noopMetrics) SetSensorValue(_ string, _ float64)                   {}
func (n *noopMetrics) DeleteSensorValue(_ string)                           {}
func (n *noopMetrics) IncMonitorRuns()                                      {}
func (n *noopMetrics) IncMonitorSkips()                                     {}
