// Package metrics provides Prometheus metrics collection
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Engagement metrics
	EngagementsTotal *prometheus.CounterVec

	// Persistence metrics
	CacheHitsTotal    *prometheus.CounterVec
	CacheMissesTotal  *prometheus.CounterVec
	ColdQueryDuration *prometheus.HistogramVec

	// Broker metrics
	EventsPublishedTotal *prometheus.CounterVec
	EventsDroppedTotal   *prometheus.CounterVec
	SubscribersActive    *prometheus.GaugeVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		EngagementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engagements_recorded_total",
				Help: "Total number of engagements recorded",
			},
			[]string{"service", "convoy", "outcome"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hot_store_hits_total",
				Help: "Total number of hot-tier cache hits",
			},
			[]string{"service", "namespace"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hot_store_misses_total",
				Help: "Total number of hot-tier cache misses",
			},
			[]string{"service", "namespace"},
		),
		ColdQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cold_store_query_duration_seconds",
				Help:    "Cold-tier statement duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "statement"},
		),

		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_events_published_total",
				Help: "Total number of events published to broker topics",
			},
			[]string{"service", "topic"},
		),
		EventsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_subscribers_dropped_total",
				Help: "Total number of subscribers dropped for slow consumption",
			},
			[]string{"service", "topic"},
		),
		SubscribersActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "broker_subscribers_active",
				Help: "Current number of active subscribers per topic",
			},
			[]string{"service", "topic"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service metadata",
			},
			[]string{"service", "version"},
		),
	}

	registerer.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.EngagementsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ColdQueryDuration,
		m.EventsPublishedTotal,
		m.EventsDroppedTotal,
		m.SubscribersActive,
		m.ServiceUptime,
		m.ServiceInfo,
	)

	go m.trackUptime()
	return m
}

func (m *Metrics) trackUptime() {
	start := time.Now()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.ServiceUptime.Set(time.Since(start).Seconds())
	}
}

// RecordRequest records an HTTP request observation
func (m *Metrics) RecordRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordEngagement records an engagement outcome observation
func (m *Metrics) RecordEngagement(service, convoy string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.EngagementsTotal.WithLabelValues(service, convoy, outcome).Inc()
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New("tracking")
	})
	return defaultMetrics
}
