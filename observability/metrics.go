// Package observability exposes the prometheus counters of the messaging server and a snapshot of the
// process resource usage.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector of the server. They are registered on the registry given to NewMetrics so
// tests can use a fresh one.
type Metrics struct {
	MessagesSent          prometheus.Counter
	MessagesReadTotal     prometheus.Counter
	RecommendationsServed prometheus.Counter

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	UptimeSeconds prometheus.GaugeFunc
	StartTime     time.Time
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{StartTime: time.Now()}

	m.MessagesSent = factory.NewCounter(prometheus.CounterOpts{
		Name: "dm_messages_sent_total",
		Help: "Total number of direct messages stored",
	})
	m.MessagesReadTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "dm_messages_read_total",
		Help: "Total number of direct messages delivered to their receiver",
	})
	m.RecommendationsServed = factory.NewCounter(prometheus.CounterOpts{
		Name: "dm_recommendations_served_total",
		Help: "Total number of recommendation lists served",
	})

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dm_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.HTTPRequestsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "dm_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served",
	})
	m.UptimeSeconds = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "dm_uptime_seconds",
			Help: "Seconds since the server started",
		},
		func() float64 { return time.Since(m.StartTime).Seconds() },
	)
	return m
}

func (m *Metrics) MessageSent() {
	m.MessagesSent.Inc()
}

func (m *Metrics) MessagesRead(n int) {
	m.MessagesReadTotal.Add(float64(n))
}

func (m *Metrics) RecommendationServed() {
	m.RecommendationsServed.Inc()
}

// ObserveRequest records a finished request. route is the router pattern, never the raw path, to keep
// label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
