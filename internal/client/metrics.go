package client

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// Metrics holds the Prometheus metrics for the SMTP client.
type Metrics struct {
	ConnectsTotal      prometheus.Counter
	ConnectFailures    prometheus.Counter
	CommandsTotal      prometheus.Counter
	RepliesTotal       prometheus.Counter
	ConnectionErrors   prometheus.Counter
	ConnectionDuration prometheus.Histogram

	PoolCreated prometheus.Counter
	PoolReused  prometheus.Counter
}

// GetMetrics returns the singleton metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics()
	})
	return metricsInstance
}

func newMetrics() *Metrics {
	return &Metrics{
		ConnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smtpwire_connects_total",
			Help: "Total number of successful SMTP connections",
		}),
		ConnectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smtpwire_connect_failures_total",
			Help: "Total number of failed connection attempts",
		}),
		CommandsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smtpwire_commands_total",
			Help: "Total number of outbound writes accepted by the driver",
		}),
		RepliesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smtpwire_replies_total",
			Help: "Total number of framed server replies",
		}),
		ConnectionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smtpwire_connection_errors_total",
			Help: "Total number of connections torn down by the error cascade",
		}),
		ConnectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "smtpwire_connection_duration_seconds",
			Help:    "Lifetime of SMTP connections",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		PoolCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smtpwire_pool_connections_created_total",
			Help: "Total number of connections dialed by the pool",
		}),
		PoolReused: promauto.NewCounter(prometheus.CounterOpts{
			Name: "smtpwire_pool_connections_reused_total",
			Help: "Total number of idle connections handed out by the pool",
		}),
	}
}

// Handler exposes the process metrics registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
