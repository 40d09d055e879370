// Package metrics exposes Prometheus metrics for the activity board.
//
// Metrics are registered on a private registry and served for scraping:
//
//	m, err := metrics.New("activityboard")
//	mux.Handle("/metrics", m.Handler())
//	m.ObserveUpstream("list", "ok", 12*time.Millisecond)
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the board's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	boardActions     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// New creates and registers all collectors under the given prefix.
func New(prefix string) (*Metrics, error) {
	if prefix == "" {
		prefix = "activityboard"
	}
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}

	m := &Metrics{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_upstream_requests_total",
				Help: "Requests issued to the activity API by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_upstream_request_duration_seconds",
				Help:    "Latency of activity API requests",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"operation"},
		),
		boardActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_board_actions_total",
				Help: "Signup and unregister actions by resulting status kind",
			},
			[]string{"action", "kind"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_active_sessions",
				Help: "Viewer sessions holding a board",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.upstreamRequests, m.upstreamDuration, m.boardActions, m.activeSessions} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveUpstream records one activity API request.
func (m *Metrics) ObserveUpstream(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.upstreamDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncAction records a completed board action.
func (m *Metrics) IncAction(action, kind string) {
	if m == nil {
		return
	}
	m.boardActions.WithLabelValues(action, kind).Inc()
}

// SetActiveSessions sets the current session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
