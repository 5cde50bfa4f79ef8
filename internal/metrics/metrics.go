// Package metrics exposes the service's prometheus instrumentation on a
// private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry       *prometheus.Registry
	actionsTotal   *prometheus.CounterVec
	actionsDenied  *prometheus.CounterVec
	actionDuration prometheus.Histogram
	cachedAccounts prometheus.Gauge
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		actionsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fabrik_actions_total",
			Help: "Actions dispatched, by action and outcome",
		}, []string{"action", "outcome"}),
		actionsDenied: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fabrik_actions_denied_total",
			Help: "Actions denied by cooldown or eligibility, by action",
		}, []string{"action"}),
		actionDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "fabrik_action_duration_seconds",
			Help:    "Time taken to dispatch one action",
			Buckets: prometheus.DefBuckets,
		}),
		cachedAccounts: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "fabrik_cached_accounts",
			Help: "Accounts present in the last view-cache refresh",
		}),
	}
}

func (c *Collector) ObserveAction(action, outcome string, d time.Duration) {
	c.actionsTotal.WithLabelValues(action, outcome).Inc()
	if outcome == "denied" {
		c.actionsDenied.WithLabelValues(action).Inc()
	}
	c.actionDuration.Observe(d.Seconds())
}

func (c *Collector) SetCachedAccounts(n int) {
	c.cachedAccounts.Set(float64(n))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
