// Package metrics exposes Prometheus collectors for the live-state core.
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotwatch"

// Pull results.
const (
	PullOK        = "ok"
	PullFailed    = "failed"
	PullRejected  = "rejected"
	PullCoalesced = "coalesced"
)

// Token refresh results.
const (
	TokenOK        = "ok"
	TokenFailed    = "failed"
	TokenDiscarded = "discarded"
)

type Metrics struct {
	registry prometheus.Gatherer

	pulls            *prometheus.CounterVec
	events           *prometheus.CounterVec
	streamDials      *prometheus.CounterVec
	streamConnected  prometheus.Gauge
	tokenRefreshes   *prometheus.CounterVec
	tokenExpiresSecs *prometheus.GaugeVec
}

// New registers the lotwatch collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		pulls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_pulls_total",
			Help:      "Snapshot pull requests by result",
		}, []string{"result"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events received by kind",
		}, []string{"kind"}),
		streamDials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_dials_total",
			Help:      "Event stream connection attempts by result",
		}, []string{"result"}),
		streamConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connected",
			Help:      "1 while the event stream is connected",
		}),
		tokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Token refresh attempts by purpose and result",
		}, []string{"purpose", "result"}),
		tokenExpiresSecs: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_expires_at_seconds",
			Help:      "Unix expiry of the live token per purpose",
		}, []string{"purpose"}),
	}
}

func (m *Metrics) Pull(result string) {
	if m == nil {
		return
	}
	m.pulls.WithLabelValues(result).Inc()
}

func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) Dial(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.streamDials.WithLabelValues(result).Inc()
}

func (m *Metrics) Connected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.streamConnected.Set(1)
	} else {
		m.streamConnected.Set(0)
	}
}

func (m *Metrics) TokenRefresh(purpose, result string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(purpose, result).Inc()
}

func (m *Metrics) TokenExpiry(purpose string, unix float64) {
	if m == nil {
		return
	}
	m.tokenExpiresSecs.WithLabelValues(purpose).Set(unix)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
