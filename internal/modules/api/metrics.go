// README: Prometheus counters and latency histograms for dispatched intents.
package api

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts settled intents. A nil *Metrics is valid and records nothing.
type Metrics struct {
	intents  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_intents_total",
			Help: "Dispatched intents by action and outcome.",
		}, []string{"action", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courier_intent_duration_seconds",
			Help:    "Time from PENDING to settlement.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
	}
	if reg != nil {
		reg.MustRegister(m.intents, m.duration)
	}
	return m
}

func (m *Metrics) observe(action string, kind Kind, d time.Duration) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(action, strings.ToLower(kind.String())).Inc()
	m.duration.WithLabelValues(action).Observe(d.Seconds())
}
