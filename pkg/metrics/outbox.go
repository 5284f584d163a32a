package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records dispatcher activity.
type OutboxMetrics struct {
	dispatched *prometheus.CounterVec
	batchSize  prometheus.Histogram
	lag        prometheus.Histogram
}

// NewOutboxMetrics registers the dispatcher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_dispatched_total",
		Help: "Outbox events processed, labeled by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_size",
		Help:    "Number of events picked up per poll.",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_dispatch_lag_seconds",
		Help:    "Time between event creation and dispatch.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	reg.MustRegister(dispatched, batchSize, lag)
	return &OutboxMetrics{
		dispatched: dispatched,
		batchSize:  batchSize,
		lag:        lag,
	}
}

// IncDispatched counts one processed event.
func (m *OutboxMetrics) IncDispatched(eventType, outcome string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveBatch records the size of one poll.
func (m *OutboxMetrics) ObserveBatch(size int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

// ObserveLag records how long an event waited before dispatch.
func (m *OutboxMetrics) ObserveLag(createdAt time.Time, dispatchedAt time.Time) {
	if m == nil || m.lag == nil {
		return
	}
	if dispatchedAt.Before(createdAt) {
		return
	}
	m.lag.Observe(dispatchedAt.Sub(createdAt).Seconds())
}
