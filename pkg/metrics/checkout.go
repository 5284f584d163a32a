package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the order placement and payment funnel.
type CheckoutMetrics struct {
	ordersPlaced  *prometheus.CounterVec
	orderValue    prometheus.Histogram
	stockRejected prometheus.Counter
	transitions   *prometheus.CounterVec
	payments      *prometheus.CounterVec
	placeDuration prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, labeled by outcome.",
	}, []string{"outcome"})
	orderValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_minor_units",
		Help:    "Order grand totals in the currency's minor unit.",
		Buckets: prometheus.ExponentialBuckets(10000, 4, 8),
	})
	stockRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_rejected_insufficient_stock_total",
		Help: "Order placements rejected because a line could not be reserved.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order lifecycle transitions, labeled by from/to status.",
	}, []string{"from", "to"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Payment attempts, labeled by provider and resulting status.",
	}, []string{"provider", "status"})
	placeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_placement_duration_seconds",
		Help:    "Duration of the order placement transaction.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(ordersPlaced, orderValue, stockRejected, transitions, payments, placeDuration)
	return &CheckoutMetrics{
		ordersPlaced:  ordersPlaced,
		orderValue:    orderValue,
		stockRejected: stockRejected,
		transitions:   transitions,
		payments:      payments,
		placeDuration: placeDuration,
	}
}

// ObservePlacement records a successful order placement.
func (m *CheckoutMetrics) ObservePlacement(total int64, duration time.Duration) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues("success").Inc()
	m.orderValue.Observe(float64(total))
	m.placeDuration.Observe(duration.Seconds())
}

// IncPlacementFailure records a failed order placement.
func (m *CheckoutMetrics) IncPlacementFailure() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues("failure").Inc()
}

// IncStockRejected counts a reservation failure during placement.
func (m *CheckoutMetrics) IncStockRejected() {
	if m == nil || m.stockRejected == nil {
		return
	}
	m.stockRejected.Inc()
}

// IncTransition counts a lifecycle transition.
func (m *CheckoutMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncPayment counts a processed payment attempt.
func (m *CheckoutMetrics) IncPayment(provider, status string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(provider), normalizeLabel(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
