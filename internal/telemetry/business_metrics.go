// Package telemetry holds Prometheus instrumentation for business-level
// observability.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the cart and order workflow.
type BusinessMetrics struct {
	// Cart activity
	CartUpdates  *prometheus.CounterVec
	CartValue    prometheus.Histogram
	PromoApplied *prometheus.CounterVec
	CartMerges   prometheus.Counter

	// Orders
	OrdersCreated       *prometheus.CounterVec
	OrderValue          prometheus.Histogram
	OrdersFlagged       prometheus.Counter
	OrdersPendingReview prometheus.Gauge
	StatusTransitions   *prometheus.CounterVec
	OrdersCancelled     *prometheus.CounterVec

	// Fraud scoring
	FraudScore        prometheus.Histogram
	NarrativeFailures prometheus.Counter

	// Inventory
	ReservationFailures prometheus.Counter

	// Notifications
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
}

// NewBusinessMetrics creates all business metrics and registers them with
// the default registerer.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return NewBusinessMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewBusinessMetricsWith registers the metrics with the given registerer.
// Tests pass a fresh registry to avoid duplicate registration panics.
func NewBusinessMetricsWith(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "sindri"
	}

	subsystem := "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		CartUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_updates_total",
				Help:      "Total cart mutations",
			},
			[]string{"operation"}, // operation: add, update, remove, clear
		),
		CartValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_value_cents",
				Help:      "Cart total after each mutation, in cents",
				Buckets:   prometheus.ExponentialBuckets(500, 2.5, 10),
			},
		),
		PromoApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "promo_applied_total",
				Help:      "Total promo code applications",
			},
			[]string{"code", "outcome"}, // outcome: accepted, rejected
		),
		CartMerges: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_merges_total",
				Help:      "Total guest cart merges at login",
			},
		),
		OrdersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders created",
			},
			[]string{"status", "risk_level"},
		),
		OrderValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_cents",
				Help:      "Order totals in cents",
				Buckets:   prometheus.ExponentialBuckets(500, 2.5, 10),
			},
		),
		OrdersFlagged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_flagged_total",
				Help:      "Total orders routed to manual review",
			},
		),
		OrdersPendingReview: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_pending_review",
				Help:      "Orders currently awaiting manual review",
			},
		),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_status_transitions_total",
				Help:      "Total order status transitions",
			},
			[]string{"from", "to"},
		),
		OrdersCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_cancelled_total",
				Help:      "Total order cancellations",
			},
			[]string{"actor"}, // actor: customer, admin, system
		),
		FraudScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fraud_score",
				Help:      "Fraud scores assigned at order creation",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		NarrativeFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "narrative_failures_total",
				Help:      "Total narrative provider failures that fell back to templates",
			},
		),
		ReservationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "inventory_reservation_failures_total",
				Help:      "Total order creations rejected for insufficient stock",
			},
		),
		NotificationsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_sent_total",
				Help:      "Total status notifications published",
			},
		),
		NotificationsFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "notifications_failed_total",
				Help:      "Total status notification publish failures",
			},
		),
	}
}
