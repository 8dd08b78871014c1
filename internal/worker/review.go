package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/sindri/internal/domain"
	"github.com/dukerupert/sindri/internal/telemetry"
)

// FlaggedLister reports orders awaiting manual review.
type FlaggedLister interface {
	GetFlaggedOrders(ctx context.Context) ([]*domain.Order, error)
}

// ReviewMonitor tracks the manual review backlog and exports it as a
// gauge so operators can alert on a growing queue.
type ReviewMonitor struct {
	interval time.Duration
	orders   FlaggedLister
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewReviewMonitor creates a review backlog monitor.
func NewReviewMonitor(orders FlaggedLister, metrics *telemetry.BusinessMetrics, interval time.Duration, logger *slog.Logger) *ReviewMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &ReviewMonitor{
		interval: interval,
		orders:   orders,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start polls until the context is cancelled.
func (m *ReviewMonitor) Start(ctx context.Context) error {
	m.logger.Info("review monitor starting", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("review monitor shutting down")
			return ctx.Err()
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check refreshes the backlog gauge once.
func (m *ReviewMonitor) Check(ctx context.Context) {
	flagged, err := m.orders.GetFlaggedOrders(ctx)
	if err != nil {
		m.logger.Error("failed to count flagged orders", "error", err)
		return
	}

	m.metrics.OrdersPendingReview.Set(float64(len(flagged)))
	if len(flagged) > 0 {
		m.logger.Debug("orders awaiting review", "count", len(flagged))
	}
}
