// Package worker runs the background notification dispatcher.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/sindri/internal/domain"
	"github.com/dukerupert/sindri/internal/notify"
	"github.com/dukerupert/sindri/internal/telemetry"
)

// Config holds notifier configuration.
type Config struct {
	// PollInterval is how often to check for unsent notifications.
	PollInterval time.Duration

	// BatchSize is the maximum number of rows to dispatch per poll.
	BatchSize int
}

// Notifier drains unsent status history rows and publishes them to the
// sink. Rows are marked sent only after a successful publish, so a crashed
// run redelivers rather than drops. Consumers must tolerate duplicates.
type Notifier struct {
	config  Config
	orders  domain.OrderStore
	sink    notify.Sink
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewNotifier creates a notification dispatcher.
func NewNotifier(orders domain.OrderStore, sink notify.Sink, metrics *telemetry.BusinessMetrics, config Config, logger *slog.Logger) *Notifier {
	if config.PollInterval == 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Notifier{
		config:  config,
		orders:  orders,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
	}
}

// Start polls until the context is cancelled.
func (n *Notifier) Start(ctx context.Context) error {
	n.logger.Info("notifier starting",
		"poll_interval", n.config.PollInterval,
		"batch_size", n.config.BatchSize,
	)

	ticker := time.NewTicker(n.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("notifier shutting down")
			return ctx.Err()
		case <-ticker.C:
			n.DispatchPending(ctx)
		}
	}
}

// DispatchPending publishes every unsent row it can and marks the
// successes. Failures are left unsent for the next poll.
func (n *Notifier) DispatchPending(ctx context.Context) {
	changes, err := n.orders.ListUnnotified(ctx, n.config.BatchSize)
	if err != nil {
		n.logger.Error("failed to list unsent notifications", "error", err)
		return
	}

	for _, change := range changes {
		order, err := n.orders.GetOrder(ctx, change.OrderID)
		if err != nil {
			n.logger.Error("failed to load order for notification",
				"order_id", change.OrderID,
				"error", err,
			)
			continue
		}

		event := notify.StatusEvent{
			OrderID:     order.ID.String(),
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			FromStatus:  string(change.FromStatus),
			ToStatus:    string(change.ToStatus),
			ChangedBy:   change.ChangedBy,
			OccurredAt:  change.OccurredAt,
		}
		if err := n.sink.OrderStatusChanged(ctx, event); err != nil {
			n.metrics.NotificationsFailed.Inc()
			n.logger.Error("failed to publish status notification",
				"order_number", order.OrderNumber,
				"to_status", change.ToStatus,
				"error", err,
			)
			continue
		}

		if err := n.orders.MarkNotified(ctx, change.ID); err != nil {
			n.logger.Error("failed to mark notification sent",
				"order_number", order.OrderNumber,
				"error", err,
			)
			continue
		}
		n.metrics.NotificationsSent.Inc()
	}
}
