// Package notify publishes order status change events for downstream
// consumers (email, webhooks, analytics). Publishing is asynchronous and
// best effort; the order workflow never blocks on it.
package notify

import (
	"context"
	"time"
)

// StatusEvent is the wire payload for a status change notification.
type StatusEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	ChangedBy   string    `json:"changed_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Sink delivers status events. Implementations must be safe for concurrent
// use.
type Sink interface {
	OrderStatusChanged(ctx context.Context, event StatusEvent) error
}
