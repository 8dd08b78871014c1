package domain

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order-related domain errors.
var (
	ErrOrderNotFound     = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrUserNotFound      = &Error{Code: ENOTFOUND, Message: "User not found"}
	ErrProductNotFound   = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrOrderTerminal     = &Error{Code: ECONFLICT, Message: "Order is in a terminal status"}
	ErrInvalidTransition = &Error{Code: ECONFLICT, Message: "Status transition is not allowed"}
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusPendingApproval OrderStatus = "pending_approval"
	StatusApproved        OrderStatus = "approved"
	StatusConfirmed       OrderStatus = "confirmed"
	StatusProcessing      OrderStatus = "processing"
	StatusShipped         OrderStatus = "shipped"
	StatusDelivered       OrderStatus = "delivered"
	StatusCompleted       OrderStatus = "completed"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRefunded        OrderStatus = "refunded"
)

// orderStatuses is the set of valid statuses, used for input validation.
var orderStatuses = map[OrderStatus]bool{
	StatusPending:         true,
	StatusPendingApproval: true,
	StatusApproved:        true,
	StatusConfirmed:       true,
	StatusProcessing:      true,
	StatusShipped:         true,
	StatusDelivered:       true,
	StatusCompleted:       true,
	StatusCancelled:       true,
	StatusRefunded:        true,
}

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !orderStatuses[status] {
		return "", Errorf(EINVALID, "order.parse_status", "unknown order status: %q", s)
	}
	return status, nil
}

// legalTransitions is the forward path of the order lifecycle plus the
// cancel/refund side exits. The zero entry for terminal statuses means no
// transition leaves them.
var legalTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:         {StatusPendingApproval, StatusApproved, StatusConfirmed, StatusCancelled},
	StatusPendingApproval: {StatusApproved, StatusCancelled},
	StatusApproved:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:       {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusDelivered, StatusRefunded},
	StatusDelivered:       {StatusCompleted, StatusRefunded},
	StatusCompleted:       nil,
	StatusCancelled:       nil,
	StatusRefunded:        nil,
}

// IsTerminal reports whether no transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	return len(legalTransitions[s]) == 0 && orderStatuses[s]
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RiskLevel buckets a fraud score for human consumption.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// OrderItem is an order line with quantity and price snapshots taken at
// order creation. Items are immutable once attached to an order.
type OrderItem struct {
	ProductID      int64
	ProductName    string
	Quantity       int32
	UnitPriceCents int64
	TotalCents     int64
}

// Order aggregates the order record with its items and risk assessment.
type Order struct {
	ID                 uuid.UUID
	OrderNumber        string
	UserID             string
	Items              []OrderItem
	SubtotalCents      int64
	TotalCents         int64
	Status             OrderStatus
	FraudScore         float64
	RiskLevel          RiskLevel
	FlaggedForReview   bool
	RiskNarrative      string
	ShippingAddress    string
	BillingAddress     string
	PaymentMethod      string
	Notes              string
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CancelledAt        *time.Time
}

// StatusChange is a single row of the append-only order status audit trail.
// Rows are never mutated or deleted.
type StatusChange struct {
	// ID is assigned by the store on insert and identifies the row for
	// notification bookkeeping.
	ID               int64
	OrderID          uuid.UUID
	FromStatus       OrderStatus
	ToStatus         OrderStatus
	ChangedBy        string
	Notes            string
	SystemGenerated  bool
	NotificationSent bool
	IPAddress        string
	UserAgent        string
	OccurredAt       time.Time
}

// orderNumberAlphabet omits ambiguous characters (0/O, 1/I/L).
const orderNumberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewOrderNumber generates a number like ORD-20250131-A3K9 with a random
// 4-character suffix.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand failing means the platform is broken; fall back to
		// a UUID-derived suffix rather than return an error nobody can act on.
		u := uuid.New()
		copy(suffix, u[:4])
	}
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[int(suffix[i])%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
