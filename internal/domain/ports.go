package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product is the catalog view the workflow needs: current price, whether the
// product is sellable, and how much stock the catalog believes exists.
type Product struct {
	ID            int64
	Name          string
	PriceCents    int64
	Active        bool
	StockQuantity int32
}

// ProductCatalog resolves products at cart-add and order-creation time.
type ProductCatalog interface {
	// GetProduct returns the product or ErrProductNotFound.
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

// User is the directory view used by fraud scoring.
type User struct {
	ID              string
	Email           string
	EmailVerified   bool
	PriorOrderCount int
}

// UserDirectory resolves users at order-creation time.
type UserDirectory interface {
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id string) (*User, error)
}

// OrderFilter narrows ListOrders results. Zero values mean "no constraint".
type OrderFilter struct {
	UserID        string
	Status        OrderStatus
	FlaggedOnly   bool
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// OrderStore is the durable order repository. Orders and their status
// history must survive restarts and be queryable by status, flagged flag,
// user, and date range.
type OrderStore interface {
	// CreateOrder persists a new order together with its initial status
	// history rows as a single atomic unit.
	CreateOrder(ctx context.Context, order *Order, history []StatusChange) error

	// GetOrder returns the order with items, or ErrOrderNotFound.
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetOrderByNumber returns the order with items, or ErrOrderNotFound.
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// UpdateOrder saves mutated order fields and appends one history row in
	// the same atomic unit. The history row is what makes the change
	// auditable; implementations must not persist one without the other.
	UpdateOrder(ctx context.Context, order *Order, change StatusChange) error

	// GetHistory returns the append-only status history for an order in
	// insertion order.
	GetHistory(ctx context.Context, orderID uuid.UUID) ([]StatusChange, error)

	// ListOrders returns orders matching the filter, newest first.
	ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error)

	// MarkNotified flags the history row with the given store-assigned ID
	// as notified. Used by the notification worker after a successful
	// publish.
	MarkNotified(ctx context.Context, changeID int64) error

	// ListUnnotified returns history rows whose notification has not yet
	// been sent, oldest first, up to limit.
	ListUnnotified(ctx context.Context, limit int) ([]StatusChange, error)
}
