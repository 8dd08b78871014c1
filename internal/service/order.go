package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/sindri/internal/cartstore"
	"github.com/dukerupert/sindri/internal/domain"
	"github.com/dukerupert/sindri/internal/fraud"
	"github.com/dukerupert/sindri/internal/inventory"
	"github.com/dukerupert/sindri/internal/telemetry"
)

// OrderService provides business logic for the order workflow: creation
// with fraud scoring, the status state machine, and admin review.
type OrderService interface {
	// CreateOrder converts the user's cart into an order.
	//
	// Flow:
	//  1. Load the cart; an empty or missing cart is rejected
	//  2. Resolve the user and the cart's products
	//  3. Reserve inventory for every line, all or nothing
	//  4. Score the order for fraud and generate the risk narrative
	//  5. Persist the order with its initial status history atomically
	//  6. Clear the cart
	//
	// High-risk orders start in pending_approval instead of pending;
	// medium-risk orders stay pending but are flagged for review.
	// Inventory reserved in step 3 is released if persistence fails.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*domain.Order, error)

	// GetOrder retrieves a single order by ID.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)

	// GetOrderByNumber retrieves a single order by its order number.
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// ListOrders returns orders matching the filter, newest first.
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)

	// GetOrderHistory returns the append-only status trail for an order.
	GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error)

	// UpdateStatus moves an order along the lifecycle. Illegal transitions
	// return ErrInvalidTransition; transitions out of a terminal status
	// return ErrOrderTerminal. Every accepted transition appends exactly
	// one history row.
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Order, error)

	// ApproveOrder clears a flagged order for fulfillment. Only orders in
	// pending_approval can be approved.
	ApproveOrder(ctx context.Context, orderID uuid.UUID, reviewer string, notes string) (*domain.Order, error)

	// RejectOrder cancels a flagged order and releases its inventory.
	RejectOrder(ctx context.Context, orderID uuid.UUID, reviewer string, reason string) (*domain.Order, error)

	// CancelOrder cancels any order the state machine still allows to be
	// cancelled and releases its inventory. The role records who initiated
	// the cancellation.
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor string, role CancelActor, reason string) (*domain.Order, error)

	// GetFlaggedOrders returns orders awaiting manual review.
	GetFlaggedOrders(ctx context.Context) ([]*domain.Order, error)
}

// CreateOrderParams contains parameters for creating an order.
type CreateOrderParams struct {
	UserID          string `validate:"required"`
	ShippingAddress string `validate:"required"`
	BillingAddress  string `validate:"required"`
	PaymentMethod   string `validate:"required"`
	Notes           string
	IPAddress       string
	UserAgent       string
}

// CancelActor identifies who initiated a cancellation. It is recorded on
// the cancellation metrics rather than inferred from the actor identifier.
type CancelActor string

const (
	ActorCustomer CancelActor = "customer"
	ActorAdmin    CancelActor = "admin"
	ActorSystem   CancelActor = "system"
)

// UpdateStatusParams contains parameters for a status transition.
type UpdateStatusParams struct {
	OrderID   uuid.UUID          `validate:"required"`
	NewStatus domain.OrderStatus `validate:"required"`
	ChangedBy string             `validate:"required"`
	Notes     string
	IPAddress string
	UserAgent string
}

type orderService struct {
	orders    domain.OrderStore
	carts     cartstore.Store
	catalog   domain.ProductCatalog
	directory domain.UserDirectory
	guard     *inventory.Guard
	analyzer  *fraud.Analyzer
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(
	orders domain.OrderStore,
	carts cartstore.Store,
	catalog domain.ProductCatalog,
	directory domain.UserDirectory,
	guard *inventory.Guard,
	analyzer *fraud.Analyzer,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) OrderService {
	return &orderService{
		orders:    orders,
		carts:     carts,
		catalog:   catalog,
		directory: directory,
		guard:     guard,
		analyzer:  analyzer,
		metrics:   metrics,
		logger:    logger,
		validate:  validator.New(),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, params CreateOrderParams) (*domain.Order, error) {
	if err := s.validate.Struct(&params); err != nil {
		return nil, domain.WrapError(fieldErrors("order.create", err), domain.EINVALID, "order.create", "invalid order parameters")
	}

	user, err := s.directory.GetUser(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, params.UserID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]domain.OrderItem, 0, len(cart.Lines))
	demands := make([]inventory.Demand, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID:      line.ProductID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			TotalCents:     line.LineSubtotal(),
		})
		demands = append(demands, inventory.Demand{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	if err := s.guard.Reserve(demands); err != nil {
		s.metrics.ReservationFailures.Inc()
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     domain.NewOrderNumber(now),
		UserID:          user.ID,
		Items:           items,
		SubtotalCents:   cart.SubtotalCents,
		TotalCents:      cart.TotalCents,
		ShippingAddress: params.ShippingAddress,
		BillingAddress:  params.BillingAddress,
		PaymentMethod:   params.PaymentMethod,
		Notes:           params.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	assessment, narrative := s.analyzer.Analyze(ctx, order.OrderNumber, fraud.Facts{
		TotalCents:      order.TotalCents,
		PriorOrderCount: user.PriorOrderCount,
		EmailVerified:   user.EmailVerified,
		ShippingAddress: params.ShippingAddress,
		BillingAddress:  params.BillingAddress,
	})
	order.FraudScore = assessment.Score
	order.RiskLevel = assessment.Level
	order.FlaggedForReview = assessment.Flagged
	order.RiskNarrative = narrative

	// Flagging (score >= 0.6) surfaces the order for review; only high or
	// critical risk holds it back from the normal flow.
	order.Status = domain.StatusPending
	historyNote := "Order created"
	if assessment.Level == domain.RiskHigh || assessment.Level == domain.RiskCritical {
		order.Status = domain.StatusPendingApproval
		historyNote = "High fraud risk detected"
	}

	history := []domain.StatusChange{{
		OrderID:         order.ID,
		ToStatus:        order.Status,
		ChangedBy:       "system",
		Notes:           historyNote,
		SystemGenerated: true,
		IPAddress:       params.IPAddress,
		UserAgent:       params.UserAgent,
		OccurredAt:      now,
	}}

	if err := s.orders.CreateOrder(ctx, order, history); err != nil {
		s.guard.Release(demands)
		return nil, err
	}

	if err := s.carts.Delete(ctx, params.UserID); err != nil {
		s.logger.Warn("failed to clear cart after order creation",
			"user_id", params.UserID,
			"order_number", order.OrderNumber,
			"error", err,
		)
	}

	s.metrics.OrdersCreated.WithLabelValues(string(order.Status), string(order.RiskLevel)).Inc()
	s.metrics.OrderValue.Observe(float64(order.TotalCents))
	s.metrics.FraudScore.Observe(order.FraudScore)
	if order.FlaggedForReview {
		s.metrics.OrdersFlagged.Inc()
	}

	s.logger.Info("order created",
		"order_number", order.OrderNumber,
		"user_id", user.ID,
		"total_cents", order.TotalCents,
		"status", order.Status,
		"fraud_score", order.FraudScore,
		"risk_level", order.RiskLevel,
		"flagged", order.FlaggedForReview,
	)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.orders.GetOrderByNumber(ctx, orderNumber)
}

func (s *orderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	return s.orders.ListOrders(ctx, filter)
}

func (s *orderService) GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error) {
	return s.orders.GetHistory(ctx, orderID)
}

func (s *orderService) UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Order, error) {
	if err := s.validate.Struct(&params); err != nil {
		return nil, domain.WrapError(fieldErrors("order.update_status", err), domain.EINVALID, "order.update_status", "invalid status parameters")
	}

	if _, err := domain.ParseOrderStatus(string(params.NewStatus)); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}

	// Cancellations must release inventory, so they always go through the
	// cancel path no matter how the transition was requested.
	if params.NewStatus == domain.StatusCancelled {
		return s.cancel(ctx, order, params.Notes, string(ActorAdmin), transitionDetails{
			changedBy: params.ChangedBy,
			notes:     params.Notes,
			ipAddress: params.IPAddress,
			userAgent: params.UserAgent,
		})
	}

	return s.transition(ctx, order, params.NewStatus, transitionDetails{
		changedBy: params.ChangedBy,
		notes:     params.Notes,
		ipAddress: params.IPAddress,
		userAgent: params.UserAgent,
	})
}

func (s *orderService) ApproveOrder(ctx context.Context, orderID uuid.UUID, reviewer string, notes string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPendingApproval {
		return nil, ErrNotAwaitingReview
	}

	if notes == "" {
		notes = "Approved after manual review"
	}
	order.FlaggedForReview = false
	return s.transition(ctx, order, domain.StatusApproved, transitionDetails{
		changedBy: reviewer,
		notes:     notes,
	})
}

func (s *orderService) RejectOrder(ctx context.Context, orderID uuid.UUID, reviewer string, reason string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPendingApproval {
		return nil, ErrNotAwaitingReview
	}

	if reason == "" {
		reason = "Rejected after manual review"
	}
	return s.cancel(ctx, order, reason, string(ActorAdmin), transitionDetails{
		changedBy: reviewer,
		notes:     reason,
	})
}

func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor string, role CancelActor, reason string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = ActorCustomer
	}
	return s.cancel(ctx, order, reason, string(role), transitionDetails{
		changedBy: actor,
		notes:     reason,
	})
}

func (s *orderService) GetFlaggedOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.ListOrders(ctx, domain.OrderFilter{FlaggedOnly: true})
}

type transitionDetails struct {
	changedBy string
	notes     string
	ipAddress string
	userAgent string
}

// transition applies a validated status change and persists the order
// together with its history row.
func (s *orderService) transition(ctx context.Context, order *domain.Order, next domain.OrderStatus, details transitionDetails) (*domain.Order, error) {
	if order.Status.IsTerminal() {
		return nil, ErrOrderTerminal
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, domain.Errorf(domain.ECONFLICT, "order.transition",
			"cannot move order from %s to %s", order.Status, next)
	}

	from := order.Status
	now := time.Now().UTC()
	order.Status = next
	order.UpdatedAt = now

	change := domain.StatusChange{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   next,
		ChangedBy:  details.changedBy,
		Notes:      details.notes,
		IPAddress:  details.ipAddress,
		UserAgent:  details.userAgent,
		OccurredAt: now,
	}
	if err := s.orders.UpdateOrder(ctx, order, change); err != nil {
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(from), string(next)).Inc()
	s.logger.Info("order status changed",
		"order_number", order.OrderNumber,
		"from", from,
		"to", next,
		"changed_by", details.changedBy,
	)
	return order, nil
}

// cancel moves the order to cancelled and releases its inventory. The
// release happens after the persisted transition so a rejected transition
// never touches stock.
func (s *orderService) cancel(ctx context.Context, order *domain.Order, reason string, actorLabel string, details transitionDetails) (*domain.Order, error) {
	now := time.Now().UTC()
	order.CancellationReason = reason
	order.CancelledAt = &now

	updated, err := s.transition(ctx, order, domain.StatusCancelled, details)
	if err != nil {
		return nil, err
	}

	demands := make([]inventory.Demand, 0, len(updated.Items))
	for _, item := range updated.Items {
		demands = append(demands, inventory.Demand{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	s.guard.Release(demands)

	s.metrics.OrdersCancelled.WithLabelValues(actorLabel).Inc()
	s.logger.Info("order cancelled",
		"order_number", updated.OrderNumber,
		"actor", details.changedBy,
		"reason", reason,
	)
	return updated, nil
}
