package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sindri/internal/domain"
)

func TestOrderService_CreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cartSvc.AddItem(ctx, "user-1", 1, 2)
	require.NoError(t, err)

	order, err := f.orderSvc.CreateOrder(ctx, CreateOrderParams{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(5000), order.SubtotalCents)
	assert.Equal(t, int64(5400), order.TotalCents)
	assert.False(t, order.FlaggedForReview)
	assert.Equal(t, domain.RiskLow, order.RiskLevel)
	assert.NotEmpty(t, order.RiskNarrative)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Widget", order.Items[0].ProductName)

	// Inventory was deducted.
	assert.Equal(t, int32(98), f.guard.Stock(1))

	// The cart is cleared.
	cart, err := f.cartSvc.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	// The initial history row exists and is system generated.
	history, err := f.orderSvc.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusPending, history[0].ToStatus)
	assert.True(t, history[0].SystemGenerated)
}

func TestOrderService_CreateOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.orderSvc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
		PaymentMethod:   "card",
	})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_CreateOrder_MissingParams(t *testing.T) {
	f := newFixture(t)

	_, err := f.orderSvc.CreateOrder(context.Background(), CreateOrderParams{UserID: "user-1"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.True(t, domain.IsValidationError(err))

	fields := domain.GetValidationFields(err)
	assert.Contains(t, fields, "ShippingAddress")
	assert.Contains(t, fields, "BillingAddress")
	assert.Contains(t, fields, "PaymentMethod")
}

func TestOrderService_CreateOrder_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.orderSvc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:          "nobody",
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
		PaymentMethod:   "card",
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestOrderService_CreateOrder_FlagsRiskyOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// First-time buyer, $600 order, mismatched addresses: score 0.6.
	_, err := f.cartSvc.AddItem(ctx, "user-new", 2, 1)
	require.NoError(t, err)

	order, err := f.orderSvc.CreateOrder(ctx, CreateOrderParams{
		UserID:          "user-new",
		ShippingAddress: "1 Main St",
		BillingAddress:  "9 Other Ave",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, order.FraudScore, 1e-9)
	assert.Equal(t, domain.RiskMedium, order.RiskLevel)
	assert.True(t, order.FlaggedForReview)

	// Medium risk is flagged for review but proceeds through the normal
	// flow; only high risk is held in pending_approval.
	assert.Equal(t, domain.StatusPending, order.Status)

	flagged, err := f.orderSvc.GetFlaggedOrders(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, order.ID, flagged[0].ID)

	history, err := f.orderSvc.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Order created", history[0].Notes)
	assert.True(t, history[0].SystemGenerated)
}

func TestOrderService_CreateOrder_HoldsHighRiskOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// First-time buyer, $1200 order, mismatched addresses: score 0.9.
	_, err := f.cartSvc.AddItem(ctx, "user-new", 2, 2)
	require.NoError(t, err)

	order, err := f.orderSvc.CreateOrder(ctx, CreateOrderParams{
		UserID:          "user-new",
		ShippingAddress: "1 Main St",
		BillingAddress:  "9 Other Ave",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.9, order.FraudScore, 1e-9)
	assert.Equal(t, domain.RiskHigh, order.RiskLevel)
	assert.True(t, order.FlaggedForReview)
	assert.Equal(t, domain.StatusPendingApproval, order.Status)

	history, err := f.orderSvc.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "High fraud risk detected", history[0].Notes)
	assert.True(t, history[0].SystemGenerated)
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cartSvc.AddItem(ctx, "user-1", 2, 8)
	require.NoError(t, err)

	// Stock drops after the item entered the cart.
	f.guard.SetStock(2, 3)

	_, err = f.orderSvc.CreateOrder(ctx, CreateOrderParams{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
		PaymentMethod:   "card",
	})
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

	// Stock is untouched and the cart survives for the user to adjust.
	assert.Equal(t, int32(3), f.guard.Stock(2))
	cart, err := f.cartSvc.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
}

func TestOrderService_GetOrderByNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cartSvc.AddItem(ctx, "user-1", 1, 1)
	require.NoError(t, err)
	order, err := f.orderSvc.CreateOrder(ctx, CreateOrderParams{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	got, err := f.orderSvc.GetOrderByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.orderSvc.GetOrderByNumber(ctx, "ORD-20000101-XXXX")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func createPendingOrder(t *testing.T, f *fixture, userID string) *domain.Order {
	t.Helper()
	ctx := context.Background()

	_, err := f.cartSvc.AddItem(ctx, userID, 1, 2)
	require.NoError(t, err)
	order, err := f.orderSvc.CreateOrder(ctx, CreateOrderParams{
		UserID:          userID,
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, order.Status)
	return order
}

func TestOrderService_UpdateStatus_LegalPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := createPendingOrder(t, f, "user-1")

	for _, next := range []domain.OrderStatus{
		domain.StatusConfirmed,
		domain.StatusProcessing,
		domain.StatusShipped,
		domain.StatusDelivered,
		domain.StatusCompleted,
	} {
		updated, err := f.orderSvc.UpdateStatus(ctx, UpdateStatusParams{
			OrderID:   order.ID,
			NewStatus: next,
			ChangedBy: "ops",
		})
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	// One creation row plus five transitions.
	history, err := f.orderSvc.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 6)
}

func TestOrderService_UpdateStatus_IllegalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := createPendingOrder(t, f, "user-1")

	_, err := f.orderSvc.UpdateStatus(ctx, UpdateStatusParams{
		OrderID:   order.ID,
		NewStatus: domain.StatusShipped,
		ChangedBy: "ops",
	})
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

	// The rejected transition left no history row behind.
	history, err := f.orderSvc.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOrderService_UpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	order := createPendingOrder(t, f, "user-1")

	_, err := f.orderSvc.UpdateStatus(context.Background(), UpdateStatusParams{
		OrderID:   order.ID,
		NewStatus: domain.OrderStatus("warp_speed"),
		ChangedBy: "ops",
	})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestOrderService_UpdateStatus_TerminalOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := createPendingOrder(t, f, "user-1")

	_, err := f.orderSvc.CancelOrder(ctx, order.ID, "user-1", ActorCustomer, "changed my mind")
	require.NoError(t, err)

	_, err = f.orderSvc.UpdateStatus(ctx, UpdateStatusParams{
		OrderID:   order.ID,
		NewStatus: domain.StatusConfirmed,
		ChangedBy: "ops",
	})
	assert.ErrorIs(t, err, ErrOrderTerminal)
}

func TestOrderService_CancelOrder_ReleasesInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := createPendingOrder(t, f, "user-1")
	require.Equal(t, int32(98), f.guard.Stock(1))

	cancelled, err := f.orderSvc.CancelOrder(ctx, order.ID, "user-1", ActorCustomer, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancellationReason)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, int32(100), f.guard.Stock(1))
}

func TestOrderService_CancelOrder_CountsDeclaredRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := createPendingOrder(t, f, "user-1")

	// The actor identifier does not match the order owner, but the caller
	// declared a customer cancellation; the metric follows the declared
	// role instead of guessing from the identifier.
	_, err := f.orderSvc.CancelOrder(ctx, order.ID, "user-1-typo", ActorCustomer, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OrdersCancelled.WithLabelValues("customer")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.OrdersCancelled.WithLabelValues("admin")))
}

func flaggedOrder(t *testing.T, f *fixture) *domain.Order {
	t.Helper()
	ctx := context.Background()

	_, err := f.cartSvc.AddItem(ctx, "user-new", 2, 2)
	require.NoError(t, err)
	order, err := f.orderSvc.CreateOrder(ctx, CreateOrderParams{
		UserID:          "user-new",
		ShippingAddress: "1 Main St",
		BillingAddress:  "9 Other Ave",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingApproval, order.Status)
	return order
}

func TestOrderService_ApproveOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := flaggedOrder(t, f)

	approved, err := f.orderSvc.ApproveOrder(ctx, order.ID, "admin-1", "verified by phone")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, approved.Status)
	assert.False(t, approved.FlaggedForReview)

	history, err := f.orderSvc.GetOrderHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "admin-1", history[1].ChangedBy)
	assert.Equal(t, "verified by phone", history[1].Notes)
}

func TestOrderService_ApproveOrder_NotFlagged(t *testing.T) {
	f := newFixture(t)
	order := createPendingOrder(t, f, "user-1")

	_, err := f.orderSvc.ApproveOrder(context.Background(), order.ID, "admin-1", "")
	assert.ErrorIs(t, err, ErrNotAwaitingReview)
}

func TestOrderService_RejectOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := flaggedOrder(t, f)
	require.Equal(t, int32(8), f.guard.Stock(2))

	rejected, err := f.orderSvc.RejectOrder(ctx, order.ID, "admin-1", "card reported stolen")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, rejected.Status)
	assert.Equal(t, "card reported stolen", rejected.CancellationReason)
	assert.Equal(t, int32(10), f.guard.Stock(2), "rejected order returns its stock")
}

func TestOrderService_ListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	createPendingOrder(t, f, "user-1")
	flaggedOrder(t, f)

	all, err := f.orderSvc.ListOrders(ctx, domain.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.orderSvc.ListOrders(ctx, domain.OrderFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	byUser, err := f.orderSvc.ListOrders(ctx, domain.OrderFilter{UserID: "user-new"})
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.orderSvc.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
