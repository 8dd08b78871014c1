// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/sindri/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that OrderStore implements domain.OrderStore.
var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates a new PostgreSQL-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreateOrder inserts the order, its items, and the initial history rows in
// one transaction.
func (s *OrderStore) CreateOrder(ctx context.Context, order *domain.Order, history []domain.StatusChange) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, "postgres.create_order", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, subtotal_cents, total_cents, status,
			fraud_score, risk_level, flagged_for_review, risk_narrative,
			shipping_address, billing_address, payment_method, notes,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		order.ID, order.OrderNumber, order.UserID, order.SubtotalCents, order.TotalCents,
		string(order.Status), order.FraudScore, string(order.RiskLevel), order.FlaggedForReview,
		order.RiskNarrative, order.ShippingAddress, order.BillingAddress, order.PaymentMethod,
		order.Notes, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return domain.Internal(err, "postgres.create_order", "failed to insert order")
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name, quantity, unit_price_cents, total_cents
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			order.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPriceCents, item.TotalCents,
		)
		if err != nil {
			return domain.Internal(err, "postgres.create_order", "failed to insert order item")
		}
	}

	for _, change := range history {
		if err := insertStatusChange(ctx, tx, change); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, "postgres.create_order", "failed to commit transaction")
	}
	return nil
}

// GetOrder returns the order with its items.
func (s *OrderStore) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.getOrder(ctx, "id = $1", id)
}

// GetOrderByNumber returns the order with its items.
func (s *OrderStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.getOrder(ctx, "order_number = $1", orderNumber)
}

func (s *OrderStore) getOrder(ctx context.Context, where string, arg any) (*domain.Order, error) {
	var (
		order     domain.Order
		status    string
		riskLevel string
	)

	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, order_number, user_id, subtotal_cents, total_cents, status,
		       fraud_score, risk_level, flagged_for_review, risk_narrative,
		       shipping_address, billing_address, payment_method, notes,
		       cancellation_reason, created_at, updated_at, cancelled_at
		FROM orders
		WHERE %s
	`, where), arg).Scan(
		&order.ID, &order.OrderNumber, &order.UserID, &order.SubtotalCents, &order.TotalCents,
		&status, &order.FraudScore, &riskLevel, &order.FlaggedForReview, &order.RiskNarrative,
		&order.ShippingAddress, &order.BillingAddress, &order.PaymentMethod, &order.Notes,
		&order.CancellationReason, &order.CreatedAt, &order.UpdatedAt, &order.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "postgres.get_order", "failed to select order")
	}
	order.Status = domain.OrderStatus(status)
	order.RiskLevel = domain.RiskLevel(riskLevel)

	items, err := s.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (s *OrderStore) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price_cents, total_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, domain.Internal(err, "postgres.get_order", "failed to select order items")
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPriceCents, &item.TotalCents); err != nil {
			return nil, domain.Internal(err, "postgres.get_order", "failed to scan order item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.get_order", "failed to read order items")
	}
	return items, nil
}

// UpdateOrder saves the order fields and appends the history row in one
// transaction.
func (s *OrderStore) UpdateOrder(ctx context.Context, order *domain.Order, change domain.StatusChange) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, "postgres.update_order", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, notes = $3, cancellation_reason = $4, risk_level = $5,
		    flagged_for_review = $6, updated_at = $7, cancelled_at = $8
		WHERE id = $1
	`,
		order.ID, string(order.Status), order.Notes, order.CancellationReason,
		string(order.RiskLevel), order.FlaggedForReview, order.UpdatedAt, order.CancelledAt,
	)
	if err != nil {
		return domain.Internal(err, "postgres.update_order", "failed to update order")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	if err := insertStatusChange(ctx, tx, change); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, "postgres.update_order", "failed to commit transaction")
	}
	return nil
}

func insertStatusChange(ctx context.Context, tx pgx.Tx, change domain.StatusChange) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (
			order_id, from_status, to_status, changed_by, notes,
			system_generated, notification_sent, ip_address, user_agent, occurred_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		change.OrderID, string(change.FromStatus), string(change.ToStatus), change.ChangedBy,
		change.Notes, change.SystemGenerated, change.NotificationSent, change.IPAddress,
		change.UserAgent, change.OccurredAt,
	)
	if err != nil {
		return domain.Internal(err, "postgres.insert_status_change", "failed to insert status history")
	}
	return nil
}

// GetHistory returns the status history rows in insertion order.
func (s *OrderStore) GetHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusChange, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, notes,
		       system_generated, notification_sent, ip_address, user_agent, occurred_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, domain.Internal(err, "postgres.get_history", "failed to select status history")
	}
	defer rows.Close()

	changes, err := scanStatusChanges(rows)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		// Distinguish an unknown order from one with no history yet.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return nil, domain.Internal(err, "postgres.get_history", "failed to check order")
		}
		if !exists {
			return nil, domain.ErrOrderNotFound
		}
	}
	return changes, nil
}

// ListOrders returns orders matching the filter, newest first. Items are
// not loaded for listings.
func (s *OrderStore) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.FlaggedOnly {
		conds = append(conds, "flagged_for_review")
	}
	if !filter.CreatedAfter.IsZero() {
		add("created_at >= $%d", filter.CreatedAfter)
	}
	if !filter.CreatedBefore.IsZero() {
		add("created_at <= $%d", filter.CreatedBefore)
	}

	query := `
		SELECT id, order_number, user_id, subtotal_cents, total_cents, status,
		       fraud_score, risk_level, flagged_for_review, risk_narrative,
		       shipping_address, billing_address, payment_method, notes,
		       cancellation_reason, created_at, updated_at, cancelled_at
		FROM orders
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, "postgres.list_orders", "failed to select orders")
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var (
			order     domain.Order
			status    string
			riskLevel string
		)
		err := rows.Scan(
			&order.ID, &order.OrderNumber, &order.UserID, &order.SubtotalCents, &order.TotalCents,
			&status, &order.FraudScore, &riskLevel, &order.FlaggedForReview, &order.RiskNarrative,
			&order.ShippingAddress, &order.BillingAddress, &order.PaymentMethod, &order.Notes,
			&order.CancellationReason, &order.CreatedAt, &order.UpdatedAt, &order.CancelledAt,
		)
		if err != nil {
			return nil, domain.Internal(err, "postgres.list_orders", "failed to scan order")
		}
		order.Status = domain.OrderStatus(status)
		order.RiskLevel = domain.RiskLevel(riskLevel)
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.list_orders", "failed to read orders")
	}
	return orders, nil
}

// MarkNotified flags a history row as notified.
func (s *OrderStore) MarkNotified(ctx context.Context, changeID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE order_status_history
		SET notification_sent = TRUE
		WHERE id = $1
	`, changeID)
	if err != nil {
		return domain.Internal(err, "postgres.mark_notified", "failed to update status history")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("postgres.mark_notified", "status change", strconv.FormatInt(changeID, 10))
	}
	return nil
}

// ListUnnotified returns unsent history rows, oldest first.
func (s *OrderStore) ListUnnotified(ctx context.Context, limit int) ([]domain.StatusChange, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, notes,
		       system_generated, notification_sent, ip_address, user_agent, occurred_at
		FROM order_status_history
		WHERE NOT notification_sent
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, domain.Internal(err, "postgres.list_unnotified", "failed to select status history")
	}
	defer rows.Close()

	return scanStatusChanges(rows)
}

func scanStatusChanges(rows pgx.Rows) ([]domain.StatusChange, error) {
	var changes []domain.StatusChange
	for rows.Next() {
		var (
			change domain.StatusChange
			from   string
			to     string
		)
		err := rows.Scan(
			&change.ID, &change.OrderID, &from, &to, &change.ChangedBy, &change.Notes,
			&change.SystemGenerated, &change.NotificationSent, &change.IPAddress,
			&change.UserAgent, &change.OccurredAt,
		)
		if err != nil {
			return nil, domain.Internal(err, "postgres.scan_status_change", "failed to scan status history")
		}
		change.FromStatus = domain.OrderStatus(from)
		change.ToStatus = domain.OrderStatus(to)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.scan_status_change", "failed to read status history")
	}
	return changes, nil
}
