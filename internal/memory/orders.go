// Package memory provides in-memory implementations of the storage
// interfaces for tests and for running without external services.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/sindri/internal/domain"
)

// OrderStore is a map-backed domain.OrderStore. All methods copy on the
// way in and out, so stored orders cannot be mutated behind the lock.
type OrderStore struct {
	mu           sync.RWMutex
	orders       map[uuid.UUID]*domain.Order
	byNumber     map[string]uuid.UUID
	history      map[uuid.UUID][]domain.StatusChange
	nextChangeID int64
}

var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates an empty order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:   make(map[uuid.UUID]*domain.Order),
		byNumber: make(map[string]uuid.UUID),
		history:  make(map[uuid.UUID][]domain.StatusChange),
	}
}

func (s *OrderStore) CreateOrder(_ context.Context, order *domain.Order, history []domain.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return domain.Errorf(domain.ECONFLICT, "memory.create_order", "order %s already exists", order.ID)
	}

	s.orders[order.ID] = copyOrder(order)
	s.byNumber[order.OrderNumber] = order.ID
	for _, change := range history {
		s.appendChange(change)
	}
	return nil
}

// appendChange stamps the row with the next sequential ID. Callers hold the
// write lock.
func (s *OrderStore) appendChange(change domain.StatusChange) {
	s.nextChangeID++
	change.ID = s.nextChangeID
	s.history[change.OrderID] = append(s.history[change.OrderID], change)
}

func (s *OrderStore) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (s *OrderStore) GetOrderByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNumber[orderNumber]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(s.orders[id]), nil
}

func (s *OrderStore) UpdateOrder(_ context.Context, order *domain.Order, change domain.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}

	s.orders[order.ID] = copyOrder(order)
	s.appendChange(change)
	return nil
}

func (s *OrderStore) GetHistory(_ context.Context, orderID uuid.UUID) ([]domain.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, domain.ErrOrderNotFound
	}
	return append([]domain.StatusChange(nil), s.history[orderID]...), nil
}

func (s *OrderStore) ListOrders(_ context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, order := range s.orders {
		if !matches(order, filter) {
			continue
		}
		out = append(out, copyOrder(order))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *OrderStore) MarkNotified(_ context.Context, changeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rows := range s.history {
		for i := range rows {
			if rows[i].ID == changeID {
				rows[i].NotificationSent = true
				return nil
			}
		}
	}
	return domain.NotFound("memory.mark_notified", "status change", strconv.FormatInt(changeID, 10))
}

func (s *OrderStore) ListUnnotified(_ context.Context, limit int) ([]domain.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StatusChange
	for _, rows := range s.history {
		for _, row := range rows {
			if !row.NotificationSent {
				out = append(out, row)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(order *domain.Order, filter domain.OrderFilter) bool {
	if filter.UserID != "" && order.UserID != filter.UserID {
		return false
	}
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.FlaggedOnly && !order.FlaggedForReview {
		return false
	}
	if !filter.CreatedAfter.IsZero() && order.CreatedAt.Before(filter.CreatedAfter) {
		return false
	}
	if !filter.CreatedBefore.IsZero() && order.CreatedAt.After(filter.CreatedBefore) {
		return false
	}
	return true
}

func copyOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.CancelledAt != nil {
		ts := *o.CancelledAt
		out.CancelledAt = &ts
	}
	return &out
}
