package cartstore

import (
	"context"
	"sync"

	"github.com/dukerupert/sindri/internal/domain"
)

// Memory is a map-backed Store. Carts are copied on the way in and out so
// callers cannot mutate stored state without going through Put.
type Memory struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

// NewMemory creates an empty in-memory cart store.
func NewMemory() *Memory {
	return &Memory{carts: make(map[string]*domain.Cart)}
}

func (m *Memory) Get(_ context.Context, ownerKey string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cart, ok := m.carts[ownerKey]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (m *Memory) Put(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[cart.OwnerKey] = copyCart(cart)
	return nil
}

func (m *Memory) Delete(_ context.Context, ownerKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, ownerKey)
	return nil
}

func copyCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Lines = make([]domain.CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return &out
}
