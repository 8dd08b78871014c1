// Package catalog provides product lookups for the cart and order flows.
package catalog

import (
	"context"
	"sync"

	"github.com/dukerupert/sindri/internal/domain"
)

// Memory is a map-backed product catalog.
type Memory struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
}

// NewMemory creates an empty catalog.
func NewMemory() *Memory {
	return &Memory{products: make(map[int64]domain.Product)}
}

// Put inserts or replaces a product.
func (m *Memory) Put(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// GetProduct returns the product or domain.ErrProductNotFound.
func (m *Memory) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}
