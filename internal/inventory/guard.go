// Package inventory tracks on-hand stock and guards order creation against
// overselling.
package inventory

import (
	"sort"
	"sync"

	"github.com/dukerupert/sindri/internal/domain"
)

// Demand is a quantity of one product requested from stock.
type Demand struct {
	ProductID int64
	Quantity  int32
}

// productStock is one product's ledger entry with its own lock, so
// reservations on different products never contend.
type productStock struct {
	mu       sync.Mutex
	quantity int32
}

// Guard is an in-memory stock ledger with per-product locking. Two orders
// competing for the last unit of one product serialize and exactly one wins;
// orders touching disjoint products proceed independently.
type Guard struct {
	mu       sync.Mutex // guards the products map, not the stock levels
	products map[int64]*productStock
}

// NewGuard creates an empty stock ledger.
func NewGuard() *Guard {
	return &Guard{products: make(map[int64]*productStock)}
}

// get returns the product's entry, creating it if absent.
func (g *Guard) get(productID int64) *productStock {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.products[productID]
	if !ok {
		e = &productStock{}
		g.products[productID] = e
	}
	return e
}

// SetStock sets the absolute stock level for a product.
func (g *Guard) SetStock(productID int64, quantity int32) {
	e := g.get(productID)
	e.mu.Lock()
	e.quantity = quantity
	e.mu.Unlock()
}

// Stock returns the current stock level. Unknown products have zero stock.
func (g *Guard) Stock(productID int64) int32 {
	g.mu.Lock()
	e, ok := g.products[productID]
	g.mu.Unlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quantity
}

// Reserve deducts every demand from stock, all or nothing. If any product
// is unknown or short the whole call fails and no stock moves. A product
// may appear at most once per call.
func (g *Guard) Reserve(demands []Demand) error {
	ordered := make([]Demand, len(demands))
	copy(ordered, demands)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	entries := make([]*productStock, len(ordered))
	g.mu.Lock()
	for i, d := range ordered {
		e, ok := g.products[d.ProductID]
		if !ok {
			g.mu.Unlock()
			return domain.ErrProductNotFound
		}
		entries[i] = e
	}
	g.mu.Unlock()

	// Lock in ascending product order so two multi-product reservations
	// with overlapping demands cannot deadlock.
	for _, e := range entries {
		e.mu.Lock()
	}
	defer func() {
		for _, e := range entries {
			e.mu.Unlock()
		}
	}()

	for i, d := range ordered {
		if entries[i].quantity < d.Quantity {
			return domain.Errorf(domain.ECONFLICT, "inventory.reserve",
				"insufficient stock for product %d: have %d, want %d", d.ProductID, entries[i].quantity, d.Quantity)
		}
	}
	for i, d := range ordered {
		entries[i].quantity -= d.Quantity
	}
	return nil
}

// Release returns previously reserved quantities to stock. Releasing for a
// product the guard has never seen creates its entry, so a release after a
// restart still lands somewhere visible.
func (g *Guard) Release(demands []Demand) {
	for _, d := range demands {
		e := g.get(d.ProductID)
		e.mu.Lock()
		e.quantity += d.Quantity
		e.mu.Unlock()
	}
}
