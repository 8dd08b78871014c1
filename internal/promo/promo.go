// Package promo holds the promotional discount table and its lookup rules.
package promo

import (
	"strings"
	"sync"

	"github.com/dukerupert/sindri/internal/domain"
)

// Rule is a single promo code entry. Percent is a whole percentage taken
// off the cart subtotal.
type Rule struct {
	Code             string
	Percent          int32
	MinSubtotalCents int64
	Active           bool
}

// Table maps promo codes to discount rules. Lookups are case-insensitive.
type Table struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewTable creates a table seeded with the standing promotions.
func NewTable() *Table {
	t := &Table{rules: make(map[string]Rule)}
	t.Put(Rule{Code: "SAVE10", Percent: 10, Active: true})
	t.Put(Rule{Code: "WELCOME20", Percent: 20, Active: true})
	return t
}

// Put inserts or replaces a rule.
func (t *Table) Put(r Rule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules[strings.ToUpper(r.Code)] = r
}

// Remove deletes a rule. Removing an unknown code is a no-op.
func (t *Table) Remove(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rules, strings.ToUpper(code))
}

// Lookup resolves a code against the given cart subtotal. Unknown and
// inactive codes both report ErrInvalidPromoCode so callers cannot probe
// which codes exist; a code below its minimum subtotal reports EINVALID
// with a message the storefront can show.
func (t *Table) Lookup(code string, subtotalCents int64) (Rule, error) {
	t.mu.RLock()
	r, ok := t.rules[strings.ToUpper(strings.TrimSpace(code))]
	t.mu.RUnlock()

	if !ok || !r.Active {
		return Rule{}, domain.ErrInvalidPromoCode
	}
	if subtotalCents < r.MinSubtotalCents {
		return Rule{}, domain.Errorf(domain.EINVALID, "promo.lookup",
			"promo %s requires a subtotal of at least %d cents", r.Code, r.MinSubtotalCents)
	}
	return r, nil
}
