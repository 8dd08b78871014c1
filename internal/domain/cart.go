package domain

import (
	"time"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrInvalidPromoCode = &Error{Code: EINVALID, Message: "Promo code is not recognized"}
	ErrOutOfStock       = &Error{Code: ECONFLICT, Message: "Requested quantity exceeds available stock"}
)

// CartLine is a single cart line item with a unit price snapshot.
// The snapshot is taken when the line is added; later catalog price changes
// do not affect lines already in a cart.
type CartLine struct {
	ProductID      int64 `json:"product_id"`
	UnitPriceCents int64 `json:"unit_price_cents"`
	Quantity       int32 `json:"quantity"`
}

// LineSubtotal returns quantity times unit price.
func (l CartLine) LineSubtotal() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}

// Cart is the per-owner cart aggregate. An owner key is either a user ID or
// a guest session ID; the two never collide because guest keys are prefixed
// by the cart store.
//
// Totals are recomputed synchronously by every mutating method, so a cart
// read after any mutation always satisfies:
//
//	SubtotalCents == sum of line subtotals
//	ShippingCents == 0 when SubtotalCents >= FreeShippingThresholdCents else flat fee
//	TaxCents      == (SubtotalCents - DiscountCents) * rate
//	TotalCents    == SubtotalCents + TaxCents + ShippingCents - DiscountCents
type Cart struct {
	OwnerKey        string     `json:"owner_key"`
	Lines           []CartLine `json:"lines"`
	PromoCode       string     `json:"promo_code,omitempty"`
	DiscountPercent int32      `json:"discount_percent,omitempty"`
	DiscountCents   int64      `json:"discount_cents"`
	SubtotalCents   int64      `json:"subtotal_cents"`
	TaxCents        int64      `json:"tax_cents"`
	ShippingCents   int64      `json:"shipping_cents"`
	TotalCents      int64      `json:"total_cents"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewCart creates an empty cart for the given owner key.
func NewCart(ownerKey string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		OwnerKey:  ownerKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var n int
	for _, l := range c.Lines {
		n += int(l.Quantity)
	}
	return n
}

// Line returns the line for productID, or nil if absent.
func (c *Cart) Line(productID int64) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// AddItem adds quantity of a product at the given price snapshot. If the
// product is already in the cart the quantity accumulates in place and the
// existing price snapshot is kept. Totals are recomputed before returning.
func (c *Cart) AddItem(productID int64, unitPriceCents int64, quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if line := c.Line(productID); line != nil {
		line.Quantity += quantity
	} else {
		c.Lines = append(c.Lines, CartLine{
			ProductID:      productID,
			UnitPriceCents: unitPriceCents,
			Quantity:       quantity,
		})
	}

	c.Recalculate()
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line. Setting a quantity for a product not yet in the cart
// inserts a new line at the given price snapshot (upsert semantics).
func (c *Cart) UpdateQuantity(productID int64, unitPriceCents int64, quantity int32) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}

	if line := c.Line(productID); line != nil {
		line.Quantity = quantity
	} else {
		c.Lines = append(c.Lines, CartLine{
			ProductID:      productID,
			UnitPriceCents: unitPriceCents,
			Quantity:       quantity,
		})
	}

	c.Recalculate()
}

// RemoveItem deletes the line for productID. Removing an absent line is a
// no-op; totals are recomputed either way.
func (c *Cart) RemoveItem(productID int64) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			break
		}
	}
	c.Recalculate()
}

// Clear removes all lines and the promo code.
func (c *Cart) Clear() {
	c.Lines = nil
	c.PromoCode = ""
	c.DiscountPercent = 0
	c.Recalculate()
}

// ApplyDiscount applies a percentage discount under the given code.
// Re-applying replaces the previous discount rather than stacking.
func (c *Cart) ApplyDiscount(code string, percent int32) {
	c.PromoCode = code
	c.DiscountPercent = percent
	c.Recalculate()
}

// RemoveDiscount clears the promo code and discount.
func (c *Cart) RemoveDiscount() {
	c.PromoCode = ""
	c.DiscountPercent = 0
	c.Recalculate()
}

// Recalculate recomputes every derived amount from the lines and discount.
// It is called by every mutating method; callers that mutate lines directly
// must call it themselves.
func (c *Cart) Recalculate() {
	var subtotal int64
	for _, l := range c.Lines {
		subtotal += l.LineSubtotal()
	}

	c.SubtotalCents = subtotal
	c.DiscountCents = subtotal * int64(c.DiscountPercent) / 100
	if len(c.Lines) == 0 {
		// Nothing to ship.
		c.ShippingCents = 0
	} else {
		c.ShippingCents = ShippingFor(subtotal)
	}
	c.TaxCents = TaxOn(subtotal - c.DiscountCents)
	c.TotalCents = subtotal + c.TaxCents + c.ShippingCents - c.DiscountCents
	c.UpdatedAt = time.Now().UTC()
}
