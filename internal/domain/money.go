package domain

// All monetary amounts are integer cents. Rates are basis points so that
// totals stay exact under integer arithmetic.
const (
	// FreeShippingThresholdCents is the cart subtotal at which shipping
	// becomes free. Carts at or above the threshold ship for free.
	FreeShippingThresholdCents int64 = 5000

	// FlatShippingCents is the flat shipping fee below the free threshold.
	FlatShippingCents int64 = 599

	// TaxRateBasisPoints is the sales tax rate applied to the discounted
	// subtotal (800 = 8%).
	TaxRateBasisPoints int64 = 800
)

// TaxOn returns the tax owed on the given amount, rounded down to the cent.
func TaxOn(amountCents int64) int64 {
	if amountCents <= 0 {
		return 0
	}
	return amountCents * TaxRateBasisPoints / 10000
}

// ShippingFor returns the shipping fee for a cart subtotal.
func ShippingFor(subtotalCents int64) int64 {
	if subtotalCents >= FreeShippingThresholdCents {
		return 0
	}
	return FlatShippingCents
}
