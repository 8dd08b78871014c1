package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/sindri/internal/domain"
)

// Cart errors
var (
	ErrCartNotFound     = domain.ErrCartNotFound
	ErrInvalidQuantity  = domain.ErrInvalidQuantity
	ErrInvalidPromoCode = domain.ErrInvalidPromoCode
	ErrOutOfStock       = domain.ErrOutOfStock
	ErrProductInactive  = domain.Errorf(domain.ECONFLICT, "", "Product is not available for purchase")
)

// Order errors
var (
	ErrOrderNotFound     = domain.ErrOrderNotFound
	ErrEmptyCart         = domain.Errorf(domain.EINVALID, "", "Cart is empty")
	ErrOrderTerminal     = domain.ErrOrderTerminal
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrNotAwaitingReview = domain.Errorf(domain.ECONFLICT, "", "Order is not awaiting review")
)

// fieldErrors translates struct validation failures into per-field domain
// errors so callers can report which inputs to correct.
func fieldErrors(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var out error
	for _, fe := range verrs {
		out = domain.AddFieldError(out, fe.Field(), fmt.Sprintf("failed on the %q rule", fe.Tag()))
	}
	if ve, ok := out.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return out
}
