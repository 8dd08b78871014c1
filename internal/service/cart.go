package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/dukerupert/sindri/internal/cartstore"
	"github.com/dukerupert/sindri/internal/domain"
	"github.com/dukerupert/sindri/internal/inventory"
	"github.com/dukerupert/sindri/internal/promo"
	"github.com/dukerupert/sindri/internal/telemetry"
)

// guestKeyPrefix separates guest session carts from user carts in the store.
const guestKeyPrefix = "guest:"

// GuestOwnerKey derives the cart owner key for an anonymous session.
func GuestOwnerKey(sessionID string) string {
	return guestKeyPrefix + sessionID
}

// CartService provides business logic for shopping cart operations.
// All operations return the full cart with recomputed totals so callers
// never render stale amounts.
type CartService interface {
	// GetCart returns the owner's cart, creating an empty one if absent.
	GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error)

	// AddItem adds quantity of a product at its current catalog price.
	// Returns ErrOutOfStock when stock cannot cover the cart quantity.
	AddItem(ctx context.Context, ownerKey string, productID int64, quantity int32) (*domain.Cart, error)

	// UpdateItemQuantity sets a line's quantity. Zero removes the line.
	UpdateItemQuantity(ctx context.Context, ownerKey string, productID int64, quantity int32) (*domain.Cart, error)

	// RemoveItem deletes a line. Removing an absent line is a no-op.
	RemoveItem(ctx context.Context, ownerKey string, productID int64) (*domain.Cart, error)

	// ApplyPromo validates a code against the promo table and applies it.
	// Re-applying replaces any existing discount.
	ApplyPromo(ctx context.Context, ownerKey string, code string) (*domain.Cart, error)

	// RemovePromo clears the cart's discount.
	RemovePromo(ctx context.Context, ownerKey string) (*domain.Cart, error)

	// ClearCart removes all lines and the promo code.
	ClearCart(ctx context.Context, ownerKey string) error

	// MergeGuestCart folds a guest session cart into the user's cart at
	// login and deletes the guest cart. Quantities for shared products
	// accumulate; the user cart's promo code wins when both carts have one.
	MergeGuestCart(ctx context.Context, sessionID string, userID string) (*domain.Cart, error)
}

type cartService struct {
	store   cartstore.Store
	catalog domain.ProductCatalog
	promos  *promo.Table
	guard   *inventory.Guard
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCartService creates a new CartService instance.
func NewCartService(
	store cartstore.Store,
	catalog domain.ProductCatalog,
	promos *promo.Table,
	guard *inventory.Guard,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) CartService {
	return &cartService{
		store:   store,
		catalog: catalog,
		promos:  promos,
		guard:   guard,
		metrics: metrics,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// ownerLock returns the mutex serializing mutations for one owner key.
// Carts are read-modify-write against the store, so concurrent mutations
// for the same owner must not interleave.
func (s *cartService) ownerLock(ownerKey string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[ownerKey]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[ownerKey] = lock
	}
	return lock
}

func (s *cartService) GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, ownerKey)
	if domain.IsCode(err, domain.ENOTFOUND) {
		return domain.NewCart(ownerKey), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, ownerKey string, productID int64, quantity int32) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	lock := s.ownerLock(ownerKey)
	lock.Lock()
	defer lock.Unlock()

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, ErrProductInactive
	}

	cart, err := s.GetCart(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	// Advisory stock check against the whole cart quantity. The hard
	// reservation happens at order creation; this only keeps obviously
	// unfulfillable carts out of checkout.
	var inCart int32
	if line := cart.Line(productID); line != nil {
		inCart = line.Quantity
	}
	if s.guard.Stock(productID) < inCart+quantity {
		return nil, ErrOutOfStock
	}

	if err := cart.AddItem(productID, product.PriceCents, quantity); err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, cart); err != nil {
		return nil, err
	}

	s.metrics.CartUpdates.WithLabelValues("add").Inc()
	s.metrics.CartValue.Observe(float64(cart.TotalCents))
	s.logger.Debug("cart item added",
		"owner_key", ownerKey,
		"product_id", productID,
		"quantity", quantity,
		"total_cents", cart.TotalCents,
	)
	return cart, nil
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, ownerKey string, productID int64, quantity int32) (*domain.Cart, error) {
	lock := s.ownerLock(ownerKey)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.GetCart(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	if quantity > 0 {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if s.guard.Stock(productID) < quantity {
			return nil, ErrOutOfStock
		}
		cart.UpdateQuantity(productID, product.PriceCents, quantity)
	} else {
		cart.RemoveItem(productID)
	}

	if err := s.store.Put(ctx, cart); err != nil {
		return nil, err
	}

	s.metrics.CartUpdates.WithLabelValues("update").Inc()
	s.metrics.CartValue.Observe(float64(cart.TotalCents))
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, ownerKey string, productID int64) (*domain.Cart, error) {
	lock := s.ownerLock(ownerKey)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.GetCart(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	cart.RemoveItem(productID)
	if err := s.store.Put(ctx, cart); err != nil {
		return nil, err
	}

	s.metrics.CartUpdates.WithLabelValues("remove").Inc()
	return cart, nil
}

func (s *cartService) ApplyPromo(ctx context.Context, ownerKey string, code string) (*domain.Cart, error) {
	lock := s.ownerLock(ownerKey)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.GetCart(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	rule, err := s.promos.Lookup(code, cart.SubtotalCents)
	if err != nil {
		s.metrics.PromoApplied.WithLabelValues(code, "rejected").Inc()
		return nil, err
	}

	cart.ApplyDiscount(rule.Code, rule.Percent)
	if err := s.store.Put(ctx, cart); err != nil {
		return nil, err
	}

	s.metrics.PromoApplied.WithLabelValues(rule.Code, "accepted").Inc()
	s.logger.Info("promo applied",
		"owner_key", ownerKey,
		"code", rule.Code,
		"discount_cents", cart.DiscountCents,
	)
	return cart, nil
}

func (s *cartService) RemovePromo(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	lock := s.ownerLock(ownerKey)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.GetCart(ctx, ownerKey)
	if err != nil {
		return nil, err
	}

	cart.RemoveDiscount()
	if err := s.store.Put(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) ClearCart(ctx context.Context, ownerKey string) error {
	lock := s.ownerLock(ownerKey)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Delete(ctx, ownerKey); err != nil {
		return err
	}
	s.metrics.CartUpdates.WithLabelValues("clear").Inc()
	return nil
}

func (s *cartService) MergeGuestCart(ctx context.Context, sessionID string, userID string) (*domain.Cart, error) {
	guestKey := GuestOwnerKey(sessionID)

	// Lock both owners in a fixed order so concurrent merges cannot
	// deadlock.
	keys := []string{guestKey, userID}
	sort.Strings(keys)
	for _, key := range keys {
		lock := s.ownerLock(key)
		lock.Lock()
		defer lock.Unlock()
	}

	userCart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	guestCart, err := s.store.Get(ctx, guestKey)
	if domain.IsCode(err, domain.ENOTFOUND) {
		// Nothing to merge.
		return userCart, nil
	}
	if err != nil {
		return nil, err
	}

	for _, line := range guestCart.Lines {
		// The user cart's price snapshot wins for shared products.
		if existing := userCart.Line(line.ProductID); existing != nil {
			existing.Quantity += line.Quantity
		} else {
			userCart.Lines = append(userCart.Lines, line)
		}
	}
	if userCart.PromoCode == "" && guestCart.PromoCode != "" {
		userCart.PromoCode = guestCart.PromoCode
		userCart.DiscountPercent = guestCart.DiscountPercent
	}
	userCart.Recalculate()

	if err := s.store.Put(ctx, userCart); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, guestKey); err != nil {
		s.logger.Warn("failed to delete guest cart after merge",
			"session_id", sessionID,
			"error", err,
		)
	}

	s.metrics.CartMerges.Inc()
	s.logger.Info("guest cart merged",
		"user_id", userID,
		"merged_lines", len(guestCart.Lines),
		"total_cents", userCart.TotalCents,
	)
	return userCart, nil
}
