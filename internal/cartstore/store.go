// Package cartstore persists cart aggregates keyed by owner. Owners are
// either authenticated user IDs or guest session IDs; the service layer
// prefixes guest keys so the two namespaces never collide.
package cartstore

import (
	"context"

	"github.com/dukerupert/sindri/internal/domain"
)

// Store reads and writes whole carts. Get on an unknown owner returns
// domain.ErrCartNotFound.
type Store interface {
	Get(ctx context.Context, ownerKey string) (*domain.Cart, error)
	Put(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, ownerKey string) error
}
