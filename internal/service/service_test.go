package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/sindri/internal/cartstore"
	"github.com/dukerupert/sindri/internal/catalog"
	"github.com/dukerupert/sindri/internal/directory"
	"github.com/dukerupert/sindri/internal/domain"
	"github.com/dukerupert/sindri/internal/fraud"
	"github.com/dukerupert/sindri/internal/inventory"
	"github.com/dukerupert/sindri/internal/memory"
	"github.com/dukerupert/sindri/internal/promo"
	"github.com/dukerupert/sindri/internal/telemetry"
)

// fixture wires the services against in-memory collaborators.
type fixture struct {
	carts     *cartstore.Memory
	orders    *memory.OrderStore
	catalog   *catalog.Memory
	directory *directory.Memory
	guard     *inventory.Guard
	promos    *promo.Table
	metrics   *telemetry.BusinessMetrics

	cartSvc  CartService
	orderSvc OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := telemetry.NewBusinessMetricsWith(prometheus.NewRegistry(), "sindri_test")

	f := &fixture{
		carts:     cartstore.NewMemory(),
		orders:    memory.NewOrderStore(),
		catalog:   catalog.NewMemory(),
		directory: directory.NewMemory(),
		guard:     inventory.NewGuard(),
		promos:    promo.NewTable(),
		metrics:   metrics,
	}

	f.catalog.Put(domain.Product{ID: 1, Name: "Widget", PriceCents: 2500, Active: true, StockQuantity: 100})
	f.catalog.Put(domain.Product{ID: 2, Name: "Gadget", PriceCents: 60000, Active: true, StockQuantity: 10})
	f.catalog.Put(domain.Product{ID: 3, Name: "Discontinued", PriceCents: 999, Active: false})
	f.guard.SetStock(1, 100)
	f.guard.SetStock(2, 10)

	f.directory.Put(domain.User{ID: "user-1", Email: "one@example.com", EmailVerified: true, PriorOrderCount: 4})
	f.directory.Put(domain.User{ID: "user-new", Email: "new@example.com", EmailVerified: true, PriorOrderCount: 0})

	f.cartSvc = NewCartService(f.carts, f.catalog, f.promos, f.guard, metrics, logger)

	analyzer := fraud.NewAnalyzer(nil, 0, metrics.NarrativeFailures, logger)
	f.orderSvc = NewOrderService(f.orders, f.carts, f.catalog, f.directory, f.guard, analyzer, metrics, logger)

	return f
}
