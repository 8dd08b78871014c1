package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sindri/internal/domain"
	"github.com/dukerupert/sindri/internal/memory"
	"github.com/dukerupert/sindri/internal/notify"
	"github.com/dukerupert/sindri/internal/telemetry"
)

func newNotifierFixture(t *testing.T, sink notify.Sink) (*Notifier, *memory.OrderStore) {
	t.Helper()

	store := memory.NewOrderStore()
	metrics := telemetry.NewBusinessMetricsWith(prometheus.NewRegistry(), "sindri_test")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotifier(store, sink, metrics, Config{}, logger), store
}

func seedOrder(t *testing.T, store *memory.OrderStore) *domain.Order {
	t.Helper()

	now := time.Now().UTC()
	order := &domain.Order{
		ID:          uuid.New(),
		OrderNumber: domain.NewOrderNumber(now),
		UserID:      "user-1",
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.CreateOrder(context.Background(), order, []domain.StatusChange{{
		OrderID:         order.ID,
		ToStatus:        domain.StatusPending,
		ChangedBy:       "system",
		SystemGenerated: true,
		OccurredAt:      now,
	}}))
	return order
}

func TestNotifier_DispatchPending(t *testing.T) {
	sink := &notify.MockSink{}
	notifier, store := newNotifierFixture(t, sink)
	order := seedOrder(t, store)

	notifier.DispatchPending(context.Background())

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, order.OrderNumber, events[0].OrderNumber)
	assert.Equal(t, string(domain.StatusPending), events[0].ToStatus)

	// The row is marked and not redelivered.
	notifier.DispatchPending(context.Background())
	assert.Len(t, sink.Events(), 1)

	pending, err := store.ListUnnotified(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotifier_DispatchPending_SameTimestampRows(t *testing.T) {
	sink := &notify.MockSink{}
	notifier, store := newNotifierFixture(t, sink)
	order := seedOrder(t, store)

	// A second transition in the same microsecond as the first. The rows
	// share occurred_at but are distinct outbox entries, so both events
	// must be delivered.
	order.Status = domain.StatusApproved
	require.NoError(t, store.UpdateOrder(context.Background(), order, domain.StatusChange{
		OrderID:    order.ID,
		FromStatus: domain.StatusPending,
		ToStatus:   domain.StatusApproved,
		ChangedBy:  "admin-1",
		OccurredAt: order.CreatedAt,
	}))

	notifier.DispatchPending(context.Background())

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, string(domain.StatusPending), events[0].ToStatus)
	assert.Equal(t, string(domain.StatusApproved), events[1].ToStatus)

	pending, err := store.ListUnnotified(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotifier_DispatchPending_SinkFailureRetries(t *testing.T) {
	calls := 0
	sink := &notify.MockSink{
		OrderStatusChangedFunc: func(context.Context, notify.StatusEvent) error {
			calls++
			if calls == 1 {
				return errors.New("broker down")
			}
			return nil
		},
	}
	notifier, store := newNotifierFixture(t, sink)
	seedOrder(t, store)

	// First pass fails, row stays unsent.
	notifier.DispatchPending(context.Background())
	pending, err := store.ListUnnotified(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Second pass succeeds.
	notifier.DispatchPending(context.Background())
	pending, err = store.ListUnnotified(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
