package notify

import (
	"context"
	"sync"
)

// NoopSink discards all events. Used when no broker is configured.
type NoopSink struct{}

func (NoopSink) OrderStatusChanged(context.Context, StatusEvent) error {
	return nil
}

// MockSink records events for tests.
type MockSink struct {
	OrderStatusChangedFunc func(ctx context.Context, event StatusEvent) error

	mu     sync.Mutex
	events []StatusEvent
}

func (m *MockSink) OrderStatusChanged(ctx context.Context, event StatusEvent) error {
	if m.OrderStatusChangedFunc != nil {
		return m.OrderStatusChangedFunc(ctx, event)
	}
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

// Events returns a snapshot of the recorded events.
func (m *MockSink) Events() []StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StatusEvent, len(m.events))
	copy(out, m.events)
	return out
}
