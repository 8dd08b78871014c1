package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/dukerupert/sindri/internal/domain"
)

// subjectPrefix scopes status subjects, e.g. orders.status.shipped.
const subjectPrefix = "orders.status"

// NATSSink publishes status events to NATS, one subject per target status
// so consumers can subscribe to orders.status.> or a single transition.
type NATSSink struct {
	conn *nats.Conn
}

// NewNATSSink wraps an established NATS connection.
func NewNATSSink(conn *nats.Conn) *NATSSink {
	return &NATSSink{conn: conn}
}

func (s *NATSSink) OrderStatusChanged(_ context.Context, event StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return domain.Internal(err, "notify.nats", "failed to encode status event")
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, event.ToStatus)
	if err := s.conn.Publish(subject, data); err != nil {
		return domain.Internal(err, "notify.nats", "failed to publish status event")
	}
	return nil
}
