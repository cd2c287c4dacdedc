package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects of the domain events emitted by the marketplace services.
const (
	SubjectOrderCreated       = "agri.order.created"
	SubjectOrderStatusUpdated = "agri.order.status.updated"
	SubjectMessagePosted      = "agri.conversation.message.posted"
	SubjectPricesRefreshed    = "agri.prices.refreshed"
)

// Publisher emits domain events. Delivery is best effort: callers log failures
// and never roll back a committed state change because of them.
type Publisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
}

const (
	connectWait   = 5 * time.Second
	maxReconnects = 5
	reconnectWait = 2 * time.Second
)

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("AgriDirect Event Publisher"),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

type natsPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) (Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	return &natsPublisher{conn: conn}, nil
}

func (p *natsPublisher) Publish(_ context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for subject %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to NATS subject %s: %w", subject, err)
	}
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event. It is used
// when no NATS_URL is configured.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }
