package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// StreamName is the JetStream stream holding boundary events.
const StreamName = "FARM_BOUNDARIES"

// NATSPublisher publishes boundary events on NATS, through JetStream when enabled.
type NATSPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewNATSPublisher connects to url. With jetStream set, the boundary stream is
// created or updated so events survive subscriber restarts.
func NewNATSPublisher(url string, jetStream bool) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("farmboard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	p := &NATSPublisher{conn: conn}
	if !jetStream {
		return p, nil
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// The stream may already exist with older settings
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
		}
	}
	p.js = js

	return p, nil
}

// PublishBoundary publishes event on its subject.
func (p *NATSPublisher) PublishBoundary(ctx context.Context, event BoundaryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode boundary event: %w", err)
	}

	if p.js != nil {
		if _, err := p.js.Publish(event.Subject(), data, nats.Context(ctx)); err != nil {
			return fmt.Errorf("jetstream publish %s: %w", event.Subject(), err)
		}
		return nil
	}

	if err := p.conn.Publish(event.Subject(), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", event.Subject(), err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}
