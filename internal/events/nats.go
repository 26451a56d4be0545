package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes events to JetStream under <subject>.<event type>
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetStreamPublisher
	subject string
}

// NewNATSPublisher connects to url and makes sure a stream captures subject.>
func NewNATSPublisher(url, subject string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	if err := ensureStream(js, subject); err != nil {
		nc.Close()
		return nil, err
	}

	return &NATSPublisher{conn: nc, js: js, subject: subject}, nil
}

func streamName(subject string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(subject))
}

func ensureStream(js nats.JetStreamContext, subject string) error {
	name := streamName(subject)
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subject + ".>"},
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	return nil
}

// Publish sends the event with its id as the JetStream dedup id
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	subj := p.subject + "." + event.Type
	if _, err := p.js.Publish(subj, data, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("failed to publish %s to nats: %w", event.Type, err)
	}
	return nil
}

// Ping reports whether the connection to the server is up
func (p *NATSPublisher) Ping(ctx context.Context) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return errors.New("nats connection is down")
	}
	return p.conn.FlushWithContext(ctx)
}

// Close drains the connection
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
