package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream. Every
// service instance gets its own ephemeral consumer: realtime fanout must
// reach the local session registry of each instance, so events are not
// work-queued across them.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing a NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeMemoryCreated(ctx context.Context, handler func(ctx context.Context, m *domain.Memory) error) error {
	sub, err := s.js.Subscribe("memorylane.memory.created.>", func(msg *nats.Msg) {
		var m domain.Memory
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &m); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.ManualAck(),
		nats.DeliverNew(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeInteractions(ctx context.Context, handler func(ctx context.Context, ev *domain.InteractionEvent) error) error {
	sub, err := s.js.Subscribe("memorylane.interaction.>", func(msg *nats.Msg) {
		var ev domain.InteractionEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.ManualAck(),
		nats.DeliverNew(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains the connection.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
