package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

const commentPreviewLen = 100

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "MEMORY_EVENTS",
			Subjects:  []string{"memorylane.memory.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "INTERACTION_EVENTS",
			Subjects:  []string{"memorylane.interaction.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// stream may already exist with stale config
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishMemoryCreated announces a persisted memory so realtime instances can
// broadcast it to the grid room.
func (p *Publisher) PublishMemoryCreated(ctx context.Context, m *domain.Memory) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("memorylane.memory.created."+m.ID, data)
	return err
}

// PublishMemoryLiked notifies the memory's creator about a like.
func (p *Publisher) PublishMemoryLiked(ctx context.Context, m *domain.Memory, actor *domain.User) error {
	return p.publishInteraction(&domain.InteractionEvent{
		Type:          domain.InteractionLike,
		MemoryID:      m.ID,
		MemoryTitle:   m.Title,
		CreatorID:     m.CreatorID,
		ActorID:       actor.ID,
		ActorUsername: actor.Username,
		Timestamp:     time.Now().UTC(),
	})
}

// PublishMemoryCommented notifies the memory's creator about a comment,
// carrying a truncated preview of the text.
func (p *Publisher) PublishMemoryCommented(ctx context.Context, m *domain.Memory, actor *domain.User, comment string) error {
	return p.publishInteraction(&domain.InteractionEvent{
		Type:           domain.InteractionComment,
		MemoryID:       m.ID,
		MemoryTitle:    m.Title,
		CreatorID:      m.CreatorID,
		ActorID:        actor.ID,
		ActorUsername:  actor.Username,
		CommentPreview: previewOf(comment),
		Timestamp:      time.Now().UTC(),
	})
}

func (p *Publisher) publishInteraction(ev *domain.InteractionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("memorylane.interaction."+string(ev.Type)+"."+ev.MemoryID, data)
	return err
}

// previewOf truncates comment text for the notification payload.
func previewOf(comment string) string {
	runes := []rune(comment)
	if len(runes) <= commentPreviewLen {
		return comment
	}
	return string(runes[:commentPreviewLen]) + "..."
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
