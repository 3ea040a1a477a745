package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/ports"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/logging"
)

// Bridge routes broker events into the fanout. It is the only coupling
// between the HTTP query path and the realtime path: memory persistence
// happens first, the room broadcast follows eventually.
type Bridge struct {
	subscriber ports.EventSubscriber
	fanout     *Fanout
	log        *slog.Logger
}

// NewBridge wires a subscriber to a fanout.
func NewBridge(subscriber ports.EventSubscriber, fanout *Fanout) *Bridge {
	return &Bridge{
		subscriber: subscriber,
		fanout:     fanout,
		log:        logging.Component("bridge"),
	}
}

// Run installs the subscriptions. Handlers stay registered until the
// subscriber is closed.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.subscriber.SubscribeMemoryCreated(ctx, b.onMemoryCreated); err != nil {
		return err
	}
	return b.subscriber.SubscribeInteractions(ctx, b.onInteraction)
}

func (b *Bridge) onMemoryCreated(ctx context.Context, m *domain.Memory) error {
	if !m.IsActive {
		return nil
	}
	room := RoomFor(m.Location)
	n := b.fanout.NotifyRoom(room, EventNewMemoryNearby, map[string]any{
		"memory_id":        m.ID,
		"title":            m.Title,
		"content_type":     string(m.ContentType),
		"creator_username": m.CreatorUsername,
		"latitude":         m.Location.Lat,
		"longitude":        m.Location.Lon,
		"created_at":       m.CreatedAt.Format(time.RFC3339),
	}, "")
	b.log.Debug("memory broadcast", "room", string(room), "delivered", n)
	return nil
}

func (b *Bridge) onInteraction(ctx context.Context, ev *domain.InteractionEvent) error {
	// Never notify users about their own likes/comments.
	if ev.ActorID == ev.CreatorID {
		return nil
	}

	payload := map[string]any{
		"type":         string(ev.Type),
		"memory_id":    ev.MemoryID,
		"memory_title": ev.MemoryTitle,
		"from_user":    ev.ActorUsername,
		"timestamp":    ev.Timestamp.Format(time.RFC3339),
	}
	if ev.Type == domain.InteractionComment && ev.CommentPreview != "" {
		payload["comment_preview"] = ev.CommentPreview
	}

	b.fanout.NotifyUser(ev.CreatorID, EventMemoryInteraction, payload)
	return nil
}
