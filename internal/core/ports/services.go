package ports

import (
	"context"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishMemoryCreated(ctx context.Context, m *domain.Memory) error
	PublishMemoryLiked(ctx context.Context, m *domain.Memory, actor *domain.User) error
	PublishMemoryCommented(ctx context.Context, m *domain.Memory, actor *domain.User, comment string) error
}

// EventSubscriber consumes domain events from a message broker. Handlers run
// to completion per message; returning an error requeues where the broker
// supports it.
type EventSubscriber interface {
	SubscribeMemoryCreated(ctx context.Context, handler func(ctx context.Context, m *domain.Memory) error) error
	SubscribeInteractions(ctx context.Context, handler func(ctx context.Context, ev *domain.InteractionEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TokenVerifier validates a realtime credential and yields the subject user
// id. Implementations return domain.ErrUnauthorized for missing, malformed
// or expired tokens.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
