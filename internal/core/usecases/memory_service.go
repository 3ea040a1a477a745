package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/ports"
)

// MemoryService owns the memory write path: creation, retrieval with the
// visibility rule applied, and like/comment/report interactions. Writes are
// persisted first; broker publishes follow and are best effort, so realtime
// notifications are eventually consistent with storage.
type MemoryService struct {
	memories     ports.MemoryRepository
	interactions ports.InteractionRepository
	users        ports.UserRepository
	publisher    ports.EventPublisher
	now          func() time.Time
}

// NewMemoryService builds the write-path service. publisher may be nil to run
// without a broker, e.g. in migrations or tests.
func NewMemoryService(memories ports.MemoryRepository, interactions ports.InteractionRepository, users ports.UserRepository, publisher ports.EventPublisher) *MemoryService {
	return &MemoryService{
		memories:     memories,
		interactions: interactions,
		users:        users,
		publisher:    publisher,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and persists a new memory, then announces it to the grid
// room via the broker.
func (s *MemoryService) Create(ctx context.Context, m *domain.Memory) error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidParameter)
	}
	if err := m.Location.Validate(); err != nil {
		return err
	}
	switch m.ContentType {
	case domain.ContentText, domain.ContentPhoto, domain.ContentAudio, domain.ContentVideo:
	default:
		return fmt.Errorf("%w: unknown content type %q", domain.ErrInvalidParameter, m.ContentType)
	}
	switch m.Privacy {
	case "":
		m.Privacy = domain.PrivacyPublic
	case domain.PrivacyPublic, domain.PrivacyFriends, domain.PrivacyPrivate:
	default:
		return fmt.Errorf("%w: unknown privacy level %q", domain.ErrInvalidParameter, m.Privacy)
	}

	creator, err := s.users.GetByID(ctx, m.CreatorID)
	if err != nil {
		return fmt.Errorf("%w: unknown creator", domain.ErrInvalidParameter)
	}
	if !creator.IsActive {
		return fmt.Errorf("%w: %s", domain.ErrAccountInactive, creator.Username)
	}

	m.ID = uuid.NewString()
	m.CreatorUsername = creator.Username
	m.IsActive = true
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt

	if err := s.memories.Create(ctx, m); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	slog.Info("memory created", "memory_id", m.ID, "creator", m.CreatorUsername)

	if s.publisher != nil {
		if err := s.publisher.PublishMemoryCreated(ctx, m); err != nil {
			slog.Warn("memory created publish failed", "memory_id", m.ID, "error", err)
		}
	}
	return nil
}

// Get returns a memory if it is visible to viewerID, ErrNotFound otherwise.
// Hidden and missing memories are indistinguishable to the caller.
func (s *MemoryService) Get(ctx context.Context, id, viewerID string) (*domain.Memory, error) {
	m, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.CanView(viewerID, s.now()) {
		return nil, fmt.Errorf("%w: memory %s", domain.ErrNotFound, id)
	}
	return m, nil
}

// Like records a like for actor on a memory. Duplicate likes from the same
// user are rejected.
func (s *MemoryService) Like(ctx context.Context, memoryID string, actor *domain.User) error {
	m, err := s.visibleTo(ctx, memoryID, actor.ID)
	if err != nil {
		return err
	}

	already, err := s.interactions.HasInteracted(ctx, actor.ID, memoryID, domain.InteractionLike)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	if already {
		return fmt.Errorf("%w: memory already liked", domain.ErrInvalidParameter)
	}

	if err := s.saveInteraction(ctx, memoryID, actor.ID, domain.InteractionLike, ""); err != nil {
		return err
	}
	if err := s.memories.IncrementLikes(ctx, memoryID); err != nil {
		slog.Warn("like counter update failed", "memory_id", memoryID, "error", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMemoryLiked(ctx, m, actor); err != nil {
			slog.Warn("like publish failed", "memory_id", memoryID, "error", err)
		}
	}
	return nil
}

// Comment records a comment for actor on a memory.
func (s *MemoryService) Comment(ctx context.Context, memoryID string, actor *domain.User, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: comment text is required", domain.ErrInvalidParameter)
	}

	m, err := s.visibleTo(ctx, memoryID, actor.ID)
	if err != nil {
		return err
	}

	if err := s.saveInteraction(ctx, memoryID, actor.ID, domain.InteractionComment, text); err != nil {
		return err
	}
	if err := s.memories.IncrementComments(ctx, memoryID); err != nil {
		slog.Warn("comment counter update failed", "memory_id", memoryID, "error", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMemoryCommented(ctx, m, actor, text); err != nil {
			slog.Warn("comment publish failed", "memory_id", memoryID, "error", err)
		}
	}
	return nil
}

// Report flags a memory for moderation. No broker event: reports never
// notify the creator.
func (s *MemoryService) Report(ctx context.Context, memoryID string, actor *domain.User, reason string) error {
	if _, err := s.visibleTo(ctx, memoryID, actor.ID); err != nil {
		return err
	}
	if err := s.saveInteraction(ctx, memoryID, actor.ID, domain.InteractionReport, reason); err != nil {
		return err
	}
	if err := s.memories.MarkReported(ctx, memoryID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	slog.Info("memory reported", "memory_id", memoryID, "by", actor.ID)
	return nil
}

func (s *MemoryService) visibleTo(ctx context.Context, memoryID, viewerID string) (*domain.Memory, error) {
	m, err := s.memories.GetByID(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if !m.CanView(viewerID, s.now()) {
		return nil, fmt.Errorf("%w: memory %s", domain.ErrNotFound, memoryID)
	}
	return m, nil
}

func (s *MemoryService) saveInteraction(ctx context.Context, memoryID, userID string, t domain.InteractionType, content string) error {
	in := &domain.Interaction{
		ID:        uuid.NewString(),
		MemoryID:  memoryID,
		UserID:    userID,
		Type:      t,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.interactions.Create(ctx, in); err != nil {
		// The store rejects duplicate likes itself; keep that distinct
		// from infrastructure failures.
		if errors.Is(err, domain.ErrInvalidParameter) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	return nil
}
