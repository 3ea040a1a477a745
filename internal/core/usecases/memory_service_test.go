package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

type mockInteractionRepo struct {
	createFunc        func(ctx context.Context, in *domain.Interaction) error
	hasInteractedFunc func(ctx context.Context, userID, memoryID string, t domain.InteractionType) (bool, error)

	created []domain.Interaction
}

func (m *mockInteractionRepo) Create(ctx context.Context, in *domain.Interaction) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	m.created = append(m.created, *in)
	return nil
}

func (m *mockInteractionRepo) HasInteracted(ctx context.Context, userID, memoryID string, t domain.InteractionType) (bool, error) {
	if m.hasInteractedFunc != nil {
		return m.hasInteractedFunc(ctx, userID, memoryID, t)
	}
	return false, nil
}

type mockUsers struct {
	users map[string]*domain.User
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *mockUsers) TouchLastSeen(ctx context.Context, id string) error { return nil }

type mockPublisher struct {
	created   []*domain.Memory
	liked     []*domain.Memory
	commented []string
	fail      error
}

func (m *mockPublisher) PublishMemoryCreated(ctx context.Context, mem *domain.Memory) error {
	if m.fail != nil {
		return m.fail
	}
	m.created = append(m.created, mem)
	return nil
}

func (m *mockPublisher) PublishMemoryLiked(ctx context.Context, mem *domain.Memory, actor *domain.User) error {
	if m.fail != nil {
		return m.fail
	}
	m.liked = append(m.liked, mem)
	return nil
}

func (m *mockPublisher) PublishMemoryCommented(ctx context.Context, mem *domain.Memory, actor *domain.User, comment string) error {
	if m.fail != nil {
		return m.fail
	}
	m.commented = append(m.commented, comment)
	return nil
}

func activeUsers() *mockUsers {
	return &mockUsers{users: map[string]*domain.User{
		"creator": {ID: "creator", Username: "alice", IsActive: true},
		"actor":   {ID: "actor", Username: "bob", IsActive: true},
		"ghost":   {ID: "ghost", Username: "ghost", IsActive: false},
	}}
}

func newTestMemoryService(store *memStore, pub *mockPublisher) (*MemoryService, *mockInteractionRepo) {
	interactions := &mockInteractionRepo{}
	svc := NewMemoryService(store, interactions, activeUsers(), pub)
	return svc, interactions
}

func TestMemoryCreate(t *testing.T) {
	store := &memStore{}
	pub := &mockPublisher{}
	svc, _ := newTestMemoryService(store, pub)

	m := &domain.Memory{
		CreatorID:   "creator",
		Title:       "First snow",
		ContentType: domain.ContentPhoto,
		Location:    domain.GeoPoint{Lat: 40.7128, Lon: -74.0060},
	}
	if err := svc.Create(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.ID == "" {
		t.Error("id not assigned")
	}
	if m.CreatorUsername != "alice" {
		t.Errorf("creator username not resolved: %q", m.CreatorUsername)
	}
	if !m.IsActive || m.CreatedAt.IsZero() {
		t.Error("activation/timestamps not set")
	}
	if m.Privacy != domain.PrivacyPublic {
		t.Errorf("privacy must default to public, got %s", m.Privacy)
	}
	if len(store.memories) != 1 {
		t.Error("memory not persisted")
	}
	if len(pub.created) != 1 {
		t.Error("creation event not published")
	}
}

func TestMemoryCreate_Validation(t *testing.T) {
	svc, _ := newTestMemoryService(&memStore{}, &mockPublisher{})
	loc := domain.GeoPoint{Lat: 40.7128, Lon: -74.0060}

	cases := []struct {
		name string
		m    domain.Memory
	}{
		{"empty title", domain.Memory{CreatorID: "creator", Title: "  ", ContentType: domain.ContentText, Location: loc}},
		{"bad latitude", domain.Memory{CreatorID: "creator", Title: "x", ContentType: domain.ContentText, Location: domain.GeoPoint{Lat: 95, Lon: 0}}},
		{"bad content type", domain.Memory{CreatorID: "creator", Title: "x", ContentType: "hologram", Location: loc}},
		{"bad privacy", domain.Memory{CreatorID: "creator", Title: "x", ContentType: domain.ContentText, Privacy: "secret", Location: loc}},
		{"unknown creator", domain.Memory{CreatorID: "nobody", Title: "x", ContentType: domain.ContentText, Location: loc}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.m
			if err := svc.Create(context.Background(), &m); !errors.Is(err, domain.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestMemoryCreate_InactiveCreator(t *testing.T) {
	svc, _ := newTestMemoryService(&memStore{}, &mockPublisher{})
	m := &domain.Memory{
		CreatorID:   "ghost",
		Title:       "x",
		ContentType: domain.ContentText,
		Location:    domain.GeoPoint{Lat: 1, Lon: 1},
	}
	if err := svc.Create(context.Background(), m); !errors.Is(err, domain.ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive, got %v", err)
	}
}

func TestMemoryCreate_PublishFailureTolerated(t *testing.T) {
	store := &memStore{}
	svc, _ := newTestMemoryService(store, &mockPublisher{fail: errors.New("broker down")})

	m := &domain.Memory{
		CreatorID:   "creator",
		Title:       "x",
		ContentType: domain.ContentText,
		Location:    domain.GeoPoint{Lat: 1, Lon: 1},
	}
	if err := svc.Create(context.Background(), m); err != nil {
		t.Fatalf("persisted memory must not fail on publish error: %v", err)
	}
	if len(store.memories) != 1 {
		t.Error("memory not persisted")
	}
}

func TestMemoryGet_VisibilityRule(t *testing.T) {
	now := time.Now().UTC()
	private := publicMemory("p1", domain.GeoPoint{Lat: 1, Lon: 1}, now)
	private.CreatorID = "creator"
	private.Privacy = domain.PrivacyPrivate
	store := &memStore{memories: []domain.Memory{private}}
	svc, _ := newTestMemoryService(store, &mockPublisher{})

	if _, err := svc.Get(context.Background(), "p1", "creator"); err != nil {
		t.Errorf("owner must see their private memory: %v", err)
	}

	// Hidden and missing look identical.
	if _, err := svc.Get(context.Background(), "p1", "actor"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for hidden memory, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "missing", "actor"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing memory, got %v", err)
	}
}

func TestMemoryLike(t *testing.T) {
	now := time.Now().UTC()
	store := &memStore{memories: []domain.Memory{
		publicMemory("m1", domain.GeoPoint{Lat: 1, Lon: 1}, now),
	}}
	pub := &mockPublisher{}
	svc, interactions := newTestMemoryService(store, pub)
	actor := &domain.User{ID: "actor", Username: "bob", IsActive: true}

	if err := svc.Like(context.Background(), "m1", actor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(interactions.created) != 1 || interactions.created[0].Type != domain.InteractionLike {
		t.Errorf("like interaction not recorded: %+v", interactions.created)
	}
	if len(pub.liked) != 1 {
		t.Error("like event not published")
	}
}

func TestMemoryLike_Duplicate(t *testing.T) {
	now := time.Now().UTC()
	store := &memStore{memories: []domain.Memory{
		publicMemory("m1", domain.GeoPoint{Lat: 1, Lon: 1}, now),
	}}
	interactions := &mockInteractionRepo{
		hasInteractedFunc: func(ctx context.Context, userID, memoryID string, it domain.InteractionType) (bool, error) {
			return true, nil
		},
	}
	svc := NewMemoryService(store, interactions, activeUsers(), &mockPublisher{})
	actor := &domain.User{ID: "actor", Username: "bob", IsActive: true}

	if err := svc.Like(context.Background(), "m1", actor); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for duplicate like, got %v", err)
	}
}

func TestMemoryLike_DuplicateRace(t *testing.T) {
	now := time.Now().UTC()
	store := &memStore{memories: []domain.Memory{
		publicMemory("m1", domain.GeoPoint{Lat: 1, Lon: 1}, now),
	}}
	// The existence check passes (the racing like is not visible yet) but
	// the store's unique constraint rejects the insert.
	interactions := &mockInteractionRepo{
		createFunc: func(ctx context.Context, in *domain.Interaction) error {
			return fmt.Errorf("%w: memory already liked", domain.ErrInvalidParameter)
		},
	}
	pub := &mockPublisher{}
	svc := NewMemoryService(store, interactions, activeUsers(), pub)
	actor := &domain.User{ID: "actor", Username: "bob", IsActive: true}

	err := svc.Like(context.Background(), "m1", actor)
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter from the constraint, got %v", err)
	}
	if errors.Is(err, domain.ErrQueryFailed) {
		t.Error("constraint rejection must not surface as a query failure")
	}
	if len(pub.liked) != 0 {
		t.Error("no like event may be published for a rejected duplicate")
	}
}

func TestMemoryComment(t *testing.T) {
	now := time.Now().UTC()
	store := &memStore{memories: []domain.Memory{
		publicMemory("m1", domain.GeoPoint{Lat: 1, Lon: 1}, now),
	}}
	pub := &mockPublisher{}
	svc, interactions := newTestMemoryService(store, pub)
	actor := &domain.User{ID: "actor", Username: "bob", IsActive: true}

	if err := svc.Comment(context.Background(), "m1", actor, "what a view"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(interactions.created) != 1 || interactions.created[0].Content != "what a view" {
		t.Errorf("comment not recorded: %+v", interactions.created)
	}
	if len(pub.commented) != 1 || pub.commented[0] != "what a view" {
		t.Errorf("comment event not published: %+v", pub.commented)
	}

	if err := svc.Comment(context.Background(), "m1", actor, "   "); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for blank comment, got %v", err)
	}
}

func TestMemoryReport(t *testing.T) {
	now := time.Now().UTC()
	store := &memStore{memories: []domain.Memory{
		publicMemory("m1", domain.GeoPoint{Lat: 1, Lon: 1}, now),
	}}
	pub := &mockPublisher{}
	svc, interactions := newTestMemoryService(store, pub)
	actor := &domain.User{ID: "actor", Username: "bob", IsActive: true}

	if err := svc.Report(context.Background(), "m1", actor, "spam"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(interactions.created) != 1 || interactions.created[0].Type != domain.InteractionReport {
		t.Errorf("report not recorded: %+v", interactions.created)
	}
	if len(pub.liked)+len(pub.commented)+len(pub.created) != 0 {
		t.Error("reports must not publish broker events")
	}
}
