package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

type mockUserRepo struct {
	getByIDFunc       func(ctx context.Context, id string) (*domain.User, error)
	touchLastSeenFunc func(ctx context.Context, id string) error
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepo) TouchLastSeen(ctx context.Context, id string) error {
	if m.touchLastSeenFunc != nil {
		return m.touchLastSeenFunc(ctx, id)
	}
	return nil
}

type mockVerifier struct {
	verifyFunc func(token string) (string, error)
}

func (m *mockVerifier) Verify(token string) (string, error) { return m.verifyFunc(token) }

// captureSink records every event delivered to one connection.
type captureSink struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Event   string
	Payload any
}

func (c *captureSink) sink(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, capturedEvent{Event: event, Payload: payload})
	return nil
}

func (c *captureSink) last(t *testing.T) capturedEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		t.Fatal("no events delivered")
	}
	return c.events[len(c.events)-1]
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func activeUserRepo() *mockUserRepo {
	return &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "user-" + id, IsActive: true}, nil
		},
	}
}

func okVerifier() *mockVerifier {
	return &mockVerifier{verifyFunc: func(token string) (string, error) {
		return "u1", nil
	}}
}

func newTestProtocol(users *mockUserRepo, verifier *mockVerifier) (*Protocol, *Registry) {
	reg := NewRegistry()
	return NewProtocol(reg, users, verifier), reg
}

func TestProtocol_Connect(t *testing.T) {
	p, reg := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}

	sess, err := p.Connect(context.Background(), "c1", "token", sink.sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.UserID != "u1" || sess.Username != "user-u1" {
		t.Errorf("unexpected session: %+v", sess)
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 registered session, got %d", reg.Len())
	}

	ev := sink.last(t)
	if ev.Event != EventConnected {
		t.Errorf("expected %s event, got %s", EventConnected, ev.Event)
	}
	payload := ev.Payload.(map[string]any)
	if payload["user_id"] != "u1" || payload["username"] != "user-u1" {
		t.Errorf("unexpected connected payload: %+v", payload)
	}
}

func TestProtocol_Connect_MissingToken(t *testing.T) {
	p, reg := newTestProtocol(activeUserRepo(), okVerifier())

	_, err := p.Connect(context.Background(), "c1", "", (&captureSink{}).sink)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if reg.Len() != 0 {
		t.Error("failed connect must leave no registry state")
	}
}

func TestProtocol_Connect_InvalidToken(t *testing.T) {
	verifier := &mockVerifier{verifyFunc: func(string) (string, error) {
		return "", fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}}
	p, reg := newTestProtocol(activeUserRepo(), verifier)

	_, err := p.Connect(context.Background(), "c1", "bad", (&captureSink{}).sink)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if reg.Len() != 0 {
		t.Error("failed connect must leave no registry state")
	}
}

func TestProtocol_Connect_UnknownUser(t *testing.T) {
	users := &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id string) (*domain.User, error) {
			return nil, domain.ErrNotFound
		},
	}
	p, _ := newTestProtocol(users, okVerifier())

	_, err := p.Connect(context.Background(), "c1", "token", (&captureSink{}).sink)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestProtocol_Connect_InactiveAccount(t *testing.T) {
	users := &mockUserRepo{
		getByIDFunc: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "ghost", IsActive: false}, nil
		},
	}
	p, reg := newTestProtocol(users, okVerifier())

	_, err := p.Connect(context.Background(), "c1", "token", (&captureSink{}).sink)
	if !errors.Is(err, domain.ErrAccountInactive) {
		t.Errorf("expected ErrAccountInactive, got %v", err)
	}
	if reg.Len() != 0 {
		t.Error("failed connect must leave no registry state")
	}
}

func TestProtocol_JoinLocation(t *testing.T) {
	p, reg := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)

	p.HandleMessage(context.Background(), "c1",
		[]byte(`{"event":"join_location","data":{"latitude":40.7128,"longitude":-74.0060}}`))

	ev := sink.last(t)
	if ev.Event != EventLocationJoined {
		t.Fatalf("expected %s, got %s", EventLocationJoined, ev.Event)
	}
	payload := ev.Payload.(map[string]any)
	if payload["room"] != "location_40.713_-74.006" {
		t.Errorf("unexpected room: %v", payload["room"])
	}
	if payload["latitude"] != 40.713 || payload["longitude"] != -74.006 {
		t.Errorf("coordinates not snapped to grid: %+v", payload)
	}

	sess, _ := reg.Lookup("c1")
	if sess.Room != "location_40.713_-74.006" {
		t.Errorf("registry room not updated: %s", sess.Room)
	}
}

func TestProtocol_JoinLocation_MissingCoordinates(t *testing.T) {
	p, reg := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)

	p.HandleMessage(context.Background(), "c1",
		[]byte(`{"event":"join_location","data":{"latitude":40.7}}`))

	ev := sink.last(t)
	if ev.Event != EventError {
		t.Fatalf("expected error event, got %s", ev.Event)
	}
	if ev.Payload.(map[string]string)["message"] != "Latitude and longitude are required" {
		t.Errorf("unexpected message: %+v", ev.Payload)
	}

	sess, ok := reg.Lookup("c1")
	if !ok || sess.Room != "" {
		t.Error("malformed join must not change state or drop the connection")
	}
}

func TestProtocol_JoinLocation_OutOfRange(t *testing.T) {
	p, _ := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)

	p.HandleMessage(context.Background(), "c1",
		[]byte(`{"event":"join_location","data":{"latitude":91.0,"longitude":0.0}}`))

	if ev := sink.last(t); ev.Event != EventError {
		t.Errorf("expected error event, got %s", ev.Event)
	}
}

func TestProtocol_LeaveLocation(t *testing.T) {
	p, reg := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)
	p.HandleMessage(context.Background(), "c1",
		[]byte(`{"event":"join_location","data":{"latitude":40.712,"longitude":-74.006}}`))

	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"leave_location"}`))

	if ev := sink.last(t); ev.Event != EventLocationLeft {
		t.Errorf("expected %s, got %s", EventLocationLeft, ev.Event)
	}
	sess, _ := reg.Lookup("c1")
	if sess.Room != "" || sess.Location != nil {
		t.Error("leave_location did not clear room state")
	}
}

func TestProtocol_LeaveLocation_Unlocated(t *testing.T) {
	p, _ := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)
	before := sink.count()

	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"leave_location"}`))

	if sink.count() != before {
		t.Error("leave while unlocated must be a silent no-op")
	}
}

func TestProtocol_GetNearbyUsers(t *testing.T) {
	p, _ := newTestProtocol(activeUserRepo(), &mockVerifier{
		verifyFunc: func(token string) (string, error) { return token, nil },
	})
	sinkA := &captureSink{}
	sinkB := &captureSink{}
	p.Connect(context.Background(), "cA", "uA", sinkA.sink)
	p.Connect(context.Background(), "cB", "uB", sinkB.sink)

	// Coordinates differing past the third decimal land in the same cell.
	p.HandleMessage(context.Background(), "cA",
		[]byte(`{"event":"join_location","data":{"latitude":40.7120,"longitude":-74.0060}}`))
	p.HandleMessage(context.Background(), "cB",
		[]byte(`{"event":"join_location","data":{"latitude":40.71204,"longitude":-74.00596}}`))

	p.HandleMessage(context.Background(), "cA", []byte(`{"event":"get_nearby_users"}`))

	ev := sinkA.last(t)
	if ev.Event != EventNearbyUsers {
		t.Fatalf("expected %s, got %s", EventNearbyUsers, ev.Event)
	}
	users := ev.Payload.(map[string]any)["users"].([]nearbyUser)
	if len(users) != 1 || users[0].UserID != "uB" {
		t.Errorf("expected exactly uB nearby, got %+v", users)
	}
	if users[0].Location == nil {
		t.Error("nearby user entry missing its location")
	}
}

func TestProtocol_GetNearbyUsers_Unlocated(t *testing.T) {
	p, _ := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)

	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"get_nearby_users"}`))

	ev := sink.last(t)
	if ev.Event != EventNearbyUsers {
		t.Fatalf("expected %s, got %s", EventNearbyUsers, ev.Event)
	}
	users := ev.Payload.(map[string]any)["users"].([]nearbyUser)
	if len(users) != 0 {
		t.Errorf("unlocated session must see an empty list, got %+v", users)
	}
}

func TestProtocol_Ping(t *testing.T) {
	p, _ := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)

	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"ping"}`))

	ev := sink.last(t)
	if ev.Event != EventPong {
		t.Fatalf("expected %s, got %s", EventPong, ev.Event)
	}
	if ev.Payload.(map[string]string)["timestamp"] == "" {
		t.Error("pong missing timestamp")
	}
}

func TestProtocol_UserStatus(t *testing.T) {
	p, _ := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)

	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"user_status"}`))
	ev := sink.last(t)
	if ev.Event != EventStatus {
		t.Fatalf("expected %s, got %s", EventStatus, ev.Event)
	}
	payload := ev.Payload.(map[string]any)
	if payload["connected"] != true {
		t.Errorf("expected connected=true: %+v", payload)
	}
	if _, ok := payload["location_room"]; ok {
		t.Error("unlocated status must omit location_room")
	}

	// Status issued after joining reflects the current room, not the state
	// captured at dispatch time.
	p.HandleMessage(context.Background(), "c1",
		[]byte(`{"event":"join_location","data":{"latitude":40.712,"longitude":-74.006}}`))
	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"user_status"}`))

	payload = sink.last(t).Payload.(map[string]any)
	if payload["location_room"] != "location_40.712_-74.006" {
		t.Errorf("status room stale: %+v", payload)
	}
	if payload["current_location"] == nil {
		t.Error("located status must carry current_location")
	}
}

func TestProtocol_UnknownEventSurvives(t *testing.T) {
	p, reg := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)

	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"teleport"}`))
	if ev := sink.last(t); ev.Event != EventError {
		t.Errorf("expected error event, got %s", ev.Event)
	}

	p.HandleMessage(context.Background(), "c1", []byte(`{not json`))
	if ev := sink.last(t); ev.Event != EventError {
		t.Errorf("expected error event, got %s", ev.Event)
	}

	if _, ok := reg.Lookup("c1"); !ok {
		t.Error("error events must not disconnect the session")
	}

	// Session still fully functional.
	p.HandleMessage(context.Background(), "c1", []byte(`{"event":"ping"}`))
	if ev := sink.last(t); ev.Event != EventPong {
		t.Errorf("session unusable after error events: got %s", ev.Event)
	}
}

func TestProtocol_HandleMessage_UnknownConnection(t *testing.T) {
	p, _ := newTestProtocol(activeUserRepo(), okVerifier())
	// Must not panic and must not answer.
	p.HandleMessage(context.Background(), "ghost", []byte(`{"event":"ping"}`))
}

func TestProtocol_Disconnect(t *testing.T) {
	p, reg := newTestProtocol(activeUserRepo(), okVerifier())
	sink := &captureSink{}
	p.Connect(context.Background(), "c1", "token", sink.sink)
	p.HandleMessage(context.Background(), "c1",
		[]byte(`{"event":"join_location","data":{"latitude":40.712,"longitude":-74.006}}`))

	p.Disconnect("c1")
	if reg.Len() != 0 {
		t.Error("disconnect must remove the session")
	}
	if len(reg.MembersOf("location_40.712_-74.006", "")) != 0 {
		t.Error("disconnect must remove room membership")
	}

	// Idempotent.
	p.Disconnect("c1")
}
