package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

func noopSink(event string, payload any) error { return nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	sess, err := r.Register("c1", "u1", "alice", noopSink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Room != "" || sess.Location != nil {
		t.Error("fresh session must have no room or location")
	}

	got, ok := r.Lookup("c1")
	if !ok {
		t.Fatal("lookup failed after register")
	}
	if got.UserID != "u1" || got.Username != "alice" {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestRegistry_DuplicateConnection(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("c1", "u1", "alice", noopSink); err != nil {
		t.Fatal(err)
	}
	_, err := r.Register("c1", "u2", "bob", noopSink)
	if !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("expected ErrDuplicateConnection, got %v", err)
	}
}

func TestRegistry_SetLocationReflectedInLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "u1", "alice", noopSink)

	room, err := r.SetLocation("c1", domain.GeoPoint{Lat: 40.7128, Lon: -74.0060})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := r.Lookup("c1")
	if got.Room != room {
		t.Errorf("lookup room %s does not match returned %s", got.Room, room)
	}
	if got.Location == nil || got.Location.Lat != 40.7128 {
		t.Errorf("location not recorded: %+v", got.Location)
	}

	r.ClearLocation("c1")
	got, _ = r.Lookup("c1")
	if got.Room != "" || got.Location != nil {
		t.Error("room/location must be absent after ClearLocation")
	}
}

func TestRegistry_SetLocation_UnknownConnection(t *testing.T) {
	r := NewRegistry()
	_, err := r.SetLocation("ghost", domain.GeoPoint{Lat: 1, Lon: 1})
	if !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("expected ErrUnknownConnection, got %v", err)
	}
}

func TestRegistry_ImplicitRoomSwitch(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "u1", "alice", noopSink)

	first, _ := r.SetLocation("c1", domain.GeoPoint{Lat: 40.7128, Lon: -74.0060})
	second, _ := r.SetLocation("c1", domain.GeoPoint{Lat: 40.7135, Lon: -74.0055})
	if first == second {
		t.Fatalf("test coordinates must map to different rooms, both got %s", first)
	}

	if len(r.MembersOf(first, "")) != 0 {
		t.Error("session still listed in the room it implicitly left")
	}
	members := r.MembersOf(second, "")
	if len(members) != 1 || members[0].ConnID != "c1" {
		t.Errorf("expected c1 in %s, got %+v", second, members)
	}
}

func TestRegistry_MembersOf_ExcludeUser(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "u1", "alice", noopSink)
	r.Register("c2", "u2", "bob", noopSink)

	coord := domain.GeoPoint{Lat: 40.712, Lon: -74.006}
	room, _ := r.SetLocation("c1", coord)
	r.SetLocation("c2", coord)

	if got := len(r.MembersOf(room, "")); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}
	members := r.MembersOf(room, "u1")
	if len(members) != 1 || members[0].UserID != "u2" {
		t.Errorf("exclusion failed: %+v", members)
	}
}

func TestRegistry_UnregisterRemovesFromRooms(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "u1", "alice", noopSink)
	room, _ := r.SetLocation("c1", domain.GeoPoint{Lat: 40.712, Lon: -74.006})

	r.Unregister("c1")

	if _, ok := r.Lookup("c1"); ok {
		t.Error("session still present after unregister")
	}
	if len(r.MembersOf(room, "")) != 0 {
		t.Error("unregistered session still a room member")
	}
	if len(r.SessionsOfUser("u1")) != 0 {
		t.Error("unregistered session still indexed by user")
	}

	// Idempotent.
	r.Unregister("c1")
}

func TestRegistry_MultipleSessionsPerUser(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "u1", "alice", noopSink)
	r.Register("c2", "u1", "alice", noopSink)

	if got := len(r.SessionsOfUser("u1")); got != 2 {
		t.Errorf("expected 2 sessions, got %d", got)
	}

	r.Unregister("c1")
	if got := len(r.SessionsOfUser("u1")); got != 1 {
		t.Errorf("expected 1 session after one disconnect, got %d", got)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	coord := domain.GeoPoint{Lat: 40.712, Lon: -74.006}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			connID := "conn-" + id + string(rune('0'+n/26))
			if _, err := r.Register(connID, "user-"+id, id, noopSink); err != nil {
				return
			}
			r.SetLocation(connID, coord)
			r.MembersOf(RoomFor(coord), "")
			r.ClearLocation(connID)
			r.Unregister(connID)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("expected empty registry, %d sessions remain", r.Len())
	}
}
