package realtime

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/metrics"
)

// Registry invariant violations. These indicate transport misuse or internal
// bugs; they are logged and surfaced as generic error events, never fatal.
var (
	ErrDuplicateConnection = errors.New("duplicate connection")
	ErrUnknownConnection   = errors.New("unknown connection")
)

// Sink delivers one outbound event to a single connection. Implementations
// must be safe for concurrent use: fanout from HTTP-triggered events races
// with protocol replies on the same connection.
type Sink func(event string, payload any) error

// Session is the server-side state of one live realtime connection. Owned
// exclusively by the Registry; callers receive copies.
type Session struct {
	ConnID      string
	UserID      string
	Username    string
	ConnectedAt time.Time
	Room        RoomID           // empty while unlocated
	Location    *domain.GeoPoint // last raw coordinate, nil while unlocated
	sink        Sink
}

// Send delivers an event to the session's connection.
func (s *Session) Send(event string, payload any) error {
	if s.sink == nil {
		return fmt.Errorf("session %s has no sink", s.ConnID)
	}
	return s.sink(event, payload)
}

// Registry is the concurrency-safe table of active realtime sessions. It is
// constructed once at service startup and injected into every component that
// needs it; there is deliberately no package-level instance. A single mutex
// guards all state so no operation can observe a half-updated session.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]*Session
	rooms  map[RoomID]map[string]*Session // grid room -> conn id -> session
	byUser map[string]map[string]*Session // user id -> conn id -> session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Session),
		rooms:  make(map[RoomID]map[string]*Session),
		byUser: make(map[string]map[string]*Session),
	}
}

// Register adds a session for a new connection. Fails with
// ErrDuplicateConnection if the connection id is already present.
func (r *Registry) Register(connID, userID, username string, sink Sink) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		return Session{}, fmt.Errorf("%w: %s", ErrDuplicateConnection, connID)
	}

	s := &Session{
		ConnID:      connID,
		UserID:      userID,
		Username:    username,
		ConnectedAt: time.Now().UTC(),
		sink:        sink,
	}
	r.conns[connID] = s

	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]*Session)
	}
	r.byUser[userID][connID] = s

	metrics.ActiveConnections.Set(float64(len(r.conns)))
	return *s, nil
}

// Unregister removes a session and its room memberships. A no-op if the
// connection is absent: disconnect can race with other cleanup.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	r.leaveRoomLocked(s)

	if userConns := r.byUser[s.UserID]; userConns != nil {
		delete(userConns, connID)
		if len(userConns) == 0 {
			delete(r.byUser, s.UserID)
		}
	}

	metrics.ActiveConnections.Set(float64(len(r.conns)))
}

// SetLocation computes the grid room for coord, moves the session into it,
// and records the raw coordinate. Returns the new room id.
func (r *Registry) SetLocation(connID string, coord domain.GeoPoint) (RoomID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.conns[connID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}

	room := RoomFor(coord)
	if s.Room != room {
		r.leaveRoomLocked(s)
		if r.rooms[room] == nil {
			r.rooms[room] = make(map[string]*Session)
		}
		r.rooms[room][connID] = s
		s.Room = room
	}
	loc := coord
	s.Location = &loc

	metrics.OccupiedRooms.Set(float64(len(r.rooms)))
	return room, nil
}

// ClearLocation removes the session's room membership and coordinate. A
// no-op if the session is absent or already unlocated.
func (r *Registry) ClearLocation(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.conns[connID]
	if !ok {
		return
	}
	r.leaveRoomLocked(s)
	metrics.OccupiedRooms.Set(float64(len(r.rooms)))
}

// MembersOf returns snapshots of all sessions currently in the room,
// optionally excluding every session of one user.
func (r *Registry) MembersOf(room RoomID, excludeUserID string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	out := make([]Session, 0, len(members))
	for _, s := range members {
		if excludeUserID != "" && s.UserID == excludeUserID {
			continue
		}
		out = append(out, *s)
	}
	return out
}

// SessionsOfUser returns snapshots of every live session belonging to a
// user. A user may hold several simultaneous connections.
func (r *Registry) SessionsOfUser(userID string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.byUser[userID]
	out := make([]Session, 0, len(conns))
	for _, s := range conns {
		out = append(out, *s)
	}
	return out
}

// Lookup returns a snapshot of the session for a connection id.
func (r *Registry) Lookup(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.conns[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// leaveRoomLocked drops the session from its current room, deleting the room
// once empty. Caller holds r.mu.
func (r *Registry) leaveRoomLocked(s *Session) {
	if s.Room == "" {
		return
	}
	if members := r.rooms[s.Room]; members != nil {
		delete(members, s.ConnID)
		if len(members) == 0 {
			delete(r.rooms, s.Room)
		}
	}
	s.Room = ""
	s.Location = nil
}
