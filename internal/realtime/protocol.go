package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/ports"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/metrics"
)

// Outbound event names.
const (
	EventConnected         = "connected"
	EventLocationJoined    = "location_joined"
	EventLocationLeft      = "location_left"
	EventNearbyUsers       = "nearby_users"
	EventPong              = "pong"
	EventStatus            = "status"
	EventError             = "error"
	EventNewMemoryNearby   = "new_memory_nearby"
	EventMemoryInteraction = "memory_interaction"
)

// eventKind is the closed set of inbound events. Dispatch goes through
// inboundEvents so unknown names are rejected up front instead of falling
// through string comparisons.
type eventKind int

const (
	evJoinLocation eventKind = iota
	evLeaveLocation
	evGetNearbyUsers
	evPing
	evUserStatus
)

var inboundEvents = map[string]eventKind{
	"join_location":    evJoinLocation,
	"leave_location":   evLeaveLocation,
	"get_nearby_users": evGetNearbyUsers,
	"ping":             evPing,
	"user_status":      evUserStatus,
}

// inboundMessage is the wire envelope sent by clients after the handshake.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinLocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type nearbyUser struct {
	UserID   string           `json:"user_id"`
	Username string           `json:"username"`
	Location *domain.GeoPoint `json:"location"`
}

// Protocol handles the realtime session lifecycle: authenticated connect,
// join/leave location, nearby-user queries, ping and status. Events for the
// same connection are handled sequentially by the transport's read loop;
// events from different connections run concurrently against the shared
// registry.
type Protocol struct {
	registry *Registry
	users    ports.UserRepository
	verifier ports.TokenVerifier
}

// NewProtocol wires the presence protocol to its collaborators.
func NewProtocol(registry *Registry, users ports.UserRepository, verifier ports.TokenVerifier) *Protocol {
	return &Protocol{registry: registry, users: users, verifier: verifier}
}

// Connect authenticates the handshake credential and registers the session.
// Any failure terminates the connection attempt with no partial registry
// state: domain.ErrUnauthorized for missing/invalid/expired tokens and
// unknown users, domain.ErrAccountInactive for deactivated accounts.
func (p *Protocol) Connect(ctx context.Context, connID, token string, sink Sink) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("%w: missing credential token", domain.ErrUnauthorized)
	}

	userID, err := p.verifier.Verify(token)
	if err != nil {
		return Session{}, err
	}

	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return Session{}, fmt.Errorf("%w: %s", domain.ErrAccountInactive, user.Username)
	}

	sess, err := p.registry.Register(connID, user.ID, user.Username, sink)
	if err != nil {
		return Session{}, err
	}

	_ = sess.Send(EventConnected, map[string]any{
		"message":  "Successfully connected to Memory Lane",
		"user_id":  sess.UserID,
		"username": sess.Username,
	})

	// Best effort; presence must not depend on the write.
	if err := p.users.TouchLastSeen(ctx, user.ID); err != nil {
		slog.Debug("touch last seen failed", "user_id", user.ID, "error", err)
	}

	slog.Info("realtime client connected", "conn_id", connID, "username", sess.Username)
	return sess, nil
}

// Disconnect removes the session. Idempotent: transport-level close and an
// explicit disconnect event may both fire.
func (p *Protocol) Disconnect(connID string) {
	if sess, ok := p.registry.Lookup(connID); ok {
		slog.Info("realtime client disconnected", "conn_id", connID, "username", sess.Username)
	}
	p.registry.Unregister(connID)
}

// HandleMessage dispatches one inbound event for a connected session.
// Malformed requests produce an error event and leave state unchanged; the
// connection always survives. Unexpected panics in handlers are converted to
// a generic error event.
func (p *Protocol) HandleMessage(ctx context.Context, connID string, raw []byte) {
	sess, ok := p.registry.Lookup(connID)
	if !ok {
		// Registration raced with disconnect; nothing to answer to.
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("realtime handler panic", "conn_id", connID, "panic", rec)
			_ = sess.Send(EventError, map[string]string{"message": "internal error"})
		}
	}()

	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		_ = sess.Send(EventError, map[string]string{"message": "invalid JSON"})
		return
	}

	kind, ok := inboundEvents[msg.Event]
	if !ok {
		_ = sess.Send(EventError, map[string]string{"message": "unknown event: " + msg.Event})
		return
	}
	metrics.RealtimeEventsIn.WithLabelValues(msg.Event).Inc()

	switch kind {
	case evJoinLocation:
		p.handleJoinLocation(sess, msg.Data)
	case evLeaveLocation:
		p.handleLeaveLocation(sess)
	case evGetNearbyUsers:
		p.handleGetNearbyUsers(sess)
	case evPing:
		_ = sess.Send(EventPong, map[string]string{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	case evUserStatus:
		p.handleUserStatus(sess)
	}
}

func (p *Protocol) handleJoinLocation(sess Session, data json.RawMessage) {
	var payload joinLocationPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			_ = sess.Send(EventError, map[string]string{"message": "invalid join_location payload"})
			return
		}
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		_ = sess.Send(EventError, map[string]string{"message": "Latitude and longitude are required"})
		return
	}

	coord := domain.GeoPoint{Lat: *payload.Latitude, Lon: *payload.Longitude}
	if err := coord.Validate(); err != nil {
		_ = sess.Send(EventError, map[string]string{"message": err.Error()})
		return
	}

	// Joining a new room implicitly leaves the previous one.
	room, err := p.registry.SetLocation(sess.ConnID, coord)
	if err != nil {
		if errors.Is(err, ErrUnknownConnection) {
			slog.Warn("join_location for unknown connection", "conn_id", sess.ConnID)
		}
		_ = sess.Send(EventError, map[string]string{"message": "Failed to join location"})
		return
	}

	grid := Snap(coord)
	_ = sess.Send(EventLocationJoined, map[string]any{
		"room":      string(room),
		"latitude":  grid.Lat,
		"longitude": grid.Lon,
	})
}

func (p *Protocol) handleLeaveLocation(sess Session) {
	if sess.Room == "" {
		// Already unlocated; not an error.
		return
	}
	p.registry.ClearLocation(sess.ConnID)
	_ = sess.Send(EventLocationLeft, map[string]string{"message": "Left location room"})
}

func (p *Protocol) handleGetNearbyUsers(sess Session) {
	users := []nearbyUser{}
	if sess.Room != "" {
		for _, member := range p.registry.MembersOf(sess.Room, sess.UserID) {
			users = append(users, nearbyUser{
				UserID:   member.UserID,
				Username: member.Username,
				Location: member.Location,
			})
		}
	}
	_ = sess.Send(EventNearbyUsers, map[string]any{"users": users})
}

func (p *Protocol) handleUserStatus(sess Session) {
	// Re-read so the status reflects location changes made earlier in this
	// connection's lifetime.
	current, ok := p.registry.Lookup(sess.ConnID)
	if !ok {
		_ = sess.Send(EventStatus, map[string]any{"connected": false})
		return
	}

	payload := map[string]any{
		"connected":    true,
		"user_id":      current.UserID,
		"username":     current.Username,
		"connected_at": current.ConnectedAt.Format(time.RFC3339),
	}
	if current.Location != nil {
		payload["current_location"] = current.Location
	}
	if current.Room != "" {
		payload["location_room"] = string(current.Room)
	}
	_ = sess.Send(EventStatus, payload)
}
