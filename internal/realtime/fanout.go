package realtime

import (
	"log/slog"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/metrics"
)

// Fanout delivers targeted and broadcast events to current registry members.
// Delivery is fire-and-forget: there is no queueing for offline users, and a
// failed write to one session never aborts delivery to the rest.
type Fanout struct {
	registry *Registry
}

// NewFanout creates a fanout bound to a registry.
func NewFanout(registry *Registry) *Fanout {
	return &Fanout{registry: registry}
}

// NotifyUser delivers an event to every live session of one user. Returns
// the number of sessions reached.
func (f *Fanout) NotifyUser(userID, event string, payload any) int {
	return f.deliver(f.registry.SessionsOfUser(userID), event, payload)
}

// NotifyRoom delivers an event to all current members of a grid room,
// optionally excluding one user's sessions.
func (f *Fanout) NotifyRoom(room RoomID, event string, payload any, excludeUserID string) int {
	return f.deliver(f.registry.MembersOf(room, excludeUserID), event, payload)
}

func (f *Fanout) deliver(sessions []Session, event string, payload any) int {
	delivered := 0
	for i := range sessions {
		if err := sessions[i].Send(event, payload); err != nil {
			metrics.FanoutFailures.WithLabelValues(event).Inc()
			slog.Warn("fanout delivery failed",
				"event", event,
				"conn_id", sessions[i].ConnID,
				"error", err)
			continue
		}
		delivered++
	}
	metrics.FanoutDelivered.WithLabelValues(event).Add(float64(delivered))
	return delivered
}
