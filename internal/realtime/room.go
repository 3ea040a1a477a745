package realtime

import (
	"math"
	"strconv"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

// RoomID is a grid-cell grouping key for realtime sessions. It is computed
// on demand and never persisted.
type RoomID string

// roomPrecision is the number of decimal places kept when snapping a
// coordinate to its grid cell. Three decimals is roughly a 111 m cell at the
// equator, narrower in longitude at higher latitudes, an accepted
// approximation.
const roomPrecision = 3

// Snap rounds a coordinate to the grid precision.
func Snap(p domain.GeoPoint) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: roundTo(p.Lat, roomPrecision),
		Lon: roundTo(p.Lon, roomPrecision),
	}
}

// RoomFor maps a coordinate to its grid room. Two coordinates share a room
// iff their snapped values match exactly.
func RoomFor(p domain.GeoPoint) RoomID {
	g := Snap(p)
	return RoomID("location_" + formatGrid(g.Lat) + "_" + formatGrid(g.Lon))
}

// UserRoom is the per-user room used for targeted notifications. A user's
// sessions are all members of it for as long as they are connected.
func UserRoom(userID string) RoomID {
	return RoomID("user_" + userID)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// formatGrid renders a snapped component without trailing zeros so equal
// grid values always produce identical keys.
func formatGrid(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
