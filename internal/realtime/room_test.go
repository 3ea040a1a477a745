package realtime

import (
	"testing"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

func TestRoomFor_Deterministic(t *testing.T) {
	p := domain.GeoPoint{Lat: 40.7128, Lon: -74.0060}
	if RoomFor(p) != RoomFor(p) {
		t.Error("identical input produced different rooms")
	}
}

func TestRoomFor_SameCellBeyondThirdDecimal(t *testing.T) {
	a := domain.GeoPoint{Lat: 40.712, Lon: -74.006}
	b := domain.GeoPoint{Lat: 40.7121, Lon: -74.0059}
	if RoomFor(a) != RoomFor(b) {
		t.Errorf("expected same room, got %s vs %s", RoomFor(a), RoomFor(b))
	}
}

func TestRoomFor_DifferentCells(t *testing.T) {
	a := domain.GeoPoint{Lat: 40.712, Lon: -74.006}
	b := domain.GeoPoint{Lat: 40.714, Lon: -74.006}
	if RoomFor(a) == RoomFor(b) {
		t.Errorf("distinct cells mapped to the same room %s", RoomFor(a))
	}
}

func TestRoomFor_KeyFormat(t *testing.T) {
	got := RoomFor(domain.GeoPoint{Lat: 40.7128, Lon: -74.0060})
	want := RoomID("location_40.713_-74.006")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestSnap_RoundsToThreeDecimals(t *testing.T) {
	g := Snap(domain.GeoPoint{Lat: 37.77491, Lon: -122.41942})
	if g.Lat != 37.775 {
		t.Errorf("expected lat 37.775, got %v", g.Lat)
	}
	if g.Lon != -122.419 {
		t.Errorf("expected lon -122.419, got %v", g.Lon)
	}
}

func TestUserRoom(t *testing.T) {
	if UserRoom("u1") != RoomID("user_u1") {
		t.Errorf("unexpected user room %s", UserRoom("u1"))
	}
}
