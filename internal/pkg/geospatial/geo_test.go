package geospatial

import (
	"math"
	"testing"
)

func TestDistance_KnownPair(t *testing.T) {
	// Bilbao Abando to Moyua is roughly 500m.
	d := Distance(43.2609, -2.9253, 43.2627, -2.9313)
	if d < 400 || d > 600 {
		t.Errorf("expected ~500m, got %.1f", d)
	}
}

func TestDistance_ZeroForSamePoint(t *testing.T) {
	if d := Distance(40.7128, -74.0060, 40.7128, -74.0060); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistance_Symmetry(t *testing.T) {
	a := Distance(37.7749, -122.4194, 34.0522, -118.2437)
	b := Distance(34.0522, -118.2437, 37.7749, -122.4194)
	if math.Abs(a-b) > 1e-6 {
		t.Errorf("distance not symmetric: %f vs %f", a, b)
	}
}

func TestBoundingBox_ContainsCenter(t *testing.T) {
	minLat, minLon, maxLat, maxLon := BoundingBox(40.7128, -74.0060, 500)
	if !(minLat < 40.7128 && 40.7128 < maxLat) {
		t.Errorf("latitude range [%f, %f] does not contain center", minLat, maxLat)
	}
	if !(minLon < -74.0060 && -74.0060 < maxLon) {
		t.Errorf("longitude range [%f, %f] does not contain center", minLon, maxLon)
	}
}

func TestCellGrid(t *testing.T) {
	latStep, lonStep := CellGrid(41, 40, -73, -75, 10)
	if latStep != 0.1 {
		t.Errorf("expected lat step 0.1, got %f", latStep)
	}
	if lonStep != 0.2 {
		t.Errorf("expected lon step 0.2, got %f", lonStep)
	}
}
