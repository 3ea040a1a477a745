package domain

import "fmt"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Validate checks that the coordinate lies on the globe.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90 degrees", ErrInvalidParameter)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180 degrees", ErrInvalidParameter)
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Validate checks ordering and range of the box edges.
func (b Bounds) Validate() error {
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("%w: latitude bounds must be between -90 and 90", ErrInvalidParameter)
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("%w: longitude bounds must be between -180 and 180", ErrInvalidParameter)
	}
	if b.North <= b.South {
		return fmt.Errorf("%w: north must be greater than south", ErrInvalidParameter)
	}
	if b.East <= b.West {
		return fmt.Errorf("%w: east must be greater than west", ErrInvalidParameter)
	}
	return nil
}
