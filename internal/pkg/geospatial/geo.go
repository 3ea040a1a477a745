package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Distance returns the great-circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// BoundingBox returns a box around a point covering the given radius in
// meters. Used to pre-filter spatial queries before exact distance checks.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	center := orb.Point{lon, lat}
	b := geo.NewBoundAroundPoint(center, radiusMeters)
	return b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon()
}

// CellGrid divides a bounding box into n×n cells and reports the cell edge
// sizes in degrees.
func CellGrid(north, south, east, west float64, n int) (latStep, lonStep float64) {
	return (north - south) / float64(n), (east - west) / float64(n)
}
