package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	metersPerKilometer = 1000.0
	squareMetersPerHa  = 10000.0
)

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// Midpoint returns the half-way point along the great circle between a and b.
func Midpoint(a, b Coordinate) Coordinate {
	return FromPoint(geo.Midpoint(a.Point(), b.Point()))
}

// PerimeterKm sums the great-circle lengths of the ring's edges, closing it first.
// Rings with fewer than three distinct vertices have no perimeter.
func PerimeterKm(r Ring) float64 {
	if r.DistinctCount() < MinDistinctVertices {
		return 0
	}
	closed := r.Close()

	var meters float64
	for i := 1; i < len(closed); i++ {
		meters += DistanceMeters(closed[i-1], closed[i])
	}
	return meters / metersPerKilometer
}

// AreaHectares returns the geodesic area enclosed by the ring.
// Rings with fewer than three distinct vertices enclose nothing.
func AreaHectares(r Ring) float64 {
	if r.DistinctCount() < MinDistinctVertices {
		return 0
	}
	poly := orb.Polygon{r.Close().Orb()}
	return geo.Area(poly) / squareMetersPerHa
}

// Mean returns the arithmetic mean of the given coordinates.
// The second return value is false when there is nothing to average.
func Mean(coords []Coordinate) (Coordinate, bool) {
	if len(coords) == 0 {
		return Coordinate{}, false
	}
	var sum Coordinate
	for _, c := range coords {
		sum.Lng += c.Lng
		sum.Lat += c.Lat
	}
	n := float64(len(coords))
	return Coordinate{Lng: sum.Lng / n, Lat: sum.Lat / n}, true
}
