package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// CoordinatePrecision is the number of decimal places kept on committed rings.
const CoordinatePrecision = 6

// ErrInvalidCoordinate is returned when a coordinate is not finite or out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a WGS84 position in degrees.
// It is persisted longitude-first ([lng, lat]) but the editor's wire format is
// latitude-first, so both accessors exist.
type Coordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// LatLng builds a Coordinate from latitude-first arguments, the order map widgets use.
func LatLng(lat, lng float64) Coordinate {
	return Coordinate{Lng: lng, Lat: lat}
}

// FromPoint converts an orb point ([lng, lat]) into a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lng: p.Lon(), Lat: p.Lat()}
}

// Point returns the coordinate as an orb point.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// LngLat returns the persisted longitude-first pair.
func (c Coordinate) LngLat() []float64 {
	return []float64{c.Lng, c.Lat}
}

// Validate checks that both components are finite and inside WGS84 bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return fmt.Errorf("%w: components must be finite", ErrInvalidCoordinate)
	}
	if c.Lat < MinLatitude || c.Lat > MaxLatitude {
		return fmt.Errorf("%w: latitude must be between %f and %f, got %f",
			ErrInvalidCoordinate, MinLatitude, MaxLatitude, c.Lat)
	}
	if c.Lng < MinLongitude || c.Lng > MaxLongitude {
		return fmt.Errorf("%w: longitude must be between %f and %f, got %f",
			ErrInvalidCoordinate, MinLongitude, MaxLongitude, c.Lng)
	}
	return nil
}

// Round returns the coordinate rounded to the given number of decimal places.
func (c Coordinate) Round(decimals int) Coordinate {
	return Coordinate{Lng: roundTo(c.Lng, decimals), Lat: roundTo(c.Lat, decimals)}
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
