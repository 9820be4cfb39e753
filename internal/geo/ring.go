package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// MinDistinctVertices is the smallest number of distinct vertices a valid ring can have.
const MinDistinctVertices = 3

// Ring validation errors
var (
	ErrRingNotClosed    = errors.New("ring is not closed")
	ErrTooFewVertices   = errors.New("ring needs at least 3 distinct vertices")
	ErrSelfIntersecting = errors.New("ring is self-intersecting")
)

// Ring is an ordered sequence of coordinates describing one polygon exterior ring.
// A committed ring is closed: its first and last coordinates are identical.
type Ring []Coordinate

// Clone returns a copy that shares no backing array with r.
func (r Ring) Clone() Ring {
	if r == nil {
		return nil
	}
	out := make(Ring, len(r))
	copy(out, r)
	return out
}

// Closed reports whether the first and last coordinates are identical.
func (r Ring) Closed() bool {
	return len(r) >= 2 && r[0] == r[len(r)-1]
}

// Close returns a copy of r with the first coordinate appended when the ring is open.
// Closing an already closed ring appends nothing.
func (r Ring) Close() Ring {
	out := r.Clone()
	if len(out) == 0 || out.Closed() {
		return out
	}
	return append(out, out[0])
}

// Vertices returns the open vertex list, without the closing duplicate.
func (r Ring) Vertices() []Coordinate {
	if r.Closed() {
		return append([]Coordinate(nil), r[:len(r)-1]...)
	}
	return append([]Coordinate(nil), r...)
}

// DistinctCount returns the number of distinct coordinates in the ring.
func (r Ring) DistinctCount() int {
	seen := make(map[Coordinate]struct{}, len(r))
	for _, c := range r {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// Round returns a copy of r with every coordinate rounded to decimals places.
func (r Ring) Round(decimals int) Ring {
	out := make(Ring, len(r))
	for i, c := range r {
		out[i] = c.Round(decimals)
	}
	return out
}

// Normalize applies the commit rule to a raw vertex list: every coordinate is rounded
// to CoordinatePrecision decimals, consecutive duplicates left by rounding or double
// clicks are collapsed, and the ring is closed.
func Normalize(vertices []Coordinate) Ring {
	rounded := Ring(vertices).Round(CoordinatePrecision)

	collapsed := make(Ring, 0, len(rounded)+1)
	for _, c := range rounded {
		if n := len(collapsed); n > 0 && collapsed[n-1] == c {
			continue
		}
		collapsed = append(collapsed, c)
	}

	return collapsed.Close()
}

// Validate checks the invariants a ring must hold before it is submitted.
func (r Ring) Validate() error {
	for i, c := range r {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	if !r.Closed() {
		return ErrRingNotClosed
	}
	if r.DistinctCount() < MinDistinctVertices || len(r) < MinDistinctVertices+1 {
		return fmt.Errorf("%w: got %d", ErrTooFewVertices, r.DistinctCount())
	}
	if SelfIntersects(r) {
		return ErrSelfIntersecting
	}
	return nil
}

// Orb converts the ring to an orb ring.
func (r Ring) Orb() orb.Ring {
	out := make(orb.Ring, len(r))
	for i, c := range r {
		out[i] = c.Point()
	}
	return out
}

// RingFromOrb converts an orb ring to a Ring.
func RingFromOrb(or orb.Ring) Ring {
	out := make(Ring, len(or))
	for i, p := range or {
		out[i] = FromPoint(p)
	}
	return out
}

// LngLat returns the persisted longitude-first representation of the ring.
func (r Ring) LngLat() [][]float64 {
	out := make([][]float64, len(r))
	for i, c := range r {
		out[i] = c.LngLat()
	}
	return out
}

// RingFromLngLat parses longitude-first pairs as sent by the Farm API.
func RingFromLngLat(pairs [][]float64) (Ring, error) {
	out := make(Ring, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: position %d has %d components", ErrInvalidCoordinate, i, len(pair))
		}
		out = append(out, Coordinate{Lng: pair[0], Lat: pair[1]})
	}
	return out, nil
}
