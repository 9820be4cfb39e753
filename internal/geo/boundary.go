package geo

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SRID is the spatial reference used for every stored boundary (WGS84).
const SRID = 4326

// Boundary is a parcel boundary as a GeoJSON Polygon with a single exterior ring.
// It reads PostGIS geometry produced by ST_AsGeoJSON and writes GeoJSON suitable for
// ST_GeomFromGeoJSON. On the Farm API wire it is {"coordinates": [[[lng, lat], ...]]}.
type Boundary struct {
	Ring Ring
}

// Empty reports whether the boundary has no ring.
func (b Boundary) Empty() bool {
	return len(b.Ring) == 0
}

// Polygon returns the boundary as an orb polygon.
func (b Boundary) Polygon() orb.Polygon {
	if b.Empty() {
		return orb.Polygon{}
	}
	return orb.Polygon{b.Ring.Orb()}
}

// Scan implements sql.Scanner for reading ST_AsGeoJSON output.
func (b *Boundary) Scan(value interface{}) error {
	if value == nil {
		b.Ring = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan Boundary: expected []byte or string, got %T", value)
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("failed to unmarshal boundary geometry: %w", err)
	}

	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		return fmt.Errorf("expected Polygon type, got %s", g.Type)
	}
	if len(poly) == 0 {
		b.Ring = nil
		return nil
	}

	b.Ring = RingFromOrb(poly[0])
	return nil
}

// Value implements driver.Valuer, returning GeoJSON for ST_GeomFromGeoJSON.
// An empty boundary is stored as NULL.
func (b Boundary) Value() (driver.Value, error) {
	if b.Empty() {
		return nil, nil
	}

	data, err := geojson.NewGeometry(b.Polygon()).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal boundary to GeoJSON: %w", err)
	}
	return string(data), nil
}

// boundaryWire is the Farm API representation. The type member is optional on input.
type boundaryWire struct {
	Type        string        `json:"type,omitempty"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// MarshalJSON emits the boundary in GeoJSON Polygon form.
func (b Boundary) MarshalJSON() ([]byte, error) {
	wire := boundaryWire{Type: "Polygon", Coordinates: [][][]float64{}}
	if !b.Empty() {
		wire.Coordinates = [][][]float64{b.Ring.LngLat()}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts a GeoJSON Polygon or the bare {"coordinates": ...} form.
// Only the exterior ring is kept.
func (b *Boundary) UnmarshalJSON(data []byte) error {
	var wire boundaryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("failed to unmarshal boundary: %w", err)
	}
	if wire.Type != "" && wire.Type != "Polygon" {
		return fmt.Errorf("expected Polygon type, got %s", wire.Type)
	}
	if len(wire.Coordinates) == 0 {
		b.Ring = nil
		return nil
	}

	ring, err := RingFromLngLat(wire.Coordinates[0])
	if err != nil {
		return err
	}
	b.Ring = ring
	return nil
}
