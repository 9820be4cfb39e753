// Package mapview computes what the map canvas shows: entity markers, boundary
// polygons and the initial viewport.
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/stwalsh4118/farmboard/internal/geo"
)

// Default viewport, centered on the farming region.
const (
	DefaultCenterLat   = 34.0
	DefaultCenterLng   = 9.0
	DefaultWideZoom    = 7
	DefaultFocusedZoom = 13
)

// Kind classifies map entities.
type Kind string

// Entity kinds
const (
	KindParcel    Kind = "parcel"
	KindEquipment Kind = "equipment"
	KindPersonnel Kind = "personnel"
)

// Entity is anything that can be placed on the map. Point, when set, wins over a
// position derived from Ring.
type Entity struct {
	Point *geo.Coordinate
	ID    string
	Name  string
	Kind  Kind
	Ring  geo.Ring
}

// Options configure the viewport fallback.
type Options struct {
	Center      geo.Coordinate
	WideZoom    int
	FocusedZoom int
}

// DefaultOptions returns the regional defaults.
func DefaultOptions() Options {
	return Options{
		Center:      geo.LatLng(DefaultCenterLat, DefaultCenterLng),
		WideZoom:    DefaultWideZoom,
		FocusedZoom: DefaultFocusedZoom,
	}
}

// Marker is a point rendered for one entity.
type Marker struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     Kind           `json:"kind"`
	Position geo.Coordinate `json:"position"`
	// Derived is true when the position was averaged from the boundary.
	Derived bool `json:"derived"`
}

// Polygon is a boundary rendered as a filled shape.
type Polygon struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Ring geo.Ring `json:"ring"`
}

// View is the computed canvas content.
type View struct {
	Center   geo.Coordinate `json:"center"`
	Markers  []Marker       `json:"markers"`
	Polygons []Polygon      `json:"polygons"`
	Zoom     int            `json:"zoom"`
}

// Resolve returns the display point of an entity. Explicit coordinates are used when
// valid. Otherwise the point is the plain arithmetic mean of the boundary vertices,
// closing duplicate excluded. This is not an area-weighted centroid and is only meant
// for label placement.
func Resolve(e Entity) (pos geo.Coordinate, derived bool, ok bool) {
	if e.Point != nil && e.Point.Validate() == nil {
		return *e.Point, false, true
	}
	mean, ok := geo.Mean(e.Ring.Vertices())
	if !ok || mean.Validate() != nil {
		return geo.Coordinate{}, false, false
	}
	return mean, true, true
}

// Compute builds the view for entities. Entities without a resolvable position are
// left off the marker list. With no markers the view falls back to the configured
// center and wide zoom; otherwise it centers on the mean of all markers.
func Compute(entities []Entity, opts Options) View {
	view := View{
		Markers:  []Marker{},
		Polygons: []Polygon{},
	}

	points := make([]geo.Coordinate, 0, len(entities))
	for _, e := range entities {
		if e.Ring.DistinctCount() >= geo.MinDistinctVertices {
			view.Polygons = append(view.Polygons, Polygon{ID: e.ID, Name: e.Name, Ring: e.Ring.Close()})
		}

		pos, derived, ok := Resolve(e)
		if !ok {
			continue
		}
		view.Markers = append(view.Markers, Marker{
			ID:       e.ID,
			Name:     e.Name,
			Kind:     e.Kind,
			Position: pos,
			Derived:  derived,
		})
		points = append(points, pos)
	}

	center, ok := geo.Mean(points)
	if !ok {
		view.Center = opts.Center
		view.Zoom = opts.WideZoom
		return view
	}
	view.Center = center
	view.Zoom = opts.FocusedZoom
	return view
}

// FeatureCollection renders the view as GeoJSON: polygons first, then markers.
func (v View) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, p := range v.Polygons {
		f := geojson.NewFeature(orb.Polygon{p.Ring.Orb()})
		f.ID = p.ID
		f.Properties["id"] = p.ID
		f.Properties["name"] = p.Name
		f.Properties["kind"] = string(KindParcel)
		fc.Append(f)
	}

	for _, m := range v.Markers {
		f := geojson.NewFeature(m.Position.Point())
		f.ID = m.ID
		f.Properties["id"] = m.ID
		f.Properties["name"] = m.Name
		f.Properties["kind"] = string(m.Kind)
		f.Properties["derived"] = m.Derived
		fc.Append(f)
	}

	return fc
}
