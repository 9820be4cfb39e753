// Package editor implements the parcel boundary draw controller.
//
// The controller is a pure reducer: Reduce takes the current State and one gesture
// Event and returns the next State plus, on commit or clear, a Publication for the
// owning form. It has no map-library or clock dependency; time enters through the
// event timestamp. Controller is the thin adapter that owns one session's state,
// stamps events and forwards publications.
package editor

import (
	"time"

	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/measure"
)

// Mode is a draw controller state.
type Mode string

// Draw controller modes
const (
	ModeIdle      Mode = "idle"
	ModeDrawing   Mode = "drawing"
	ModeEditing   Mode = "editing"
	ModeCommitted Mode = "committed"
)

// EventType identifies a gesture.
type EventType string

// Gesture events
const (
	EventActivate  EventType = "activate"
	EventPlace     EventType = "place"
	EventFinalize  EventType = "finalize"
	EventBeginEdit EventType = "begin_edit"
	EventMove      EventType = "move"
	EventInsert    EventType = "insert"
	EventRemove    EventType = "remove"
	EventEndEdit   EventType = "end_edit"
	EventDelete    EventType = "delete"
	EventLoad      EventType = "load"
)

// Event is one gesture forwarded by the map widget.
// Point is used by place, move and insert; Index by move, insert and remove;
// Ring by load.
type Event struct {
	At    time.Time      `json:"at"`
	Type  EventType      `json:"type"`
	Ring  geo.Ring       `json:"ring,omitempty"`
	Point geo.Coordinate `json:"point"`
	Index int            `json:"index"`
}

// SegmentLabel is the transient distance label shown at a segment midpoint while drawing.
type SegmentLabel struct {
	Text     string         `json:"text"`
	Position geo.Coordinate `json:"position"`
	Meters   float64        `json:"meters"`
}

// State is the full draw controller state. It is JSON-serializable so sessions can
// be persisted between requests.
type State struct {
	LastCommitAt time.Time           `json:"last_commit_at"`
	Mode         Mode                `json:"mode"`
	Error        string              `json:"error,omitempty"`
	Measurement  measure.Measurement `json:"measurement"`
	Vertices     []geo.Coordinate    `json:"vertices,omitempty"`
	Ring         geo.Ring            `json:"ring"`
	Labels       []SegmentLabel      `json:"labels,omitempty"`
	Values       measure.Values      `json:"values"`
	Revision     int                 `json:"revision"`
}

// NewState returns the initial Idle state.
func NewState() State {
	return State{
		Mode:        ModeIdle,
		Ring:        geo.Ring{},
		Measurement: measure.Zero,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.Ring = s.Ring.Clone()
	if s.Vertices != nil {
		out.Vertices = append([]geo.Coordinate(nil), s.Vertices...)
	}
	if s.Labels != nil {
		out.Labels = append([]SegmentLabel(nil), s.Labels...)
	}
	return out
}

// HasRing reports whether a committed ring is held.
func (s State) HasRing() bool {
	return len(s.Ring) > 0
}

// PublicationKind says whether a publication carries a ring or clears it.
type PublicationKind string

// Publication kinds
const (
	PublicationCommitted PublicationKind = "committed"
	PublicationCleared   PublicationKind = "cleared"
)

// Publication is the immutable snapshot handed to the owning form on every commit
// or clear.
type Publication struct {
	At          time.Time           `json:"at"`
	Kind        PublicationKind     `json:"kind"`
	Measurement measure.Measurement `json:"measurement"`
	Ring        geo.Ring            `json:"ring"`
	Values      measure.Values      `json:"values"`
	Revision    int                 `json:"revision"`
}
