package editor

import (
	"errors"
	"fmt"
	"time"

	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/measure"
)

// DefaultCommitWindow is the interval within which a second commit gesture is
// treated as a duplicate of the first.
const DefaultCommitWindow = 100 * time.Millisecond

// Inline error messages shown next to the map
const (
	MsgCrossingVertex  = "Boundary edges cannot cross each other"
	MsgCrossingClosure = "Closing the boundary here would make its edges cross"
	MsgCrossingEdit    = "Edited boundary crosses itself; the previous boundary was kept"
)

// Reducer errors. The state is left untouched when one is returned.
var (
	ErrInvalidTransition = errors.New("event not allowed in current mode")
	ErrInvalidEvent      = errors.New("invalid event")
)

// Reducer applies gesture events to draw controller states.
type Reducer struct {
	// CommitWindow suppresses finalize and end-edit gestures arriving this soon
	// after the previous commit.
	CommitWindow time.Duration
}

// NewReducer creates a Reducer. A non-positive window selects DefaultCommitWindow.
func NewReducer(commitWindow time.Duration) Reducer {
	if commitWindow <= 0 {
		commitWindow = DefaultCommitWindow
	}
	return Reducer{CommitWindow: commitWindow}
}

// Reduce returns the state that follows s after e, and the publication the
// transition produces, if any. It never mutates s, and returns s unchanged with
// the error when the event is rejected.
func (r Reducer) Reduce(s State, e Event) (State, *Publication, error) {
	if r.duplicateCommit(s, e) {
		return s.Clone(), nil, nil
	}

	next, pub, err := r.apply(s.Clone(), e)
	if err != nil {
		return s, nil, err
	}
	return next, pub, nil
}

func (r Reducer) apply(s State, e Event) (State, *Publication, error) {
	switch e.Type {
	case EventActivate:
		return r.activate(s)
	case EventPlace:
		return r.place(s, e)
	case EventFinalize:
		return r.finalize(s, e)
	case EventBeginEdit:
		return r.beginEdit(s)
	case EventMove, EventInsert, EventRemove:
		return r.edit(s, e)
	case EventEndEdit:
		return r.endEdit(s, e)
	case EventDelete:
		return r.remove(s, e)
	case EventLoad:
		return r.load(s, e)
	default:
		return s, nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.Type)
	}
}

// duplicateCommit reports whether e repeats a commit gesture inside the window.
func (r Reducer) duplicateCommit(s State, e Event) bool {
	if e.Type != EventFinalize && e.Type != EventEndEdit {
		return false
	}
	if s.LastCommitAt.IsZero() || e.At.IsZero() {
		return false
	}
	since := e.At.Sub(s.LastCommitAt)
	return since >= 0 && since < r.CommitWindow
}

func (r Reducer) activate(s State) (State, *Publication, error) {
	switch s.Mode {
	case ModeIdle, ModeCommitted:
		s.Mode = ModeDrawing
		s.Vertices = nil
		s.Labels = nil
		s.Error = ""
		return s, nil, nil
	case ModeDrawing:
		return s, nil, nil
	default:
		return s, nil, transitionError(s.Mode, EventActivate)
	}
}

func (r Reducer) place(s State, e Event) (State, *Publication, error) {
	if s.Mode != ModeDrawing {
		return s, nil, transitionError(s.Mode, EventPlace)
	}
	if err := e.Point.Validate(); err != nil {
		return s, nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	n := len(s.Vertices)
	if n > 0 {
		last := s.Vertices[n-1]
		// A repeated click on the same spot adds nothing
		if last.Round(geo.CoordinatePrecision) == e.Point.Round(geo.CoordinatePrecision) {
			return s, nil, nil
		}
		// Clicking the first vertex again closes the ring
		if n >= geo.MinDistinctVertices &&
			s.Vertices[0].Round(geo.CoordinatePrecision) == e.Point.Round(geo.CoordinatePrecision) {
			return r.finalize(s, e)
		}
		if geo.CrossesPath(s.Vertices, e.Point) {
			s.Error = MsgCrossingVertex
			return s, nil, nil
		}

		meters := geo.DistanceMeters(last, e.Point)
		s.Labels = append(s.Labels, SegmentLabel{
			Text:     measure.SegmentLabel(meters),
			Position: geo.Midpoint(last, e.Point),
			Meters:   meters,
		})
	}

	s.Vertices = append(s.Vertices, e.Point)
	s.Error = ""
	return s, nil, nil
}

func (r Reducer) finalize(s State, e Event) (State, *Publication, error) {
	if s.Mode != ModeDrawing {
		return s, nil, transitionError(s.Mode, EventFinalize)
	}

	ring := geo.Normalize(s.Vertices)
	if ring.DistinctCount() < geo.MinDistinctVertices {
		// Too few vertices: the session is discarded without committing
		hadRing := s.HasRing()
		s = reset(s)
		if hadRing {
			return s, r.publication(&s, PublicationCleared, e.At), nil
		}
		return s, nil, nil
	}

	if geo.SelfIntersects(ring) {
		s.Error = MsgCrossingClosure
		return s, nil, nil
	}

	return r.commit(s, ring, e.At)
}

func (r Reducer) beginEdit(s State) (State, *Publication, error) {
	switch s.Mode {
	case ModeCommitted:
		s.Mode = ModeEditing
		s.Vertices = s.Ring.Vertices()
		s.Error = ""
		return s, nil, nil
	case ModeEditing:
		return s, nil, nil
	default:
		return s, nil, transitionError(s.Mode, EventBeginEdit)
	}
}

func (r Reducer) edit(s State, e Event) (State, *Publication, error) {
	// Dragging a handle on a committed ring enters editing implicitly
	if s.Mode == ModeCommitted {
		s.Mode = ModeEditing
		s.Vertices = s.Ring.Vertices()
		s.Error = ""
	}
	if s.Mode != ModeEditing {
		return s, nil, transitionError(s.Mode, e.Type)
	}

	switch e.Type {
	case EventMove:
		if err := checkIndex(e.Index, len(s.Vertices)); err != nil {
			return s, nil, err
		}
		if err := e.Point.Validate(); err != nil {
			return s, nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		s.Vertices[e.Index] = e.Point
	case EventInsert:
		if err := checkIndex(e.Index, len(s.Vertices)+1); err != nil {
			return s, nil, err
		}
		if err := e.Point.Validate(); err != nil {
			return s, nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		s.Vertices = append(s.Vertices, geo.Coordinate{})
		copy(s.Vertices[e.Index+1:], s.Vertices[e.Index:])
		s.Vertices[e.Index] = e.Point
	case EventRemove:
		if err := checkIndex(e.Index, len(s.Vertices)); err != nil {
			return s, nil, err
		}
		s.Vertices = append(s.Vertices[:e.Index], s.Vertices[e.Index+1:]...)
	}
	return s, nil, nil
}

func (r Reducer) endEdit(s State, e Event) (State, *Publication, error) {
	if s.Mode != ModeEditing {
		return s, nil, transitionError(s.Mode, EventEndEdit)
	}

	ring := geo.Normalize(s.Vertices)
	if ring.DistinctCount() < geo.MinDistinctVertices {
		// A degenerate edit clears the boundary instead of persisting it
		s = reset(s)
		return s, r.publication(&s, PublicationCleared, e.At), nil
	}

	if geo.SelfIntersects(ring) {
		s.Mode = ModeCommitted
		s.Vertices = nil
		s.Error = MsgCrossingEdit
		return s, nil, nil
	}

	return r.commit(s, ring, e.At)
}

func (r Reducer) remove(s State, e Event) (State, *Publication, error) {
	if s.Mode != ModeCommitted && s.Mode != ModeEditing {
		return s, nil, transitionError(s.Mode, EventDelete)
	}
	s = reset(s)
	return s, r.publication(&s, PublicationCleared, e.At), nil
}

func (r Reducer) load(s State, e Event) (State, *Publication, error) {
	if s.Mode != ModeIdle {
		return s, nil, transitionError(s.Mode, EventLoad)
	}

	ring := geo.Normalize(e.Ring.Vertices())
	for i, c := range ring {
		if err := c.Validate(); err != nil {
			return s, nil, fmt.Errorf("%w: vertex %d: %w", ErrInvalidEvent, i, err)
		}
	}
	if ring.DistinctCount() < geo.MinDistinctVertices {
		return s, nil, fmt.Errorf("%w: %w", ErrInvalidEvent, geo.ErrTooFewVertices)
	}
	if geo.SelfIntersects(ring) {
		return s, nil, fmt.Errorf("%w: %w", ErrInvalidEvent, geo.ErrSelfIntersecting)
	}

	// Loading an existing boundary does not notify the form, which already has it
	s.Mode = ModeCommitted
	s.Ring = ring
	s.Values = measure.Compute(ring)
	s.Measurement = s.Values.Format()
	s.Error = ""
	return s, nil, nil
}

// commit makes ring the authoritative draft and recomputes its measurements.
func (r Reducer) commit(s State, ring geo.Ring, at time.Time) (State, *Publication, error) {
	s.Mode = ModeCommitted
	s.Ring = ring
	s.Vertices = nil
	s.Labels = nil
	s.Error = ""
	s.Values = measure.Compute(ring)
	s.Measurement = s.Values.Format()
	return s, r.publication(&s, PublicationCommitted, at), nil
}

// publication bumps the revision, records the commit time and snapshots s.
func (r Reducer) publication(s *State, kind PublicationKind, at time.Time) *Publication {
	s.Revision++
	if !at.IsZero() {
		s.LastCommitAt = at
	}
	return &Publication{
		At:          at,
		Kind:        kind,
		Ring:        s.Ring.Clone(),
		Values:      s.Values,
		Measurement: s.Measurement,
		Revision:    s.Revision,
	}
}

// reset clears the ring, the drawing buffer and the measurements.
func reset(s State) State {
	s.Mode = ModeIdle
	s.Ring = geo.Ring{}
	s.Vertices = nil
	s.Labels = nil
	s.Error = ""
	s.Values = measure.Values{}
	s.Measurement = measure.Zero
	return s
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidEvent, index, length)
	}
	return nil
}

func transitionError(mode Mode, event EventType) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, mode)
}
