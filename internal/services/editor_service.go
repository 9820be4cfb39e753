package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/farmboard/internal/editor"
	"github.com/stwalsh4118/farmboard/internal/events"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/metrics"
	"github.com/stwalsh4118/farmboard/internal/repository"
)

// Service-level errors
var (
	ErrSessionNotFound = errors.New("editor session not found")
	ErrNotCommitted    = errors.New("boundary is not committed")
)

// EditorSession is the view of an editing session returned to callers.
type EditorSession struct {
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ID        string       `json:"id"`
	ParcelID  string       `json:"parcel_id,omitempty"`
	State     editor.State `json:"state"`
}

// EventResult is the outcome of one applied gesture. Publication is set when the
// gesture committed or cleared the boundary. PublishError is set when that
// publication could not be announced; the new state is kept regardless.
type EventResult struct {
	Publication  *editor.Publication `json:"publication,omitempty"`
	PublishError string              `json:"publish_error,omitempty"`
	Session      EditorSession       `json:"session"`
}

// EditorService manages boundary editing sessions.
type EditorService interface {
	// CreateSession starts a session. With a ring, the session opens in the
	// committed mode holding it, which is how an existing parcel is edited.
	// Returns an error wrapping editor.ErrInvalidEvent if the ring is unusable.
	CreateSession(ctx context.Context, parcelID string, ring geo.Ring) (*EditorSession, error)

	// GetSession returns the session's current state.
	// Returns ErrSessionNotFound if no such session exists.
	GetSession(ctx context.Context, id string) (*EditorSession, error)

	// Apply feeds one gesture to the session. Events for one session are applied
	// in arrival order, one at a time.
	// The new state is stored before any publication goes out; if storing fails
	// the state is unchanged and nothing is published.
	// Returns ErrSessionNotFound, or the reducer's ErrInvalidTransition or
	// ErrInvalidEvent, in which case the state is unchanged.
	Apply(ctx context.Context, id string, event editor.Event) (*EventResult, error)

	// AttachParcel records the Farm API parcel the session now belongs to, so
	// later submissions update it.
	AttachParcel(ctx context.Context, id, parcelID string) error

	// DiscardSession deletes the session.
	// Returns ErrSessionNotFound if no such session exists.
	DiscardSession(ctx context.Context, id string) error

	// PurgeStale drops sessions idle for longer than maxAge and returns how many
	// were removed from the store. Reading a session counts as using it.
	PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// liveSession is a session loaded into memory. mu serializes event application
// and persistence so stored states follow event order; record only changes once
// a state is stored. lastUsed is guarded by the service lock.
type liveSession struct {
	lastUsed time.Time
	ctrl     *editor.Controller
	record   repository.BoundarySession
	mu       sync.Mutex
}

// editorService is the concrete implementation of EditorService.
type editorService struct {
	repo      repository.BoundarySessionRepository
	publisher events.Publisher
	now       func() time.Time
	log       *logger.Logger
	sessions  map[string]*liveSession
	reducer   editor.Reducer
	mu        sync.Mutex
}

// NewEditorService creates a new instance of EditorService.
func NewEditorService(repo repository.BoundarySessionRepository, publisher events.Publisher, reducer editor.Reducer, log *logger.Logger) EditorService {
	return &editorService{
		repo:      repo,
		publisher: publisher,
		reducer:   reducer,
		now:       time.Now,
		log:       log.Component("editor"),
		sessions:  make(map[string]*liveSession),
	}
}

func (s *editorService) CreateSession(ctx context.Context, parcelID string, ring geo.Ring) (*EditorSession, error) {
	state := editor.NewState()
	if len(ring) > 0 {
		next, _, err := s.reducer.Reduce(state, editor.Event{Type: editor.EventLoad, Ring: ring, At: s.now()})
		if err != nil {
			s.log.Warn("Rejected initial boundary", map[string]interface{}{
				"parcel_id": parcelID,
				"error":     err.Error(),
			})
			return nil, fmt.Errorf("failed to load boundary: %w", err)
		}
		state = next
	}

	record := repository.BoundarySession{
		ID:       uuid.NewString(),
		ParcelID: parcelID,
		State:    state,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		s.log.Error("Failed to create editor session", err, map[string]interface{}{
			"parcel_id": parcelID,
		})
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	live := s.remember(record)

	s.log.Info("Editor session created", map[string]interface{}{
		"session_id": record.ID,
		"parcel_id":  parcelID,
		"mode":       state.Mode,
	})

	live.mu.Lock()
	defer live.mu.Unlock()
	view := live.view()
	return &view, nil
}

func (s *editorService) GetSession(ctx context.Context, id string) (*EditorSession, error) {
	live, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()
	view := live.view()
	return &view, nil
}

func (s *editorService) Apply(ctx context.Context, id string, event editor.Event) (*EventResult, error) {
	live, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	state, pub, err := live.ctrl.Dispatch(ctx, event)
	result := &EventResult{Publication: pub}

	switch {
	case errors.Is(err, editor.ErrSave):
		metrics.EditorEvents.WithLabelValues(string(event.Type), "save_failed").Inc()
		if errors.Is(err, repository.ErrSessionNotFound) {
			s.forget(id)
			return nil, ErrSessionNotFound
		}
		s.log.Error("Failed to save editor session", err, map[string]interface{}{
			"session_id": id,
			"event":      event.Type,
		})
		return nil, fmt.Errorf("failed to save session: %w", err)
	case errors.Is(err, editor.ErrPublish):
		metrics.EditorEvents.WithLabelValues(string(event.Type), "publish_failed").Inc()
		s.log.Error("Failed to publish boundary", err, map[string]interface{}{
			"session_id": id,
			"kind":       pub.Kind,
			"revision":   pub.Revision,
		})
		result.PublishError = err.Error()
	case err != nil:
		metrics.EditorEvents.WithLabelValues(string(event.Type), "rejected").Inc()
		s.log.Debug("Gesture rejected", map[string]interface{}{
			"session_id": id,
			"event":      event.Type,
			"mode":       state.Mode,
			"error":      err.Error(),
		})
		return nil, err
	default:
		metrics.EditorEvents.WithLabelValues(string(event.Type), "applied").Inc()
	}
	if pub != nil {
		metrics.EditorPublications.WithLabelValues(string(pub.Kind)).Inc()
	}

	if pub != nil && result.PublishError == "" {
		s.log.Info("Boundary published", map[string]interface{}{
			"session_id": id,
			"kind":       pub.Kind,
			"revision":   pub.Revision,
			"perimeter":  pub.Measurement.Perimeter,
			"area":       pub.Measurement.Area,
		})
	}

	result.Session = live.view()
	return result, nil
}

func (s *editorService) AttachParcel(ctx context.Context, id, parcelID string) error {
	live, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if live.record.ParcelID == parcelID {
		return nil
	}

	if err := s.repo.AttachParcel(ctx, id, parcelID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			s.forget(id)
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to attach parcel: %w", err)
	}

	live.record.ParcelID = parcelID
	live.ctrl = s.controller(live)

	s.log.Info("Editor session attached to parcel", map[string]interface{}{
		"session_id": id,
		"parcel_id":  parcelID,
	})
	return nil
}

func (s *editorService) DiscardSession(ctx context.Context, id string) error {
	s.forget(id)

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.log.Error("Failed to delete editor session", err, map[string]interface{}{
			"session_id": id,
		})
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !removed {
		return ErrSessionNotFound
	}

	s.log.Info("Editor session discarded", map[string]interface{}{
		"session_id": id,
	})
	return nil
}

func (s *editorService) PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge)

	var inUse []string
	s.mu.Lock()
	for id, live := range s.sessions {
		if live.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			continue
		}
		inUse = append(inUse, id)
	}
	metrics.EditorActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	// Sessions only read since their last save are still in use
	if err := s.repo.Touch(ctx, inUse); err != nil {
		return 0, fmt.Errorf("failed to mark sessions in use: %w", err)
	}

	n, err := s.repo.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		s.log.Info("Purged stale editor sessions", map[string]interface{}{
			"count":   n,
			"max_age": maxAge.String(),
		})
	}
	return n, nil
}

// load returns the in-memory session, reading it from the store on a miss.
func (s *editorService) load(ctx context.Context, id string) (*liveSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	live, ok := s.sessions[id]
	if ok {
		live.lastUsed = s.now()
	}
	s.mu.Unlock()
	if ok {
		return live, nil
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to load editor session", err, map[string]interface{}{
			"session_id": id,
		})
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if record == nil {
		return nil, ErrSessionNotFound
	}

	return s.remember(*record), nil
}

// remember caches record. When another request loaded the same session first,
// that copy wins so both requests share one lock.
func (s *editorService) remember(record repository.BoundarySession) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if live, ok := s.sessions[record.ID]; ok {
		return live
	}
	live := &liveSession{
		record:   record,
		lastUsed: s.now(),
	}
	live.ctrl = s.controller(live)
	s.sessions[record.ID] = live
	metrics.EditorActiveSessions.Set(float64(len(s.sessions)))
	return live
}

func (s *editorService) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	metrics.EditorActiveSessions.Set(float64(len(s.sessions)))
}

// controller builds the session's controller. Every accepted state is stored
// before its publication is announced; the caller holds live.mu while dispatching.
func (s *editorService) controller(live *liveSession) *editor.Controller {
	save := editor.SaverFunc(func(ctx context.Context, _ string, state editor.State) error {
		record := live.record
		record.State = state
		if err := s.repo.Save(ctx, &record); err != nil {
			return err
		}
		live.record = record
		return nil
	})
	return editor.NewController(live.record.ID, s.reducer, live.record.State,
		editor.WithClock(s.now),
		editor.WithSaver(save),
		editor.WithPublisher(events.ForSession(s.publisher, live.record.ParcelID)),
	)
}

func (l *liveSession) view() EditorSession {
	return EditorSession{
		ID:        l.record.ID,
		ParcelID:  l.record.ParcelID,
		State:     l.record.State.Clone(),
		CreatedAt: l.record.CreatedAt,
		UpdatedAt: l.record.UpdatedAt,
	}
}
