package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryBoundarySessionRepository keeps sessions in process memory. It backs
// SESSION_STORE=memory and tests; sessions do not survive a restart.
type MemoryBoundarySessionRepository struct {
	now      func() time.Time
	sessions map[string]BoundarySession
	mu       sync.RWMutex
}

// MemoryOption configures a MemoryBoundarySessionRepository.
type MemoryOption func(*MemoryBoundarySessionRepository)

// WithMemoryClock replaces time.Now for the stored timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(r *MemoryBoundarySessionRepository) {
		r.now = now
	}
}

// NewMemoryBoundarySessionRepository creates an empty in-memory repository.
func NewMemoryBoundarySessionRepository(opts ...MemoryOption) *MemoryBoundarySessionRepository {
	r := &MemoryBoundarySessionRepository{
		now:      time.Now,
		sessions: make(map[string]BoundarySession),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryBoundarySessionRepository) Create(_ context.Context, s *BoundarySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now
	r.sessions[s.ID] = clone(*s)
	return nil
}

func (r *MemoryBoundarySessionRepository) FindByID(_ context.Context, id string) (*BoundarySession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	out := clone(s)
	return &out, nil
}

func (r *MemoryBoundarySessionRepository) Save(_ context.Context, s *BoundarySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[s.ID]
	if !ok {
		return ErrSessionNotFound
	}
	s.CreatedAt = stored.CreatedAt
	s.UpdatedAt = r.now()
	r.sessions[s.ID] = clone(*s)
	return nil
}

func (r *MemoryBoundarySessionRepository) AttachParcel(_ context.Context, id, parcelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	stored.ParcelID = parcelID
	stored.UpdatedAt = r.now()
	r.sessions[id] = stored
	return nil
}

func (r *MemoryBoundarySessionRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok, nil
}

func (r *MemoryBoundarySessionRepository) Touch(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			s.UpdatedAt = now
			r.sessions[id] = s
		}
	}
	return nil
}

func (r *MemoryBoundarySessionRepository) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.UpdatedAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func clone(s BoundarySession) BoundarySession {
	s.State = s.State.Clone()
	return s
}
