package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/farmboard/internal/database"
	"github.com/stwalsh4118/farmboard/internal/editor"
	"github.com/stwalsh4118/farmboard/internal/geo"
)

// ErrSessionNotFound is returned by Save when the session row no longer exists.
var ErrSessionNotFound = errors.New("boundary session not found")

// BoundarySession is a persisted editing session.
type BoundarySession struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	// ParcelID is the Farm API parcel being edited, empty for a new parcel.
	ParcelID string
	State    editor.State
}

// BoundarySessionRepository defines data access for editor sessions.
type BoundarySessionRepository interface {
	// Create inserts a new session and fills in its timestamps.
	Create(ctx context.Context, s *BoundarySession) error

	// FindByID returns the session with the given id.
	// Returns nil, nil if no session exists (not an error).
	FindByID(ctx context.Context, id string) (*BoundarySession, error)

	// Save stores the session's current state and committed boundary.
	// Returns ErrSessionNotFound when the session was deleted meanwhile.
	Save(ctx context.Context, s *BoundarySession) error

	// AttachParcel sets the Farm API parcel the session edits.
	// Returns ErrSessionNotFound when the session does not exist.
	AttachParcel(ctx context.Context, id, parcelID string) error

	// Delete removes a session. It reports whether a session was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Touch marks sessions as in use without changing their state, so
	// DeleteStale keeps them. Unknown ids are ignored.
	Touch(ctx context.Context, ids []string) error

	// DeleteStale removes sessions not updated since before and returns how many
	// were removed.
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// boundarySessionRepository stores sessions in PostgreSQL. The committed ring is
// kept as PostGIS geometry next to the JSONB state.
type boundarySessionRepository struct {
	db *database.Database
}

// NewBoundarySessionRepository creates a PostgreSQL-backed repository.
func NewBoundarySessionRepository(db *database.Database) BoundarySessionRepository {
	return &boundarySessionRepository{db: db}
}

func (r *boundarySessionRepository) Create(ctx context.Context, s *BoundarySession) error {
	state, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	boundary, err := committedBoundary(s.State)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO boundary_sessions (id, parcel_id, state, boundary)
		VALUES ($1, NULLIF($2, ''), $3, ST_SetSRID(ST_GeomFromGeoJSON($4::text), 4326))
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query, s.ID, s.ParcelID, state, boundary).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert boundary session %s: %w", s.ID, err)
	}
	return nil
}

// FindByID loads a session. The state column is authoritative. A committed state
// without stored geometry is reported as corrupt.
func (r *boundarySessionRepository) FindByID(ctx context.Context, id string) (*BoundarySession, error) {
	query := `
		SELECT
			id::text,
			COALESCE(parcel_id, ''),
			state,
			ST_AsGeoJSON(boundary),
			created_at,
			updated_at
		FROM boundary_sessions
		WHERE id = $1
	`

	var (
		s        BoundarySession
		state    []byte
		boundary geo.Boundary
	)
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.ParcelID,
		&state,
		&boundary,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query boundary session %s: %w", id, err)
	}

	if err := json.Unmarshal(state, &s.State); err != nil {
		return nil, fmt.Errorf("failed to decode state for boundary session %s: %w", id, err)
	}
	if s.State.HasRing() && boundary.Empty() {
		return nil, fmt.Errorf("boundary session %s has a committed ring but no stored geometry", id)
	}

	return &s, nil
}

func (r *boundarySessionRepository) Save(ctx context.Context, s *BoundarySession) error {
	state, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	boundary, err := committedBoundary(s.State)
	if err != nil {
		return err
	}

	query := `
		UPDATE boundary_sessions
		SET state = $2,
			boundary = ST_SetSRID(ST_GeomFromGeoJSON($3::text), 4326),
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query, s.ID, state, boundary).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to save boundary session %s: %w", s.ID, err)
	}
	return nil
}

func (r *boundarySessionRepository) AttachParcel(ctx context.Context, id, parcelID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE boundary_sessions SET parcel_id = NULLIF($2, ''), updated_at = now() WHERE id = $1`,
		id, parcelID)
	if err != nil {
		return fmt.Errorf("failed to attach parcel to boundary session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *boundarySessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM boundary_sessions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete boundary session %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *boundarySessionRepository) Touch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Pool.Exec(ctx,
		`UPDATE boundary_sessions SET updated_at = now() WHERE id::text = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to touch %d boundary sessions: %w", len(ids), err)
	}
	return nil
}

func (r *boundarySessionRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM boundary_sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale boundary sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// committedBoundary returns the GeoJSON stored in the geometry column: the
// committed ring, or nil (NULL) while nothing is committed.
func committedBoundary(s editor.State) (interface{}, error) {
	v, err := geo.Boundary{Ring: s.Ring}.Value()
	if err != nil {
		return nil, fmt.Errorf("failed to encode committed boundary: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	return v, nil
}
