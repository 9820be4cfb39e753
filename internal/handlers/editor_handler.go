package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/stwalsh4118/farmboard/internal/editor"
	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/middleware"
	"github.com/stwalsh4118/farmboard/internal/services"
)

// EditorHandler exposes boundary editing sessions.
type EditorHandler struct {
	editors services.EditorService
	parcels services.ParcelService
}

// NewEditorHandler creates a new EditorHandler instance.
func NewEditorHandler(editors services.EditorService, parcels services.ParcelService) *EditorHandler {
	return &EditorHandler{editors: editors, parcels: parcels}
}

// CreateSessionRequest opens a session. Ring, when given, is an existing boundary
// to edit.
type CreateSessionRequest struct {
	ParcelID string   `json:"parcel_id" binding:"max=64"`
	Ring     geo.Ring `json:"ring"`
}

// EventRequest is one gesture from the map widget.
type EventRequest struct {
	Point *geo.Coordinate `json:"point"`
	Index *int            `json:"index" binding:"omitempty,gte=0"`
	Type  string          `json:"type" binding:"required,oneof=activate place finalize begin_edit move insert remove end_edit delete"`
}

// SessionResponse wraps an editing session.
type SessionResponse struct {
	Session *services.EditorSession `json:"session"`
}

// Create handles POST /api/v1/editor/sessions.
func (h *EditorHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err, "Invalid session request")
			return
		}
	}

	session, err := h.editors.CreateSession(c.Request.Context(), req.ParcelID, req.Ring)
	if err != nil {
		h.sessionError(c, err, "Failed to create editor session")
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{Session: session})
}

// Get handles GET /api/v1/editor/sessions/:id.
func (h *EditorHandler) Get(c *gin.Context) {
	session, err := h.editors.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sessionError(c, err, "Failed to load editor session")
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Session: session})
}

// Apply handles POST /api/v1/editor/sessions/:id/events.
func (h *EditorHandler) Apply(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid editor event")
		return
	}

	event, err := req.event()
	if err != nil {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}

	result, err := h.editors.Apply(c.Request.Context(), c.Param("id"), event)
	if err != nil {
		h.sessionError(c, err, "Failed to apply editor event")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Discard handles DELETE /api/v1/editor/sessions/:id.
func (h *EditorHandler) Discard(c *gin.Context) {
	if err := h.editors.DiscardSession(c.Request.Context(), c.Param("id")); err != nil {
		h.sessionError(c, err, "Failed to discard editor session")
		return
	}

	c.Status(http.StatusNoContent)
}

// Submit handles POST /api/v1/editor/sessions/:id/submit.
func (h *EditorHandler) Submit(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	var req services.ParcelDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid parcel details")
		return
	}

	parcel, err := h.parcels.Submit(c.Request.Context(), sess, c.Param("id"), req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		switch {
		case errors.Is(err, services.ErrNotCommitted):
			apierrors.Conflict(c, "Finish drawing the boundary before saving", nil)
		case errors.As(err, &validationErrors):
			apierrors.ValidationError(c, validationErrors)
		case errors.Is(err, services.ErrSessionNotFound):
			apierrors.NotFound(c, "Editor session not found")
		default:
			apierrors.FarmAPI(c, err)
		}
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Parcel saved from editor", map[string]interface{}{
			"session_id": c.Param("id"),
			"parcel_id":  parcel.ID,
		})
	}

	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcel})
}

// sessionError maps editor service errors onto the response envelope.
func (h *EditorHandler) sessionError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		apierrors.NotFound(c, "Editor session not found")
	case errors.Is(err, editor.ErrInvalidTransition):
		apierrors.Conflict(c, err.Error(), nil)
	case errors.Is(err, editor.ErrInvalidEvent) && isGeometryError(err):
		apierrors.InvalidGeometry(c, err)
	case errors.Is(err, editor.ErrInvalidEvent):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}

func isGeometryError(err error) bool {
	return errors.Is(err, geo.ErrTooFewVertices) ||
		errors.Is(err, geo.ErrSelfIntersecting) ||
		errors.Is(err, geo.ErrRingNotClosed)
}

// event converts the request into a reducer event. The server stamps the time.
func (r EventRequest) event() (editor.Event, error) {
	e := editor.Event{Type: editor.EventType(r.Type)}

	switch e.Type {
	case editor.EventPlace, editor.EventMove, editor.EventInsert:
		if r.Point == nil {
			return e, errors.New("point is required for " + r.Type)
		}
		e.Point = *r.Point
	}

	switch e.Type {
	case editor.EventMove, editor.EventInsert, editor.EventRemove:
		if r.Index == nil {
			return e, errors.New("index is required for " + r.Type)
		}
		e.Index = *r.Index
	}

	return e, nil
}
