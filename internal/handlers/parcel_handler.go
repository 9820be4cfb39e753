package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/farmboard/internal/editor"
	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/middleware"
	"github.com/stwalsh4118/farmboard/internal/services"
)

// ParcelHandler handles parcel-related HTTP requests.
type ParcelHandler struct {
	service services.ParcelService
	editors services.EditorService
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService, editors services.EditorService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
		editors: editors,
	}
}

// ParcelResponse represents the response for single parcel endpoints.
type ParcelResponse struct {
	Parcel *farmapi.Parcel `json:"parcel"`
}

// ParcelListResponse represents the response for the list endpoint.
type ParcelListResponse struct {
	Parcels []farmapi.Parcel `json:"parcels"`
	Count   int              `json:"count"`
}

// List handles GET /api/v1/parcels endpoint.
func (h *ParcelHandler) List(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	parcels, err := h.service.ListParcels(c.Request.Context(), sess)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}
	if parcels == nil {
		parcels = []farmapi.Parcel{}
	}

	c.JSON(http.StatusOK, ParcelListResponse{
		Parcels: parcels,
		Count:   len(parcels),
	})
}

// Get handles GET /api/v1/parcels/:id endpoint.
func (h *ParcelHandler) Get(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	parcel, err := h.service.GetParcel(c.Request.Context(), sess, farmapi.ID(c.Param("id")))
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.JSON(http.StatusOK, ParcelResponse{Parcel: parcel})
}

// Delete handles DELETE /api/v1/parcels/:id endpoint.
func (h *ParcelHandler) Delete(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	if err := h.service.DeleteParcel(c.Request.Context(), sess, farmapi.ID(c.Param("id"))); err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Edit handles POST /api/v1/parcels/:id/edit endpoint.
// It opens an editor session holding the parcel's stored boundary, so the next
// submit updates the parcel instead of creating one.
func (h *ParcelHandler) Edit(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	parcel, err := h.service.GetParcel(c.Request.Context(), sess, farmapi.ID(c.Param("id")))
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	session, err := h.editors.CreateSession(c.Request.Context(), string(parcel.ID), parcel.Boundary.Ring)
	if errors.Is(err, editor.ErrInvalidEvent) {
		// A stored boundary the editor cannot load still opens an empty session
		if log := middleware.GetLogger(c); log != nil {
			log.Warn("Stored boundary rejected by editor", map[string]interface{}{
				"parcel_id": parcel.ID,
				"error":     err.Error(),
			})
		}
		session, err = h.editors.CreateSession(c.Request.Context(), string(parcel.ID), nil)
	}
	if err != nil {
		apierrors.InternalServerError(c, "Failed to open editor session", err)
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{Session: session})
}
