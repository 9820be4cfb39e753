package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/services"
)

// GeoJSONContentType is the media type of GeoJSON responses.
const GeoJSONContentType = "application/geo+json"

// MapHandler serves the map canvas.
type MapHandler struct {
	service services.MapService
}

// NewMapHandler creates a new MapHandler instance.
func NewMapHandler(service services.MapService) *MapHandler {
	return &MapHandler{service: service}
}

// View handles GET /api/v1/map/view.
func (h *MapHandler) View(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	view, err := h.service.View(c.Request.Context(), sess)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GeoJSON handles GET /api/v1/map/geojson.
func (h *MapHandler) GeoJSON(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	view, err := h.service.View(c.Request.Context(), sess)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	data, err := view.FeatureCollection().MarshalJSON()
	if err != nil {
		apierrors.InternalServerError(c, "Failed to render map", err)
		return
	}

	c.Data(http.StatusOK, GeoJSONContentType, data)
}
