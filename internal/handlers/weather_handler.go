package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/weather"
)

// WeatherReporter produces weather reports.
type WeatherReporter interface {
	Report(ctx context.Context, at geo.Coordinate) (*weather.Report, error)
}

// WeatherHandler serves the dashboard weather card.
type WeatherHandler struct {
	service  WeatherReporter
	fallback geo.Coordinate
}

// NewWeatherHandler creates a new WeatherHandler instance. fallback is used when
// the request carries no coordinate.
func NewWeatherHandler(service WeatherReporter, fallback geo.Coordinate) *WeatherHandler {
	return &WeatherHandler{service: service, fallback: fallback}
}

// WeatherRequest represents the query parameters of the weather endpoint.
type WeatherRequest struct {
	Lat *float64 `form:"lat" binding:"required_with=Lng,omitempty,latitude"`
	Lng *float64 `form:"lng" binding:"required_with=Lat,omitempty,longitude"`
}

// Weather handles GET /api/v1/weather.
func (h *WeatherHandler) Weather(c *gin.Context) {
	var req WeatherRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err, "Invalid query parameters")
		return
	}

	at := h.fallback
	if req.Lat != nil && req.Lng != nil {
		at = geo.LatLng(*req.Lat, *req.Lng)
	}

	report, err := h.service.Report(c.Request.Context(), at)
	if err != nil {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}

	c.JSON(http.StatusOK, report)
}
