package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/measure"
)

// MeasureRequest is a vertex list in drawing order. It does not need to be closed.
type MeasureRequest struct {
	Vertices []geo.Coordinate `json:"vertices" binding:"required,max=10000"`
}

// MeasureResponse is the normalized ring and its measurements. Ring is empty when
// fewer than three distinct vertices were given.
type MeasureResponse struct {
	Measurement measure.Measurement `json:"measurement"`
	Ring        geo.Ring            `json:"ring"`
	Values      measure.Values      `json:"values"`
}

// Measure handles POST /api/v1/measure.
func Measure(c *gin.Context) {
	var req MeasureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid measure request")
		return
	}

	for i, v := range req.Vertices {
		if err := v.Validate(); err != nil {
			apierrors.BadRequest(c, err.Error(), map[string]interface{}{"vertex": i})
			return
		}
	}

	ring := geo.Normalize(req.Vertices)
	if ring.DistinctCount() < geo.MinDistinctVertices {
		ring = geo.Ring{}
	}
	values := measure.Compute(ring)

	c.JSON(http.StatusOK, MeasureResponse{
		Ring:        ring,
		Values:      values,
		Measurement: values.Format(),
	})
}
