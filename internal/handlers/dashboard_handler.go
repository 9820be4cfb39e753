package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/services"
)

// DashboardHandler serves the landing page summary and the inventory list.
type DashboardHandler struct {
	dashboard services.DashboardService
	inventory services.InventoryService
}

// NewDashboardHandler creates a new DashboardHandler instance.
func NewDashboardHandler(dashboard services.DashboardService, inventory services.InventoryService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, inventory: inventory}
}

// InputsRequest represents the query parameters of the inputs endpoint.
type InputsRequest struct {
	Low bool `form:"low"`
}

// InputsResponse lists inputs with their low-stock flag.
type InputsResponse struct {
	Inputs []services.StockItem `json:"inputs"`
	Count  int                  `json:"count"`
}

// Summary handles GET /api/v1/dashboard.
func (h *DashboardHandler) Summary(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	summary, err := h.dashboard.Summary(c.Request.Context(), sess)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Inputs handles GET /api/v1/inventory/inputs. With low=true only inputs at or
// below their minimum are listed.
func (h *DashboardHandler) Inputs(c *gin.Context) {
	sess, ok := farmSession(c)
	if !ok {
		return
	}

	var req InputsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err, "Invalid query parameters")
		return
	}

	items, err := h.inventory.ListInputs(c.Request.Context(), sess, req.Low)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.JSON(http.StatusOK, InputsResponse{Inputs: items, Count: len(items)})
}
