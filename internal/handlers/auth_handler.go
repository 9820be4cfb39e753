package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/middleware"
	"github.com/stwalsh4118/farmboard/internal/services"
)

// AuthHandler passes authentication requests to the Authentication API.
type AuthHandler struct {
	service services.AuthService
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(service services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RefreshRequest carries the refresh token. The X-Refresh-Token header is used
// when the body omits it.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// UserResponse wraps a registered account.
type UserResponse struct {
	User *farmapi.User `json:"user"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req farmapi.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid registration request")
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserResponse{User: user})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req farmapi.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid login request")
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err, "Invalid refresh request")
			return
		}
	}
	if req.Refresh == "" {
		req.Refresh = c.GetHeader(middleware.RefreshTokenHeader)
	}
	if req.Refresh == "" {
		apierrors.BadRequest(c, "A refresh token is required", nil)
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		apierrors.FarmAPI(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}
