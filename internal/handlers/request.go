package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/middleware"
)

// bindFailed writes the response for a request that could not be bound.
func bindFailed(c *gin.Context, err error, message string) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, message, nil)
}

// farmSession returns the caller's Farm API session. Without one the request is
// answered with 401 and ok is false.
func farmSession(c *gin.Context) (*farmapi.Session, bool) {
	sess := middleware.GetFarmSession(c)
	if sess == nil {
		apierrors.SessionExpired(c)
		return nil, false
	}
	return sess, true
}
