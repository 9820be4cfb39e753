package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/middleware"
)

// Error code constants for standardized error responses
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrDatabaseConnection = "DATABASE_CONNECTION_ERROR"
	ErrInvalidGeometry    = "INVALID_GEOMETRY"
	ErrConflict           = "CONFLICT"
	ErrUpstream           = "UPSTREAM_ERROR"
	ErrSessionExpired     = "SESSION_EXPIRED"
	ErrUnauthorized       = "UNAUTHORIZED"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// respond logs at warn level and writes the envelope. Server-side failures log
// through InternalServerError and UpstreamError instead.
func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	requestID := middleware.GetRequestID(c)

	if log := middleware.GetLogger(c); log != nil {
		fields := map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		}
		if details != nil {
			fields["details"] = details
		}
		log.Warn("Request rejected", fields)
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// Conflict returns a 409 response, used when a request does not fit the
// resource's current state.
func Conflict(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusConflict, ErrConflict, message, details)
}

// InvalidGeometry returns a 422 response for rings that cannot form a parcel
// boundary.
func InvalidGeometry(c *gin.Context, err error) {
	respond(c, http.StatusUnprocessableEntity, ErrInvalidGeometry, "Invalid boundary geometry", map[string]interface{}{
		"reason": err.Error(),
	})
}

// SessionExpired returns a 401 response. The client has to sign in again.
func SessionExpired(c *gin.Context) {
	respond(c, http.StatusUnauthorized, ErrSessionExpired, "Your session has expired. Please sign in again.", nil)
}

// Unauthorized returns a 401 for credentials the Authentication API rejected.
func Unauthorized(c *gin.Context, message string) {
	respond(c, http.StatusUnauthorized, ErrUnauthorized, message, nil)
}

// InternalServerError returns a 500 Internal Server Error response.
// The actual error is logged and never sent to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	requestID := middleware.GetRequestID(c)

	if log := middleware.GetLogger(c); log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		})
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrInternalServer,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// UpstreamError returns a 502 carrying the Farm API's own message, or the generic
// fallback when it gave none.
func UpstreamError(c *gin.Context, err error) {
	requestID := middleware.GetRequestID(c)
	message := farmapi.UserMessage(err)

	fields := map[string]interface{}{
		"request_id": requestID,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
	}
	var apiErr *farmapi.APIError
	if errors.As(err, &apiErr) {
		fields["upstream_status"] = apiErr.StatusCode
	}
	if log := middleware.GetLogger(c); log != nil {
		log.Error("Upstream request failed", err, fields)
	}

	c.JSON(http.StatusBadGateway, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrUpstream,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// FarmAPI maps an error from the Farm API client onto the response envelope.
func FarmAPI(c *gin.Context, err error) {
	var apiErr *farmapi.APIError
	switch {
	case errors.Is(err, farmapi.ErrSessionExpired):
		SessionExpired(c)
	case errors.Is(err, farmapi.ErrInvalidBoundary):
		InvalidGeometry(c, err)
	case farmapi.IsNotFound(err):
		NotFound(c, farmapi.UserMessage(err))
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest:
		BadRequest(c, apiErr.Message, nil)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		Unauthorized(c, apiErr.Message)
	default:
		UpstreamError(c, err)
	}
}

// ValidationError returns a 400 Bad Request error response with field-specific validation errors.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}

	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "latitude":
		return "Must be a latitude between -90 and 90"
	case "longitude":
		return "Must be a longitude between -180 and 180"
	case "eqfield":
		return "Must match " + err.Param()
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
