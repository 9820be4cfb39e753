package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestContext creates a test Gin context with logger and request ID in context.
func setupTestContext() (*gin.Context, *httptest.ResponseRecorder, *bytes.Buffer) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)

	var logs bytes.Buffer
	c.Set(middleware.LoggerKey, logger.NewWithWriter("production", &logs))
	c.Set(middleware.RequestIDKey, "test-request-id")

	return c, w, &logs
}

// parseErrorResponse parses the JSON response into an ErrorResponse struct.
func parseErrorResponse(t *testing.T, body *bytes.Buffer) ErrorResponse {
	var response ErrorResponse
	err := json.Unmarshal(body.Bytes(), &response)
	require.NoError(t, err, "Failed to parse error response JSON")
	return response
}

func TestNotFound(t *testing.T) {
	c, w, logs := setupTestContext()

	NotFound(c, "Editor session not found")

	assert.Equal(t, http.StatusNotFound, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrNotFound, response.Error.Code)
	assert.Equal(t, "Editor session not found", response.Error.Message)
	assert.Equal(t, "test-request-id", response.Error.RequestID)
	assert.Nil(t, response.Error.Details)
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestBadRequest(t *testing.T) {
	t.Run("without details", func(t *testing.T) {
		c, w, _ := setupTestContext()

		BadRequest(c, "Invalid input", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, ErrBadRequest, response.Error.Code)
		assert.Nil(t, response.Error.Details)
	})

	t.Run("with details", func(t *testing.T) {
		c, w, _ := setupTestContext()

		BadRequest(c, "Invalid coordinate", map[string]interface{}{"lat": "out of range"})

		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, "Invalid coordinate", response.Error.Message)
		assert.Equal(t, "out of range", response.Error.Details["lat"])
	})
}

func TestConflict(t *testing.T) {
	c, w, _ := setupTestContext()

	Conflict(c, "Boundary is not committed", map[string]interface{}{"mode": "drawing"})

	assert.Equal(t, http.StatusConflict, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrConflict, response.Error.Code)
	assert.Equal(t, "drawing", response.Error.Details["mode"])
}

func TestInvalidGeometry(t *testing.T) {
	c, w, _ := setupTestContext()

	InvalidGeometry(c, errors.New("ring is not closed"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrInvalidGeometry, response.Error.Code)
	assert.Equal(t, "ring is not closed", response.Error.Details["reason"])
}

func TestSessionExpired(t *testing.T) {
	c, w, _ := setupTestContext()

	SessionExpired(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrSessionExpired, response.Error.Code)
}

func TestInternalServerError(t *testing.T) {
	c, w, logs := setupTestContext()

	InternalServerError(c, "An unexpected error occurred", errors.New("database connection failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrInternalServer, response.Error.Code)
	assert.Equal(t, "An unexpected error occurred", response.Error.Message)
	assert.NotContains(t, w.Body.String(), "database connection failed", "Expected cause to stay out of the response")
	assert.Contains(t, logs.String(), "database connection failed")
}

func TestUpstreamError(t *testing.T) {
	t.Run("uses server message", func(t *testing.T) {
		c, w, logs := setupTestContext()

		UpstreamError(c, &farmapi.APIError{StatusCode: http.StatusServiceUnavailable, Message: "Maintenance in progress"})

		assert.Equal(t, http.StatusBadGateway, w.Code)
		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, ErrUpstream, response.Error.Code)
		assert.Equal(t, "Maintenance in progress", response.Error.Message)
		assert.Contains(t, logs.String(), `"upstream_status":503`)
	})

	t.Run("falls back for transport errors", func(t *testing.T) {
		c, w, _ := setupTestContext()

		UpstreamError(c, fmt.Errorf("%w: connection refused", farmapi.ErrUnavailable))

		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, farmapi.FallbackMessage, response.Error.Message)
	})
}

func TestFarmAPI(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		status   int
		message  string
	}{
		{
			name:     "session expired",
			err:      fmt.Errorf("list parcels: %w", farmapi.ErrSessionExpired),
			wantCode: ErrSessionExpired,
			status:   http.StatusUnauthorized,
		},
		{
			name:     "invalid boundary",
			err:      fmt.Errorf("%w: ring is not closed", farmapi.ErrInvalidBoundary),
			wantCode: ErrInvalidGeometry,
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "not found",
			err:      &farmapi.APIError{StatusCode: http.StatusNotFound, Message: "Not found."},
			wantCode: ErrNotFound,
			status:   http.StatusNotFound,
			message:  "Not found.",
		},
		{
			name:     "rejected input",
			err:      &farmapi.APIError{StatusCode: http.StatusBadRequest, Message: "name: This field may not be blank."},
			wantCode: ErrBadRequest,
			status:   http.StatusBadRequest,
			message:  "name: This field may not be blank.",
		},
		{
			name:     "rejected credentials",
			err:      &farmapi.APIError{StatusCode: http.StatusUnauthorized, Message: "No active account found with the given credentials"},
			wantCode: ErrUnauthorized,
			status:   http.StatusUnauthorized,
			message:  "No active account found with the given credentials",
		},
		{
			name:     "server failure",
			err:      &farmapi.APIError{StatusCode: http.StatusInternalServerError, Message: farmapi.FallbackMessage},
			wantCode: ErrUpstream,
			status:   http.StatusBadGateway,
			message:  farmapi.FallbackMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w, _ := setupTestContext()

			FarmAPI(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			response := parseErrorResponse(t, w.Body)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, response.Error.Message)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	c, w, _ := setupTestContext()

	type point struct {
		Lat float64 `validate:"latitude"`
		Lng float64 `validate:"longitude"`
	}

	err := validator.New().Struct(point{Lat: 91, Lng: 9})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	ValidationError(c, validationErrors)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrValidation, response.Error.Code)
	assert.Equal(t, "Validation failed for one or more fields", response.Error.Message)
	assert.Equal(t, "Must be a latitude between -90 and 90", response.Error.Details["Lat"])
	assert.NotContains(t, response.Error.Details, "Lng")
}

func TestFormatValidationError(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		param    string
		expected string
	}{
		{name: "required", tag: "required", expected: "This field is required"},
		{name: "email", tag: "email", expected: "Must be a valid email address"},
		{name: "min", tag: "min", param: "8", expected: "Value is too short or small (minimum: 8)"},
		{name: "max", tag: "max", param: "255", expected: "Value is too long or large (maximum: 255)"},
		{name: "gte", tag: "gte", param: "0", expected: "Must be greater than or equal to 0"},
		{name: "lte", tag: "lte", param: "22", expected: "Must be less than or equal to 22"},
		{name: "oneof", tag: "oneof", param: "place move", expected: "Must be one of: place move"},
		{name: "latitude", tag: "latitude", expected: "Must be a latitude between -90 and 90"},
		{name: "longitude", tag: "longitude", expected: "Must be a longitude between -180 and 180"},
		{name: "eqfield", tag: "eqfield", param: "Password", expected: "Must match Password"},
		{name: "unknown", tag: "unknown_tag", expected: "Validation failed for tag: unknown_tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatValidationError(&mockFieldError{tag: tt.tag, param: tt.param})
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestErrorResponseWithoutContext(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	UpstreamError(c, farmapi.ErrUnavailable)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "request_id", "Expected request ID to be omitted when not in context")
}

// mockFieldError is a mock implementation of validator.FieldError for testing.
type mockFieldError struct {
	tag   string
	param string
}

func (m *mockFieldError) Tag() string                    { return m.tag }
func (m *mockFieldError) ActualTag() string              { return m.tag }
func (m *mockFieldError) Namespace() string              { return "" }
func (m *mockFieldError) StructNamespace() string        { return "" }
func (m *mockFieldError) Field() string                  { return "TestField" }
func (m *mockFieldError) StructField() string            { return "TestField" }
func (m *mockFieldError) Value() interface{}             { return nil }
func (m *mockFieldError) Param() string                  { return m.param }
func (m *mockFieldError) Kind() reflect.Kind             { return reflect.String }
func (m *mockFieldError) Type() reflect.Type             { return nil }
func (m *mockFieldError) Translate(ut.Translator) string { return "" }
func (m *mockFieldError) Error() string                  { return "" }
