package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/mapview"
	"github.com/stwalsh4118/farmboard/internal/middleware"
	"github.com/stwalsh4118/farmboard/internal/services"
	"github.com/stwalsh4118/farmboard/internal/weather"
)

const (
	testAccessToken  = "access-1"
	testRefreshToken = "refresh-1"
)

// newTestRouter creates a router with the request-scoped middleware the API uses.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Nop()))
	router.Use(middleware.FarmSession())
	return router
}

// request sends method/path with an optional JSON body. authed adds farm session
// headers.
func request(t *testing.T, router http.Handler, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAccessToken)
		req.Header.Set(middleware.RefreshTokenHeader, testRefreshToken)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeError parses the error envelope.
func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorDetail {
	t.Helper()
	var response apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response.Error
}

// withSession matches the farm session built from the test headers.
func withSession() interface{} {
	return mock.MatchedBy(func(sess *farmapi.Session) bool {
		return sess != nil && sess.Tokens().Access == testAccessToken
	})
}

// MockAuthService is a mock implementation of services.AuthService for testing
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, reg farmapi.Registration) (*farmapi.User, error) {
	args := m.Called(ctx, reg)
	user, _ := args.Get(0).(*farmapi.User)
	return user, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, creds farmapi.Credentials) (farmapi.Tokens, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(farmapi.Tokens), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refresh string) (farmapi.Tokens, error) {
	args := m.Called(ctx, refresh)
	return args.Get(0).(farmapi.Tokens), args.Error(1)
}

// MockParcelService is a mock implementation of services.ParcelService for testing
type MockParcelService struct {
	mock.Mock
}

func (m *MockParcelService) ListParcels(ctx context.Context, sess *farmapi.Session) ([]farmapi.Parcel, error) {
	args := m.Called(ctx, sess)
	parcels, _ := args.Get(0).([]farmapi.Parcel)
	return parcels, args.Error(1)
}

func (m *MockParcelService) GetParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) (*farmapi.Parcel, error) {
	args := m.Called(ctx, sess, id)
	parcel, _ := args.Get(0).(*farmapi.Parcel)
	return parcel, args.Error(1)
}

func (m *MockParcelService) Submit(ctx context.Context, sess *farmapi.Session, sessionID string, details services.ParcelDetails) (*farmapi.Parcel, error) {
	args := m.Called(ctx, sess, sessionID, details)
	parcel, _ := args.Get(0).(*farmapi.Parcel)
	return parcel, args.Error(1)
}

func (m *MockParcelService) DeleteParcel(ctx context.Context, sess *farmapi.Session, id farmapi.ID) error {
	args := m.Called(ctx, sess, id)
	return args.Error(0)
}

// MockMapService is a mock implementation of services.MapService for testing
type MockMapService struct {
	mock.Mock
}

func (m *MockMapService) Entities(ctx context.Context, sess *farmapi.Session) ([]mapview.Entity, error) {
	args := m.Called(ctx, sess)
	entities, _ := args.Get(0).([]mapview.Entity)
	return entities, args.Error(1)
}

func (m *MockMapService) View(ctx context.Context, sess *farmapi.Session) (mapview.View, error) {
	args := m.Called(ctx, sess)
	return args.Get(0).(mapview.View), args.Error(1)
}

// MockDashboardService is a mock implementation of services.DashboardService for testing
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Summary(ctx context.Context, sess *farmapi.Session) (*services.Dashboard, error) {
	args := m.Called(ctx, sess)
	summary, _ := args.Get(0).(*services.Dashboard)
	return summary, args.Error(1)
}

// MockInventoryService is a mock implementation of services.InventoryService for testing
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) ListInputs(ctx context.Context, sess *farmapi.Session, lowOnly bool) ([]services.StockItem, error) {
	args := m.Called(ctx, sess, lowOnly)
	items, _ := args.Get(0).([]services.StockItem)
	return items, args.Error(1)
}

// MockWeatherReporter is a mock implementation of WeatherReporter for testing
type MockWeatherReporter struct {
	mock.Mock
}

func (m *MockWeatherReporter) Report(ctx context.Context, at geo.Coordinate) (*weather.Report, error) {
	args := m.Called(ctx, at)
	report, _ := args.Get(0).(*weather.Report)
	return report, args.Error(1)
}
