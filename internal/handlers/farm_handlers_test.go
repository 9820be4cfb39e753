package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/stwalsh4118/farmboard/internal/errors"
	"github.com/stwalsh4118/farmboard/internal/farmapi"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/mapview"
	"github.com/stwalsh4118/farmboard/internal/services"
	"github.com/stwalsh4118/farmboard/internal/weather"
)

func TestMeasure(t *testing.T) {
	router := newTestRouter()
	router.POST("/api/v1/measure", Measure)

	tests := []struct {
		name        string
		vertices    []geo.Coordinate
		wantRingLen int
		wantArea    string
		positive    bool
	}{
		{
			name:        "triangle is closed and measured",
			vertices:    []geo.Coordinate{geo.LatLng(36, 10), geo.LatLng(36, 10.01), geo.LatLng(36.01, 10.01)},
			wantRingLen: 4,
			positive:    true,
		},
		{
			name:        "already closed ring gains nothing",
			vertices:    []geo.Coordinate{geo.LatLng(36, 10), geo.LatLng(36, 10.01), geo.LatLng(36.01, 10.01), geo.LatLng(36, 10)},
			wantRingLen: 4,
			positive:    true,
		},
		{
			name:        "two points measure zero",
			vertices:    []geo.Coordinate{geo.LatLng(36, 10), geo.LatLng(36, 10.01)},
			wantRingLen: 0,
			wantArea:    "0.00 ha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(t, router, http.MethodPost, "/api/v1/measure", MeasureRequest{Vertices: tt.vertices}, false)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var response MeasureResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Len(t, response.Ring, tt.wantRingLen)
			if tt.wantArea != "" {
				assert.Equal(t, tt.wantArea, response.Measurement.Area)
				assert.Equal(t, "0.00 km", response.Measurement.Perimeter)
			}
			if tt.positive {
				assert.Greater(t, response.Values.AreaHectares, 0.0)
				assert.Greater(t, response.Values.PerimeterKm, 0.0)
			}
		})
	}

	t.Run("invalid vertex", func(t *testing.T) {
		w := request(t, router, http.MethodPost, "/api/v1/measure",
			MeasureRequest{Vertices: []geo.Coordinate{geo.LatLng(36, 200)}}, false)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, apierrors.ErrBadRequest, detail.Code)
		assert.EqualValues(t, 0, detail.Details["vertex"])
	})

	t.Run("missing vertices", func(t *testing.T) {
		w := request(t, router, http.MethodPost, "/api/v1/measure", map[string]string{}, false)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrValidation, decodeError(t, w).Code)
	})
}

func testView() mapview.View {
	entities := []mapview.Entity{
		{ID: "42", Name: "North field", Kind: mapview.KindParcel, Ring: geo.Ring{geo.LatLng(36, 10), geo.LatLng(36, 10.01), geo.LatLng(36.01, 10.01)}},
		{ID: "t1", Name: "Tractor", Kind: mapview.KindEquipment, Point: &geo.Coordinate{Lat: 36.2, Lng: 10.2}},
	}
	return mapview.Compute(entities, mapview.DefaultOptions())
}

func TestMapHandler(t *testing.T) {
	service := new(MockMapService)
	service.On("View", mock.Anything, withSession()).Return(testView(), nil)
	handler := NewMapHandler(service)

	router := newTestRouter()
	router.GET("/api/v1/map/view", handler.View)
	router.GET("/api/v1/map/geojson", handler.GeoJSON)

	t.Run("view", func(t *testing.T) {
		w := request(t, router, http.MethodGet, "/api/v1/map/view", nil, true)

		require.Equal(t, http.StatusOK, w.Code)
		var view mapview.View
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Len(t, view.Markers, 2)
		assert.Len(t, view.Polygons, 1)
		assert.Equal(t, mapview.DefaultFocusedZoom, view.Zoom)
	})

	t.Run("geojson", func(t *testing.T) {
		w := request(t, router, http.MethodGet, "/api/v1/map/geojson", nil, true)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, GeoJSONContentType, w.Header().Get("Content-Type"))

		fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
		require.NoError(t, err)
		require.Len(t, fc.Features, 3)
		assert.Equal(t, "Polygon", fc.Features[0].Geometry.GeoJSONType())
		assert.Equal(t, "parcel", fc.Features[1].Properties["kind"])
		assert.Equal(t, true, fc.Features[1].Properties["derived"])
	})

	t.Run("upstream failure", func(t *testing.T) {
		failing := new(MockMapService)
		failing.On("View", mock.Anything, mock.Anything).
			Return(mapview.View{}, fmt.Errorf("list equipment: %w", farmapi.ErrUnavailable))
		router := newTestRouter()
		router.GET("/api/v1/map/view", NewMapHandler(failing).View)

		w := request(t, router, http.MethodGet, "/api/v1/map/view", nil, true)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, farmapi.FallbackMessage, decodeError(t, w).Message)
	})
}

func TestWeatherHandler(t *testing.T) {
	fallback := geo.LatLng(mapview.DefaultCenterLat, mapview.DefaultCenterLng)

	tests := []struct {
		name       string
		query      string
		wantAt     *geo.Coordinate
		wantStatus int
	}{
		{name: "explicit coordinate", query: "?lat=36.8&lng=10.18", wantAt: &geo.Coordinate{Lat: 36.8, Lng: 10.18}, wantStatus: http.StatusOK},
		{name: "zero is a valid coordinate", query: "?lat=0&lng=0", wantAt: &geo.Coordinate{}, wantStatus: http.StatusOK},
		{name: "no coordinate uses the region center", query: "", wantAt: &fallback, wantStatus: http.StatusOK},
		{name: "latitude out of range", query: "?lat=91&lng=10", wantStatus: http.StatusBadRequest},
		{name: "longitude without latitude", query: "?lng=10", wantStatus: http.StatusBadRequest},
		{name: "not a number", query: "?lat=north&lng=10", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockWeatherReporter)
			if tt.wantAt != nil {
				service.On("Report", mock.Anything, *tt.wantAt).Return(weather.Sample(*tt.wantAt, time.Now()), nil)
			}
			router := newTestRouter()
			router.GET("/api/v1/weather", NewWeatherHandler(service, fallback).Weather)

			w := request(t, router, http.MethodGet, "/api/v1/weather"+tt.query, nil, false)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				var report weather.Report
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
				assert.True(t, report.Sample)
				assert.NotEmpty(t, report.Forecast)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_Summary(t *testing.T) {
	t.Run("summary", func(t *testing.T) {
		dashboard := new(MockDashboardService)
		dashboard.On("Summary", mock.Anything, withSession()).Return(&services.Dashboard{
			Counts:      services.Counts{Parcels: 2, Inputs: 3},
			TotalAreaHa: 15.44,
			LowStock:    []farmapi.Input{{ID: "i1", Name: "Urea"}},
		}, nil)
		router := newTestRouter()
		router.GET("/api/v1/dashboard", NewDashboardHandler(dashboard, new(MockInventoryService)).Summary)

		w := request(t, router, http.MethodGet, "/api/v1/dashboard", nil, true)

		require.Equal(t, http.StatusOK, w.Code)
		var summary services.Dashboard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 2, summary.Counts.Parcels)
		assert.InDelta(t, 15.44, summary.TotalAreaHa, 1e-9)
		assert.Len(t, summary.LowStock, 1)
	})

	t.Run("expired session", func(t *testing.T) {
		dashboard := new(MockDashboardService)
		dashboard.On("Summary", mock.Anything, mock.Anything).Return(nil, farmapi.ErrSessionExpired)
		router := newTestRouter()
		router.GET("/api/v1/dashboard", NewDashboardHandler(dashboard, new(MockInventoryService)).Summary)

		w := request(t, router, http.MethodGet, "/api/v1/dashboard", nil, true)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apierrors.ErrSessionExpired, decodeError(t, w).Code)
	})
}

func TestDashboardHandler_Inputs(t *testing.T) {
	items := []services.StockItem{{Input: farmapi.Input{ID: "i1", Name: "Urea"}, LowStock: true}}

	tests := []struct {
		name    string
		query   string
		lowOnly bool
	}{
		{name: "all inputs", query: "", lowOnly: false},
		{name: "low stock only", query: "?low=true", lowOnly: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inventory := new(MockInventoryService)
			inventory.On("ListInputs", mock.Anything, withSession(), tt.lowOnly).Return(items, nil)
			router := newTestRouter()
			router.GET("/api/v1/inventory/inputs", NewDashboardHandler(new(MockDashboardService), inventory).Inputs)

			w := request(t, router, http.MethodGet, "/api/v1/inventory/inputs"+tt.query, nil, true)

			require.Equal(t, http.StatusOK, w.Code)
			var response InputsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, 1, response.Count)
			assert.True(t, response.Inputs[0].LowStock)
			inventory.AssertExpectations(t)
		})
	}

	t.Run("invalid flag", func(t *testing.T) {
		router := newTestRouter()
		router.GET("/api/v1/inventory/inputs", NewDashboardHandler(new(MockDashboardService), new(MockInventoryService)).Inputs)

		w := request(t, router, http.MethodGet, "/api/v1/inventory/inputs?low=maybe", nil, true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
