package handlers

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every handler the API serves.
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Editor    *EditorHandler
	Parcels   *ParcelHandler
	Map       *MapHandler
	Weather   *WeatherHandler
	Dashboard *DashboardHandler
}

// RegisterRoutes mounts the health checks at the root and the API under /api/v1.
func RegisterRoutes(router gin.IRouter, h Handlers) {
	router.GET("/health", h.Health.Health)
	router.GET("/health/ready", h.Health.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", h.Health.Info)
		v1.POST("/measure", Measure)

		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		sessions := v1.Group("/editor/sessions")
		{
			sessions.POST("", h.Editor.Create)
			sessions.GET("/:id", h.Editor.Get)
			sessions.DELETE("/:id", h.Editor.Discard)
			sessions.POST("/:id/events", h.Editor.Apply)
			sessions.POST("/:id/submit", h.Editor.Submit)
		}

		parcels := v1.Group("/parcels")
		{
			parcels.GET("", h.Parcels.List)
			parcels.GET("/:id", h.Parcels.Get)
			parcels.DELETE("/:id", h.Parcels.Delete)
			parcels.POST("/:id/edit", h.Parcels.Edit)
		}

		v1.GET("/map/view", h.Map.View)
		v1.GET("/map/geojson", h.Map.GeoJSON)
		v1.GET("/weather", h.Weather.Weather)
		v1.GET("/dashboard", h.Dashboard.Summary)
		v1.GET("/inventory/inputs", h.Dashboard.Inputs)
	}
}
