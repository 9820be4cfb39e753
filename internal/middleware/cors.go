package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the dashboard origins. The farm-session headers are allowed on
// requests and exposed on responses so the browser can pick up rotated tokens.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			RequestIDHeader, RefreshTokenHeader,
		},
		ExposeHeaders:    []string{RequestIDHeader, AccessTokenHeader, RefreshTokenHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
}
