package middleware

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/farmboard/internal/farmapi"
)

const (
	// FarmSessionKey is the context key for the caller's Farm API session.
	FarmSessionKey = "farm_session"

	// RefreshTokenHeader carries the refresh token on requests and the rotated one
	// on responses.
	RefreshTokenHeader = "X-Refresh-Token"
	// AccessTokenHeader carries a rotated access token on responses.
	AccessTokenHeader = "X-Access-Token"
)

// FarmSession builds a Farm API session from the bearer token and the refresh
// token header. When the client refreshes the session mid-request, the new tokens
// are returned as response headers. Requests without a bearer token get no session.
func FarmSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		access := bearerToken(c.GetHeader("Authorization"))
		if access == "" {
			c.Next()
			return
		}

		// Fan-out handlers may rotate from several goroutines at once
		var mu sync.Mutex
		sess := farmapi.NewSession(access, c.GetHeader(RefreshTokenHeader))
		sess.OnRefresh(func(t farmapi.Tokens) {
			mu.Lock()
			defer mu.Unlock()
			c.Header(AccessTokenHeader, t.Access)
			c.Header(RefreshTokenHeader, t.Refresh)
		})
		c.Set(FarmSessionKey, sess)

		c.Next()
	}
}

// GetFarmSession returns the request's Farm API session, or nil when the request
// carried no bearer token.
func GetFarmSession(c *gin.Context) *farmapi.Session {
	if v, exists := c.Get(FarmSessionKey); exists {
		if sess, ok := v.(*farmapi.Session); ok {
			return sess
		}
	}
	return nil
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
