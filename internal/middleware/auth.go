// Package middleware provides HTTP middleware for authentication, request
// hygiene, and logging on the local control API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenQueryParam carries the auth token for WebSocket clients that cannot
// set request headers.
const TokenQueryParam = "token"

// TokenAuth requires every request to present the daemon's API token,
// either as a bearer Authorization header or, for the event stream, as a
// query parameter. Comparison is constant-time; the token never appears in
// logs or error bodies.
func TokenAuth(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		presented := bearerToken(c)
		if presented == "" {
			presented = c.Query(TokenQueryParam)
		}

		if presented == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API token"})
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
