package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds response headers appropriate for a JSON-only API.
// There are no pages to frame or scripts to police, so the set is small:
// stop MIME sniffing and keep registry state out of shared caches.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}
