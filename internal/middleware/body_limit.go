package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimit limits the maximum request body size.
// maxBytes is the maximum allowed body size in bytes.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip for GET, HEAD, OPTIONS methods
		if c.Request.Method == http.MethodGet ||
			c.Request.Method == http.MethodHead ||
			c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		// Check Content-Length header first
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
			})
			c.Abort()
			return
		}

		// Wrap the body reader to enforce limit
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		c.Next()
	}
}

// DefaultBodyLimit returns middleware with a 64KB limit; every regular
// request body here is a small JSON document.
func DefaultBodyLimit() gin.HandlerFunc {
	return BodySizeLimit(64 << 10)
}

// ImportBodyLimit returns middleware with a 4MB limit for backup imports,
// the one endpoint that accepts a whole exported tracked list.
func ImportBodyLimit() gin.HandlerFunc {
	return BodySizeLimit(4 << 20)
}
