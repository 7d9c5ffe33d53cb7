package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HostGuard rejects requests whose Host header does not name the loopback
// interface. The daemon only listens on 127.0.0.1, but a browser lured to a
// hostile domain can still reach it through DNS rebinding; the Host header
// survives that trick, so pinning it closes the hole.
func HostGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}

		if !IsLoopbackHost(host) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden host"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IsLoopbackHost reports whether a host name refers to the local machine.
func IsLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
