package middleware

import (
	"github.com/gin-gonic/gin"
)

// Security sets baseline response headers. There is no authentication on
// this service; the trust boundary is the LAN itself, which is a
// documented, deliberate risk.
func Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	}
}
