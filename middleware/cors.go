package middleware

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a configured CORS middleware. The default is wide open:
// upload clients are arbitrary devices on the same LAN, so there is no
// origin allowlist to speak of unless CORS_ORIGINS narrows one down.
func CORS() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "X-Filename"}

	if corsOrigins := os.Getenv("CORS_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowAllOrigins = true
	}

	return cors.New(config)
}
