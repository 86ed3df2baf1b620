package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OnlyAllowLocal rejects anything not coming from the local machine. The
// API drives process spawning, so it is never exposed beyond loopback.
func OnlyAllowLocal(c *gin.Context) {
	if c.ClientIP() == "127.0.0.1" || c.ClientIP() == "::1" {
		c.Next()
	} else {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}
