package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReadinessGate answers 503 until ready reports true. The server starts
// listening before the record store is connected; /healthz and / always pass.
func ReadinessGate(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/healthz", "/":
			c.Next()
			return
		}
		if !ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Service is starting"})
			return
		}
		c.Next()
	}
}
