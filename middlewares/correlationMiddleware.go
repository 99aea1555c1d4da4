package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/professorSergio12/Stock-Broker/utils"
)

const (
	HeaderCorrelationID = "X-Correlation-Id"
	HeaderRequestID     = "X-Request-Id"
)

// CorrelationMiddleware takes the caller's correlation id (or request id) or
// generates one, echoes it back and stores it on the request context together
// with the client IP.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(HeaderCorrelationID))
		if cid == "" {
			cid = strings.TrimSpace(c.GetHeader(HeaderRequestID))
		}
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(HeaderCorrelationID, cid)

		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)
		ctx = utils.SetClientIPInContext(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
