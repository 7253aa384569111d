package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
)

// TraceID reuses the caller's X-Trace-Id (falling back to X-Request-Id) or mints one,
// stores it on the context for handlers and echoes it back.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(pkg.HeaderTraceId)
		if utils.IsEmpty(traceID) {
			traceID = c.GetHeader(pkg.HeaderRequestId)
		}
		if utils.IsEmpty(traceID) {
			traceID = uuid.NewString()
		}
		c.Set(pkg.TraceId, traceID)
		c.Writer.Header().Set(pkg.HeaderTraceId, traceID)
		c.Next()
	}
}
