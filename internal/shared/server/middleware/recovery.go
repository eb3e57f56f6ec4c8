package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"patent-backend/internal/shared/metrics"
	"patent-backend/internal/shared/server/respond"
	"patent-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. Nothing is written when
// the handler already started the response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			metrics.IncPanic()
			telemetry.Error("http.panic", map[string]any{
				"request_id":  RequestIDFromContext(c),
				"analysis_id": c.GetString(respond.KeyAnalysisID),
				"error":       rec,
				"stack":       string(debug.Stack()),
				"path":        c.Request.URL.Path,
				"method":      c.Request.Method,
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
