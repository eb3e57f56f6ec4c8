package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"patent-backend/internal/shared/metrics"
	"patent-backend/internal/shared/server/respond"
	"patent-backend/internal/shared/telemetry"
)

// Logging emits one structured log line per request and counts the response
// by status class. Preflight and metrics scrapes are not logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		metrics.IncHTTPResponse(status)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.FullPath(),
			"status":            status,
			"status_transition": c.GetString(respond.KeyStatusTransition),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           c.GetString(respond.KeyUserID),
			"analysis_id":       c.GetString(respond.KeyAnalysisID),
			"client_ip":         c.ClientIP(),
		}
		if fields["path"] == "" {
			fields["path"] = c.Request.URL.Path
		}
		if status >= http.StatusInternalServerError {
			telemetry.Warn("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
