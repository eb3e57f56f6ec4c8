package respond

import (
	"github.com/gin-gonic/gin"

	"patent-backend/internal/shared/telemetry"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error logs and sends a standardized error response. 5xx responses log at
// error level, client errors at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString(KeyRequestID),
	}
	if analysisID := c.GetString(KeyAnalysisID); analysisID != "" {
		fields["analysis_id"] = analysisID
	}
	if userID := c.GetString(KeyUserID); userID != "" {
		fields["user_id"] = userID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
