package respond

import "github.com/gin-gonic/gin"

// Gin context keys read by the request logger and Error.
const (
	KeyRequestID        = "requestId"
	KeyUserID           = "userId"
	KeyAnalysisID       = "analysisId"
	KeyStatusTransition = "statusTransition"
)

// Tag records the user and analysis a request acts on. Empty values are skipped.
func Tag(c *gin.Context, userID, analysisID string) {
	if userID != "" {
		c.Set(KeyUserID, userID)
	}
	if analysisID != "" {
		c.Set(KeyAnalysisID, analysisID)
	}
}

// Transition records the analysis status change a request caused, e.g. "processing->completed".
func Transition(c *gin.Context, from, to string) {
	c.Set(KeyStatusTransition, from+"->"+to)
}
