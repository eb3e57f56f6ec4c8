package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/boom", func(c *gin.Context) {
		Error(c, http.StatusInternalServerError, "upstream_error", "quota exceeded", nil)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "quota exceeded" {
		t.Fatalf("unexpected error field: %v", body["error"])
	}
	if body["code"] != "upstream_error" {
		t.Fatalf("unexpected code field: %v", body["code"])
	}
	if _, ok := body["details"]; ok {
		t.Fatalf("details should be omitted when nil")
	}
}

func TestTagAndTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	Tag(c, "", "analysis-1")
	Transition(c, "processing", "failed")

	if _, ok := c.Get(KeyUserID); ok {
		t.Fatalf("empty user id should not be stored")
	}
	if got := c.GetString(KeyAnalysisID); got != "analysis-1" {
		t.Fatalf("unexpected analysis id: %q", got)
	}
	if got := c.GetString(KeyStatusTransition); got != "processing->failed" {
		t.Fatalf("unexpected transition: %q", got)
	}
}
