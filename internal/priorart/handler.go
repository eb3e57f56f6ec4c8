package priorart

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"patent-backend/internal/shared/server/respond"
)

// Searcher is the degrade-gracefully lookup used by handlers and the pipeline.
type Searcher interface {
	Search(ctx context.Context, query string) []Item
}

// Handler exposes prior-art lookup over HTTP.
type Handler struct {
	Searcher Searcher
}

// NewHandler constructs a Handler.
func NewHandler(s Searcher) *Handler {
	return &Handler{Searcher: s}
}

// RegisterRoutes attaches prior-art routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/prior-art", h.search)
}

func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "q is required", nil)
		return
	}
	items := h.Searcher.Search(c.Request.Context(), query)
	respond.OK(c, gin.H{
		"query":   query,
		"results": items,
		"count":   len(items),
	})
}
