package reportexport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"patent-backend/internal/analyses"
	"patent-backend/internal/shared/server/respond"
)

// Loader fetches the analysis to export.
type Loader interface {
	GetAnalysisWithReports(ctx context.Context, analysisID string) (analyses.AnalysisWithReports, error)
}

// Handler serves rendered reports.
type Handler struct {
	Loader Loader
}

// NewHandler constructs a Handler.
func NewHandler(loader Loader) *Handler {
	return &Handler{Loader: loader}
}

// RegisterRoutes attaches export routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses/:id/export", h.export)
}

func (h *Handler) export(c *gin.Context) {
	analysisID := strings.TrimSpace(c.Param("id"))
	userID := strings.TrimSpace(c.Query("user_id"))
	respond.Tag(c, userID, analysisID)

	format := strings.ToLower(c.DefaultQuery("format", "md"))
	if format != "md" && format != "html" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "format must be md or html", nil)
		return
	}

	awr, err := h.Loader.GetAnalysisWithReports(c.Request.Context(), analysisID)
	if err == nil && !analyses.OwnedBy(awr.Analysis, userID) {
		err = analyses.ErrNotFound
	}
	if err != nil {
		switch {
		case errors.Is(err, analyses.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}

	markdown := Markdown(awr)
	if format == "md" {
		c.Header("Content-Disposition", `attachment; filename="`+awr.Analysis.ID+`.md"`)
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(markdown))
		return
	}
	page, err := HTML(awr.Analysis.Title, markdown)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
