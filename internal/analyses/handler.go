package analyses

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"patent-backend/internal/shared/server/respond"
)

// Reader is the read side of Store used by the HTTP read model.
type Reader interface {
	GetAnalysisWithReports(ctx context.Context, analysisID string) (AnalysisWithReports, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
}

// Handler exposes analyses over HTTP.
type Handler struct {
	Store Reader
}

// NewHandler constructs a Handler.
func NewHandler(store Reader) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/analyses/:id/progress", h.getProgress)
}

type reportView struct {
	ID           string         `json:"id"`
	Type         string         `json:"report_type"`
	Content      string         `json:"content"`
	Score        float64        `json:"score"`
	ScorePercent float64        `json:"score_percent"`
	Summary      string         `json:"summary,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (h *Handler) getAnalysis(c *gin.Context) {
	awr, ok := h.load(c)
	if !ok {
		return
	}

	reports := make([]reportView, 0, len(awr.Reports))
	for _, r := range awr.Reports {
		reports = append(reports, reportView{
			ID:           r.ID,
			Type:         r.Type,
			Content:      r.Content,
			Score:        r.Score,
			ScorePercent: r.ScorePercent(),
			Summary:      r.Summary,
			Details:      r.Details,
			CreatedAt:    r.CreatedAt,
		})
	}
	respond.OK(c, gin.H{
		"analysis": awr.Analysis,
		"reports":  reports,
	})
}

func (h *Handler) getProgress(c *gin.Context) {
	awr, ok := h.load(c)
	if !ok {
		return
	}
	respond.OK(c, awr.Progress())
}

// load fetches the analysis named by the path. An optional user_id query
// scopes the read to its owner; a mismatch is reported as not found.
func (h *Handler) load(c *gin.Context) (AnalysisWithReports, bool) {
	analysisID := strings.TrimSpace(c.Param("id"))
	userID := strings.TrimSpace(c.Query("user_id"))
	respond.Tag(c, userID, analysisID)

	awr, err := h.Store.GetAnalysisWithReports(c.Request.Context(), analysisID)
	if err == nil && !OwnedBy(awr.Analysis, userID) {
		err = ErrNotFound
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return AnalysisWithReports{}, false
	}
	return awr, true
}

func (h *Handler) listAnalyses(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "user_id is required", nil)
		return
	}
	respond.Tag(c, userID, "")

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	items, err := h.Store.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}
	respond.OK(c, gin.H{
		"analyses": items,
		"limit":    limit,
		"offset":   offset,
	})
}
