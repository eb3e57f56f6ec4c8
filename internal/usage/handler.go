package usage

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"patent-backend/internal/shared/server/respond"
)

const maxSummaryDays = 365

// Handler exposes usage endpoints.
type Handler struct {
	Ledger Ledger
	Now    func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(ledger Ledger) *Handler {
	return &Handler{Ledger: ledger}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage/:user_id", h.getSummary)
}

func (h *Handler) getSummary(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	respond.Tag(c, userID, "")

	days := 30
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > maxSummaryDays {
			respond.Error(c, http.StatusBadRequest, "validation_error", "days must be between 1 and 365", nil)
			return
		}
		days = parsed
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	summary, err := h.Ledger.Summary(c.Request.Context(), userID, now.AddDate(0, 0, -days))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load usage", nil)
		return
	}
	respond.OK(c, summary)
}
