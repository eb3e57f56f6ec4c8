package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"patent-backend/internal/analyses"
	"patent-backend/internal/extract"
	"patent-backend/internal/shared/server/respond"
	"patent-backend/internal/shared/storage/object"
	"patent-backend/internal/shared/util"
)

const (
	maxUploadBytes   = 10 << 20
	completedMessage = "Patent analysis completed successfully"
)

// Runner starts pipeline runs.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
	RunAsync(ctx context.Context, req Request) (analyses.Analysis, error)
}

// Handler exposes the pipeline trigger endpoints.
type Handler struct {
	Runner Runner
	// Uploads keeps the original disclosure files. Optional.
	Uploads object.Store
}

// NewHandler constructs a Handler.
func NewHandler(runner Runner, uploads object.Store) *Handler {
	return &Handler{Runner: runner, Uploads: uploads}
}

// RegisterRoutes attaches pipeline routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze-patent", h.analyze)
	rg.POST("/analyze-patent/upload", h.analyzeUpload)
	rg.POST("/analyses", h.startAnalysis)
}

func (h *Handler) analyze(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	h.run(c, req)
}

func (h *Handler) startAnalysis(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	respond.Tag(c, req.UserID, "")

	a, err := h.Runner.RunAsync(c.Request.Context(), req)
	if err != nil {
		writeRunError(c, err)
		return
	}
	respond.Tag(c, "", a.ID)
	respond.Transition(c, "pending", "processing")
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysis_id": a.ID,
		"status":      a.Status,
	})
}

func (h *Handler) analyzeUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fh.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB", nil)
		return
	}
	name, err := util.SanitizeFileName(fh.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unreadable file", nil)
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	_ = f.Close()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unreadable file", nil)
		return
	}

	req := Request{
		Title:          c.PostForm("title"),
		Description:    c.PostForm("description"),
		TechnicalField: c.PostForm("technical_field"),
		UserID:         c.PostForm("user_id"),
	}
	mimeType := fh.Header.Get("Content-Type")
	ctx := c.Request.Context()

	var text string
	if h.Uploads != nil {
		key := util.ObjectKey("disclosures", req.UserID, uuid.NewString()+"-"+name)
		if _, err := h.Uploads.Put(ctx, key, mimeType, bytes.NewReader(data), int64(len(data))); err != nil {
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to store disclosure", nil)
			return
		}
		text, err = extract.FromStore(ctx, h.Uploads, key, mimeType, name)
	} else {
		text, err = extract.TextFromBytes(ctx, data, mimeType, name)
	}
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupported):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file", "file must be PDF, DOCX or text", nil)
		case errors.Is(err, extract.ErrEmpty):
			respond.Error(c, http.StatusBadRequest, "validation_error", "file contains no text", nil)
		default:
			respond.Error(c, http.StatusBadRequest, "extract_failed", "could not read text from file", nil)
		}
		return
	}
	req.TechnicalContent = text
	h.run(c, req)
}

func (h *Handler) run(c *gin.Context, req Request) {
	respond.Tag(c, req.UserID, "")
	res, err := h.Runner.Run(c.Request.Context(), req)
	if err != nil {
		writeRunError(c, err)
		return
	}
	respond.Tag(c, "", res.AnalysisID)
	respond.Transition(c, "processing", "completed")
	respond.OK(c, gin.H{
		"analysis_id":    res.AnalysisID,
		"status":         res.Status,
		"overall_score":  res.OverallScore,
		"recommendation": res.Recommendation,
		"message":        completedMessage,
	})
}

func writeRunError(c *gin.Context, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		respond.Error(c, http.StatusBadRequest, "validation_error", ve.Error(), gin.H{"fields": ve.Fields})
		return
	}
	var se *StageError
	if errors.As(err, &se) {
		if se.AnalysisID != "" {
			respond.Tag(c, "", se.AnalysisID)
			respond.Transition(c, "processing", "failed")
		}
		respond.Error(c, http.StatusInternalServerError, se.Stage+"_failed", sanitizeError(se.Err), nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", sanitizeError(err), nil)
}
