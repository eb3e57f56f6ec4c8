package reportexport

import (
	"context"
	"fmt"
	"strings"

	"patent-backend/internal/analyses"
	"patent-backend/internal/shared/storage/object"
	"patent-backend/internal/shared/telemetry"
	"patent-backend/internal/shared/util"
)

// Archiver writes rendered reports to an object store.
type Archiver struct {
	Store  object.Store
	Prefix string
}

// Keys returns the Markdown and HTML object keys for an analysis.
func (a *Archiver) Keys(awr analyses.AnalysisWithReports) (string, string) {
	prefix := a.Prefix
	if strings.Trim(prefix, "/") == "" {
		prefix = "reports"
	}
	base := util.ObjectKey(prefix, awr.Analysis.UserID, awr.Analysis.ID)
	return base + ".md", base + ".html"
}

// Archive renders awr and stores both formats.
func (a *Archiver) Archive(ctx context.Context, awr analyses.AnalysisWithReports) error {
	markdown := Markdown(awr)
	page, err := HTML(awr.Analysis.Title, markdown)
	if err != nil {
		return err
	}
	mdKey, htmlKey := a.Keys(awr)
	if _, err := a.Store.Put(ctx, mdKey, "text/markdown; charset=utf-8", strings.NewReader(markdown), int64(len(markdown))); err != nil {
		return fmt.Errorf("archive %s: %w", mdKey, err)
	}
	if _, err := a.Store.Put(ctx, htmlKey, "text/html; charset=utf-8", strings.NewReader(page), int64(len(page))); err != nil {
		return fmt.Errorf("archive %s: %w", htmlKey, err)
	}
	telemetry.Info("report.archived", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"analysis_id": awr.Analysis.ID,
		"markdown":    mdKey,
		"html":        htmlKey,
	})
	return nil
}
