package analyses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupAnalysesRouter(t *testing.T) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	store.Now = stepClock()
	r := gin.New()
	NewHandler(store).RegisterRoutes(r.Group("/api/v1"))
	return r, store
}

func TestGetAnalysisReturnsReportsWithPercent(t *testing.T) {
	router, store := setupAnalysesRouter(t)
	ctx := context.Background()
	a, err := store.CreateAnalysis(ctx, sampleAnalysis)
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if err := store.SetStatus(ctx, a.ID, StatusProcessing, nil); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := store.AppendReport(ctx, a.ID, ReportInput{Type: ReportNovelty, Content: "novel", ScorePercent: 82}); err != nil {
		t.Fatalf("AppendReport: %v", err)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+a.ID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Analysis Analysis `json:"analysis"`
		Reports  []struct {
			Type         string  `json:"report_type"`
			Score        float64 `json:"score"`
			ScorePercent float64 `json:"score_percent"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Analysis.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", body.Analysis.Status)
	}
	if len(body.Reports) != 1 || body.Reports[0].Score != 0.82 || body.Reports[0].ScorePercent != 82 {
		t.Fatalf("unexpected reports: %+v", body.Reports)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	router, _ := setupAnalysesRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/missing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListAnalyses(t *testing.T) {
	router, store := setupAnalysesRouter(t)
	for i := 0; i < 3; i++ {
		if _, err := store.CreateAnalysis(context.Background(), sampleAnalysis); err != nil {
			t.Fatalf("CreateAnalysis: %v", err)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?user_id=user-1&limit=2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Analyses []Analysis `json:"analyses"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Analyses) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(body.Analyses))
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_id, got %d", resp.Code)
	}
}

func TestGetAnalysisScopedToOwner(t *testing.T) {
	router, store := setupAnalysesRouter(t)
	a, err := store.CreateAnalysis(context.Background(), sampleAnalysis)
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}

	cases := map[string]int{
		"/api/v1/analyses/" + a.ID:                              http.StatusOK,
		"/api/v1/analyses/" + a.ID + "?user_id=user-1":          http.StatusOK,
		"/api/v1/analyses/" + a.ID + "?user_id=user-2":          http.StatusNotFound,
		"/api/v1/analyses/" + a.ID + "/progress?user_id=user-2": http.StatusNotFound,
		"/api/v1/analyses/" + a.ID + "/progress?user_id=user-1": http.StatusOK,
	}
	for path, want := range cases {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != want {
			t.Fatalf("GET %s: expected %d, got %d", path, want, resp.Code)
		}
	}
}

func TestGetProgress(t *testing.T) {
	router, store := setupAnalysesRouter(t)
	ctx := context.Background()
	a, err := store.CreateAnalysis(ctx, sampleAnalysis)
	if err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}

	read := func() Progress {
		t.Helper()
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+a.ID+"/progress", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
		var p Progress
		if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return p
	}

	if p := read(); p.Status != StatusPending || p.Progress != 0 || p.CurrentStep != "" || len(p.CompletedReports) != 0 {
		t.Fatalf("unexpected pending progress: %+v", p)
	}

	if err := store.SetStatus(ctx, a.ID, StatusProcessing, nil); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	for _, rt := range []string{ReportNovelty, ReportInventiveness} {
		if _, err := store.AppendReport(ctx, a.ID, ReportInput{Type: rt, Content: rt, ScorePercent: 80}); err != nil {
			t.Fatalf("AppendReport: %v", err)
		}
	}
	p := read()
	if p.AnalysisID != a.ID || p.Progress != 66 || p.CurrentStep != ReportUtility {
		t.Fatalf("unexpected mid-run progress: %+v", p)
	}
	if len(p.CompletedReports) != 2 || p.CompletedReports[1] != ReportInventiveness {
		t.Fatalf("unexpected completed reports: %v", p.CompletedReports)
	}

	for _, rt := range []string{ReportUtility, ReportComprehensive} {
		if _, err := store.AppendReport(ctx, a.ID, ReportInput{Type: rt, Content: rt, ScorePercent: 80}); err != nil {
			t.Fatalf("AppendReport: %v", err)
		}
	}
	if err := store.SetStatus(ctx, a.ID, StatusCompleted, nil); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if p := read(); p.Status != StatusCompleted || p.Progress != 100 || p.CurrentStep != "" || len(p.CompletedReports) != 4 {
		t.Fatalf("unexpected completed progress: %+v", p)
	}
}
