package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patent-backend/internal/analyses"
	"patent-backend/internal/llm"
	"patent-backend/internal/pipeline"
	"patent-backend/internal/shared/config"
	"patent-backend/internal/shared/storage/db"
)

type cannedGenerator struct{}

func (cannedGenerator) Name() string { return "canned" }

func (cannedGenerator) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	switch {
	case strings.HasPrefix(prompt, "作为专利审查专家"):
		return llm.Completion{Text: `{"analysis":"novel","score":80,"innovations":["a"]}`, TokensUsed: 10}, nil
	case strings.HasPrefix(prompt, "基于新颖性分析结果"):
		return llm.Completion{Text: `{"analysis":"inventive","score":75,"non_obvious":true}`, TokensUsed: 10}, nil
	default:
		return llm.Completion{Text: `{"analysis":"useful","score":90,"industrial_applicability":true}`, TokensUsed: 10}, nil
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:                     "dev",
		ServiceName:             "patent-backend",
		ObjectStoreType:         "local",
		LocalStoreDir:           t.TempDir(),
		SearchEndpoint:          "http://127.0.0.1:1/search.json",
		SearchCacheTTL:          time.Hour,
		StageTimeout:            5 * time.Second,
		RecommendationThreshold: 70,
		UsageCostPer1KTokens:    0.05,
		UsageDefaultTokens:      1000,
	}
}

func TestBuildInMemory(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t), Options{Generator: cannedGenerator{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Nil(t, app.DB)
	assert.IsType(t, &analyses.MemoryStore{}, app.Analyses)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"memory"`)
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	_, err := Build(context.Background(), cfg, Options{Generator: cannedGenerator{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestBuildSQLiteRunsPipeline(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseDriver = db.DriverSQLite
	cfg.DatabaseURL = "file:" + filepath.Join(t.TempDir(), "patent.db")

	app, err := Build(context.Background(), cfg, Options{Generator: cannedGenerator{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	res, err := app.Orchestrator.Run(context.Background(), pipeline.Request{
		Title:            "固态电池隔膜",
		Description:      "陶瓷涂层隔膜",
		TechnicalField:   "电化学",
		TechnicalContent: "在聚烯烃基膜上涂覆陶瓷层",
		UserID:           "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 82, res.OverallScore)

	awr, err := app.Analyses.GetAnalysisWithReports(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, analyses.StatusCompleted, awr.Analysis.Status)
	assert.Len(t, awr.Reports, 4)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}
