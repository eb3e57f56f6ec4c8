package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patent-backend/internal/bootstrap"
	"patent-backend/internal/llm"
)

type cannedGenerator struct{}

func (cannedGenerator) Name() string { return "canned" }

func (cannedGenerator) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	switch {
	case strings.HasPrefix(prompt, "作为专利审查专家"):
		return llm.Completion{Text: `{"analysis":"novel","score":80,"innovations":["陶瓷涂层"]}`, TokensUsed: 400}, nil
	case strings.HasPrefix(prompt, "基于新颖性分析结果"):
		return llm.Completion{Text: `{"analysis":"inventive","score":75,"non_obvious":true}`, TokensUsed: 300}, nil
	default:
		return llm.Completion{Text: `{"analysis":"useful","score":90,"industrial_applicability":true}`, TokensUsed: 300}, nil
	}
}

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV", "dev")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(dir, "patent.db"))
	t.Setenv("OBJECT_STORE", "local")
	t.Setenv("LOCAL_STORE_DIR", filepath.Join(dir, "objects"))
	t.Setenv("SERPAPI_API_KEY", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(bootstrap.Options{Generator: cannedGenerator{}})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateReportsVersion(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3 (sqlite)")

	out, err = execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3")
}

func TestAnalyzeShowAndUsage(t *testing.T) {
	setupEnv(t)
	disclosure := filepath.Join(t.TempDir(), "disclosure.txt")
	require.NoError(t, os.WriteFile(disclosure, []byte("在聚烯烃基膜上涂覆陶瓷层"), 0o600))

	out, err := execute(t, "analyze",
		"--title", "固态电池隔膜",
		"--description", "陶瓷涂层隔膜",
		"--field", "电化学",
		"--file", disclosure,
		"--user", "user-9",
	)
	require.NoError(t, err)

	var res struct {
		AnalysisID   string `json:"analysis_id"`
		Status       string `json:"status"`
		OverallScore int    `json:"overall_score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, 82, res.OverallScore)

	out, err = execute(t, "show", res.AnalysisID)
	require.NoError(t, err)
	assert.Contains(t, out, "固态电池隔膜")
	assert.Contains(t, out, "陶瓷涂层")

	out, err = execute(t, "usage", "user-9")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_tokens": 1000`)
}

func TestAnalyzeRejectsMissingFields(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "analyze", "--title", "only a title")
	require.Error(t, err)
}

func TestUsageRejectsBadWindow(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "usage", "user-9", "--days", "0")
	require.Error(t, err)
}

func TestPurgeCache(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "purge-cache")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 0 expired search results")
}
