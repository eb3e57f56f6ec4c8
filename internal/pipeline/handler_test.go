package pipeline

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patent-backend/internal/analyses"
	"patent-backend/internal/shared/storage/object/local"
	"patent-backend/internal/upstream"
)

func newPipelineRouter(h *harness, withUploads bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(h.orch, nil)
	if withUploads {
		handler.Uploads = local.New(h.uploadDir)
	}
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAnalyzePatentEndpoint(t *testing.T) {
	h := newHarness(t, newScriptedGenerator(ok(noveltyJSON), ok(inventivenessJSON), ok(utilityJSON)))
	r := newPipelineRouter(h, false)

	resp := postJSON(t, r, "/api/v1/analyze-patent", batteryRequest)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(82), body["overall_score"])
	assert.Equal(t, "建议继续推进专利申请", body["recommendation"])
	assert.Equal(t, "Patent analysis completed successfully", body["message"])
	assert.NotEmpty(t, body["analysis_id"])
}

func TestAnalyzePatentEndpointProviderFailure(t *testing.T) {
	overloaded := &upstream.ServiceError{Provider: "fake", StatusCode: 500, Message: "model overloaded"}
	h := newHarness(t, newScriptedGenerator(ok(noveltyJSON), ok(inventivenessJSON), stageReply{err: overloaded}))
	r := newPipelineRouter(h, false)

	resp := postJSON(t, r, "/api/v1/analyze-patent", batteryRequest)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "model overloaded", body.Error)
}

func TestAnalyzePatentEndpointValidation(t *testing.T) {
	h := newHarness(t, newScriptedGenerator(ok(noveltyJSON), ok(inventivenessJSON), ok(utilityJSON)))
	r := newPipelineRouter(h, false)

	resp := postJSON(t, r, "/api/v1/analyze-patent", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "missing required fields")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-patent", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	bad := httptest.NewRecorder()
	r.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestStartAnalysisEndpointAccepted(t *testing.T) {
	h := newHarness(t, newScriptedGenerator(ok(noveltyJSON), ok(inventivenessJSON), ok(utilityJSON)))
	r := newPipelineRouter(h, false)

	resp := postJSON(t, r, "/api/v1/analyses", batteryRequest)
	require.Equal(t, http.StatusAccepted, resp.Code)
	var body struct {
		AnalysisID string `json:"analysis_id"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, analyses.StatusProcessing, body.Status)

	h.orch.Wait()
	awr, err := h.store.GetAnalysisWithReports(t.Context(), body.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, analyses.StatusCompleted, awr.Analysis.Status)
}

func TestProgressEndpointDuringRun(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, newScriptedGenerator(
		stageReply{text: noveltyJSON, tokens: 10, block: gate},
		ok(inventivenessJSON),
		ok(utilityJSON),
	))
	h.orch.StageTimeout = 5 * time.Second
	r := newPipelineRouter(h, false)
	analyses.NewHandler(h.store).RegisterRoutes(r.Group("/api/v1"))

	resp := postJSON(t, r, "/api/v1/analyses", batteryRequest)
	require.Equal(t, http.StatusAccepted, resp.Code)
	var started struct {
		AnalysisID string `json:"analysis_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &started))

	readProgress := func() analyses.Progress {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+started.AnalysisID+"/progress?user_id=user-1", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var p analyses.Progress
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		return p
	}

	mid := readProgress()
	assert.Equal(t, started.AnalysisID, mid.AnalysisID)
	assert.Equal(t, analyses.StatusProcessing, mid.Status)
	assert.Equal(t, 0, mid.Progress)
	assert.Equal(t, analyses.ReportNovelty, mid.CurrentStep)
	assert.Empty(t, mid.CompletedReports)

	close(gate)
	h.orch.Wait()

	done := readProgress()
	assert.Equal(t, analyses.StatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Empty(t, done.CurrentStep)
	assert.Len(t, done.CompletedReports, len(analyses.ReportTypes))
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
		hdr["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-patent/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeUploadUsesFileAsTechnicalContent(t *testing.T) {
	h := newHarness(t, newScriptedGenerator(ok(noveltyJSON), ok(inventivenessJSON), ok(utilityJSON)))
	h.uploadDir = t.TempDir()
	r := newPipelineRouter(h, true)

	fields := map[string]string{
		"title":           batteryRequest.Title,
		"description":     batteryRequest.Description,
		"technical_field": batteryRequest.TechnicalField,
		"user_id":         batteryRequest.UserID,
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, multipartUpload(t, fields, "disclosure.txt", "text/plain", []byte("Ceramic layer\n\nwith lithium doping")))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, h.gen.prompt(StageUtility), "技术内容：Ceramic layer\n\nwith lithium doping")

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, multipartUpload(t, fields, "photo.png", "image/png", []byte{0x89, 0x50}))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, multipartUpload(t, fields, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
