package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"atsengine/internal/analysis"
	"atsengine/internal/common"
	"atsengine/internal/config"
	appErrors "atsengine/internal/errors"
	"atsengine/internal/improver"
	"atsengine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resumeText = `Jane Doe
jane.doe@example.com | +1 415 555 0100

SUMMARY
Backend engineer with 6 years of experience building payment systems.

EXPERIENCE
Senior Software Engineer, Acme Corp
Jan 2020 - Present
- Led migration of 40 services to Kubernetes, cutting deploy time by 60%

EDUCATION
B.S. Computer Science, State University, 2017

SKILLS
Go, Python, PostgreSQL, Kubernetes, Docker
`

type fakeRewriter struct {
	calls int
	last  types.RewriteRequest
}

func (f *fakeRewriter) Rewrite(_ context.Context, req types.RewriteRequest) (string, error) {
	f.calls++
	f.last = req
	return req.Text + "\n- Reduced p99 latency by 35% across 12 services\n", nil
}

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		App: config.AppConfig{
			MaxFileSize:     1 << 20,
			DefaultIndustry: "technology",
		},
		Renderer: config.RendererConfig{Format: "markdown"},
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, http.Handler) {
	t.Helper()
	cfg := baseConfig()
	if mutate != nil {
		mutate(cfg)
	}
	engine, err := common.NewEngine(context.Background(), cfg, nil, common.EngineOptions{Version: "test"})
	require.NoError(t, err)

	srv := NewServer(engine, "test", nil)
	t.Cleanup(func() {
		srv.cleanupRateLimiter()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = engine.Close(ctx)
	})
	return srv, srv.Handler()
}

func postJSON(t *testing.T, h http.Handler, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, content []byte, industry string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if industry != "" {
		require.NoError(t, mw.WriteField("industry", industry))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthWithoutAI(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, false, body["ai_models"].(map[string]any)["enabled"])
}

func TestStatsAndTemplates(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
	assert.Equal(t, map[string]any{"enabled": false}, stats["cache"])
	assert.Empty(t, stats["circuit_breakers"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var templates struct {
		Templates []string `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	assert.Subset(t, templates.Templates, types.TemplateIDs)
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyze(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText, Industry: "Technology"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var analysis types.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.NotEmpty(t, analysis.ID)
	assert.Equal(t, "technology", analysis.Industry)
	assert.Equal(t, "jane.doe@example.com", analysis.Parsed.Email)
	assert.Greater(t, analysis.Score.Total, 0)
	require.NotNil(t, analysis.Report)
}

func TestAnalyzeValidation(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/analyze", AnalyzeRequest{Text: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrCodeInvalidRequest, decodeError(t, rec).Code)

	rec = postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText, Industry: strings.Repeat("x", 65)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"text":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"text":`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "resume.txt", []byte(resumeText), "technology"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ID       string               `json:"id"`
		RecordID string               `json:"record_id"`
		Filename string               `json:"filename"`
		Parsed   types.ParsedResume   `json:"parsed"`
		Score    types.ScoreBreakdown `json:"score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RecordID)
	assert.Equal(t, resp.ID, resp.RecordID)
	assert.Equal(t, "resume.txt", resp.Filename)
	assert.Equal(t, "jane.doe@example.com", resp.Parsed.Email)
}

func TestUploadRejections(t *testing.T) {
	_, h := newTestServer(t, func(cfg *config.Config) { cfg.App.MaxFileSize = 256 })

	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
		code     string
	}{
		{"unsupported extension", "resume.exe", []byte("MZ"), http.StatusUnsupportedMediaType, appErrors.ErrCodeUnsupportedFormat},
		{"too large", "resume.txt", bytes.Repeat([]byte("a"), 512), http.StatusRequestEntityTooLarge, appErrors.ErrCodeFileTooLarge},
		{"pdf without header", "resume.pdf", []byte("plain text pretending"), http.StatusUnsupportedMediaType, appErrors.ErrCodeUnsupportedFormat},
		{"filename too long", strings.Repeat("a", 260) + ".txt", []byte("hi"), http.StatusBadRequest, appErrors.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, uploadRequest(t, tt.filename, tt.content, ""))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}

	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestImproveWithoutModel(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/improve", ImproveRequest{Text: resumeText})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, appErrors.ErrCodeModelUnavailable, decodeError(t, rec).Code)
}

func TestImprove(t *testing.T) {
	srv, h := newTestServer(t, nil)
	rewriter := &fakeRewriter{}
	srv.Engine.Improver = improver.New(rewriter, srv.Engine.Analyzer, improver.WithRenderer(srv.Engine.Renderer))

	rec := postJSON(t, h, "/improve", ImproveRequest{Text: resumeText, TemplateID: types.TemplateExecutiveLeadership})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result types.ImprovementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, rewriter.calls)
	assert.Equal(t, "technology", rewriter.last.Industry)
	assert.Greater(t, result.OriginalScore, 0)
	assert.True(t, result.Strategy.Valid())
	assert.Contains(t, result.ImprovedText, "Reduced p99 latency")
	assert.Equal(t, types.TemplateExecutiveLeadership, result.Document.TemplateID)
	assert.True(t, result.Document.Inline)
}

type countingRecorder struct {
	mu    sync.Mutex
	count int
}

func (c *countingRecorder) Persist(_ context.Context, rec types.PersistedRecord) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return rec.ID, nil
}

func TestImproveDoesNotRecordItsAnalysis(t *testing.T) {
	srv, h := newTestServer(t, nil)
	recorder := &countingRecorder{}
	srv.Engine.Analyzer = analysis.New(srv.Engine.Dictionary, analysis.WithRecorder(recorder))
	srv.Engine.Improver = improver.New(&fakeRewriter{}, srv.Engine.Analyzer)

	rec := postJSON(t, h, "/improve", ImproveRequest{Text: resumeText})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	srv.Engine.Analyzer.Wait()
	assert.Zero(t, recorder.count)

	rec = postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	srv.Engine.Analyzer.Wait()
	assert.Equal(t, 1, recorder.count)
}

func TestImproveKeepsSuppliedScore(t *testing.T) {
	srv, h := newTestServer(t, nil)
	srv.Engine.Improver = improver.New(&fakeRewriter{}, srv.Engine.Analyzer)

	score := 42
	rec := postJSON(t, h, "/improve", ImproveRequest{
		Text:          resumeText,
		Report:        &types.AdvancedReport{ATSScore: 40},
		OriginalScore: &score,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result types.ImprovementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 42, result.OriginalScore)
}

func TestImproveValidation(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/improve", ImproveRequest{Text: resumeText, TemplateID: "neon_brutalist"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	score := 140
	rec = postJSON(t, h, "/improve", ImproveRequest{Text: resumeText, OriginalScore: &score})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	_, h := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.APIKeys = []string{"secret-key-123456"}
	})

	rec := postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText}, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText}, "X-API-Key", "secret-key-123456")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText}, "Authorization", "Bearer secret-key-123456")
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays public
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	srv, h := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})

	rec := postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/analyze", AnalyzeRequest{Text: resumeText})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	stats := srv.RateLimiter.GetStats()
	assert.Equal(t, int64(1), stats["rejected_requests"])
	assert.Equal(t, 1, stats["active_limiters"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "bad", nil), http.StatusBadRequest},
		{appErrors.NewValidationError(appErrors.ErrCodeFileTooLarge, "big", nil), http.StatusRequestEntityTooLarge},
		{appErrors.NewUnsupportedFormat("image/png"), http.StatusUnsupportedMediaType},
		{appErrors.NewExtractionFailed("broken", nil), http.StatusUnprocessableEntity},
		{appErrors.NewModelUnavailable("down", nil), http.StatusServiceUnavailable},
		{appErrors.NewModelTimeout("slow", nil), http.StatusGatewayTimeout},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.9")
	assert.Equal(t, "203.0.113.9", getClientIP(req))

	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}

func TestServerBanner(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.APIKeys = []string{"k1", "k2"}
	})

	var out bytes.Buffer
	srv.writeBanner(&out)

	banner := out.String()
	assert.Contains(t, banner, "POST /improve")
	assert.Contains(t, banner, "(2 keys)")
	assert.Contains(t, banner, "Model: not configured")
	assert.Contains(t, banner, "Storage: none")
}
