package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoneme/workspace/internal/assistant"
	"github.com/phoneme/workspace/internal/auth"
	"github.com/phoneme/workspace/internal/health"
	"github.com/phoneme/workspace/internal/llm"
	"github.com/phoneme/workspace/internal/metrics"
	"github.com/phoneme/workspace/internal/requestid"
	"github.com/phoneme/workspace/internal/store"
	"github.com/phoneme/workspace/internal/tasktools"
	"github.com/phoneme/workspace/internal/tool"
)

type fakeProvider struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
	err       error
	calls     int
}

func (p *fakeProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	return r, nil
}

func (p *fakeProvider) Name() string    { return "fake" }
func (p *fakeProvider) ModelID() string { return "fake-model" }

type testEnv struct {
	app   *fiber.App
	store *store.Store
	token string
}

type envOptions struct {
	provider  llm.Provider
	rateLimit RateLimitConfig
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	s, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "server.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	me := &store.User{Name: "Sam Lee", Email: "sam@co.com", Active: true}
	require.NoError(t, s.CreateUser(ctx, me))

	reg := tool.NewRegistry()
	tasktools.Register(reg, s, "Office Tasks", logger)
	m := metrics.New()
	orch := assistant.New(opts.provider, reg, assistant.Config{MaxRounds: 4, CallTimeout: 5 * time.Second}, m, logger)

	tokens := auth.NewTokens("test-secret", time.Hour)
	token, _, err := tokens.Issue(me)
	require.NoError(t, err)

	checker := health.NewChecker(logger)
	checker.Register("database", health.PingCheck(s))
	checker.Register("llm", health.ConfiguredCheck(orch.Configured()))

	srv := NewServer(Config{ListenAddr: ":0", RateLimit: opts.rateLimit}, orch,
		auth.NewMiddleware(auth.MiddlewareConfig{Tokens: tokens, Users: s, CookieName: "token", Logger: logger}),
		checker, m, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{app: srv.App(), store: s, token: token}
}

func (e *testEnv) do(t *testing.T, method, path, body string, authed bool) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.AddCookie(&http.Cookie{Name: "token", Value: e.token})
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeProblem(t *testing.T, resp *http.Response) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func TestServer_HealthzEndpoint(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	resp := e.do(t, "GET", "/healthz", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(requestid.Header))
}

func TestServer_RequestIDEchoed(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	req, _ := http.NewRequest("GET", "/healthz", nil)
	req.Header.Set(requestid.Header, "req-123")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(requestid.Header))
}

func TestServer_ReadyzEndpoint(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	resp := e.do(t, "GET", "/readyz", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, health.StatusOK, body.Checks["database"])
	assert.Equal(t, health.StatusDegraded, body.Checks["llm"])
}

func TestServer_ReadyzDatabaseDown(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	require.NoError(t, e.store.Close())

	resp := e.do(t, "GET", "/readyz", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	e.do(t, "GET", "/healthz", "", false)

	resp := e.do(t, "GET", "/metrics", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "workspace_http_requests_total")
}

func TestServer_ChatRequiresAuth(t *testing.T) {
	e := newTestEnv(t, envOptions{provider: &fakeProvider{}})
	resp := e.do(t, "POST", "/api/ai/chat", `{"message":"hi"}`, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, problemContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, "unauthorized", decodeProblem(t, resp).Type)
}

func TestServer_Chat(t *testing.T) {
	p := &fakeProvider{responses: []*llm.CompletionResponse{
		{
			StopReason: llm.StopReasonToolUse,
			ToolCalls:  []llm.ToolCall{{ID: "c1", Name: tasktools.NameCreateTask, Input: json.RawMessage(`{"title":"Order chairs"}`)}},
			Usage:      llm.Usage{InputTokens: 10, OutputTokens: 2},
		},
		{Text: "Created \"Order chairs\".", StopReason: llm.StopReasonEndTurn, Usage: llm.Usage{InputTokens: 20, OutputTokens: 5}},
	}}
	e := newTestEnv(t, envOptions{provider: p})

	resp := e.do(t, "POST", "/api/ai/chat",
		`{"message":"Add a task to order chairs","conversationHistory":[{"role":"user","content":"hello"},{"role":"assistant","content":"Hi!"}]}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Created \"Order chairs\".", body.Response)
	assert.Equal(t, llm.Usage{InputTokens: 30, OutputTokens: 7}, body.Usage)

	n, err := e.store.CountTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServer_Chat_EmptyMessage(t *testing.T) {
	p := &fakeProvider{}
	e := newTestEnv(t, envOptions{provider: p})

	for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`} {
		resp := e.do(t, "POST", "/api/ai/chat", body, true)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "missing_message", decodeProblem(t, resp).Type)
	}
	assert.Zero(t, p.calls)
}

func TestServer_Chat_InvalidBody(t *testing.T) {
	p := &fakeProvider{}
	e := newTestEnv(t, envOptions{provider: p})

	resp := e.do(t, "POST", "/api/ai/chat", `{"message":`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_body", decodeProblem(t, resp).Type)
	assert.Zero(t, p.calls)
}

func TestServer_Chat_NotConfigured(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	resp := e.do(t, "POST", "/api/ai/chat", `{"message":"hi"}`, true)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "ai_not_configured", decodeProblem(t, resp).Type)
}

func TestServer_Chat_ProviderFailure(t *testing.T) {
	e := newTestEnv(t, envOptions{provider: &fakeProvider{err: errors.New("upstream exploded")}})
	resp := e.do(t, "POST", "/api/ai/chat", `{"message":"hi"}`, true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	p := decodeProblem(t, resp)
	assert.Equal(t, "chat_failed", p.Type)
	assert.Contains(t, p.Detail, "upstream exploded")
}

func TestServer_Status(t *testing.T) {
	e := newTestEnv(t, envOptions{provider: &fakeProvider{}})
	resp := e.do(t, "GET", "/api/ai/status", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Configured)
	assert.Equal(t, "fake", body.Provider)
	assert.Equal(t, "fake-model", body.Model)
	assert.Len(t, body.Tools, 6)
}

func TestServer_Status_Unconfigured(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	resp := e.do(t, "GET", "/api/ai/status", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Configured)
	assert.Empty(t, body.Provider)
}

func TestServer_NotFound(t *testing.T) {
	e := newTestEnv(t, envOptions{})
	resp := e.do(t, "GET", "/nope", "", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "request_error", decodeProblem(t, resp).Type)
}

func TestServer_RateLimit(t *testing.T) {
	e := newTestEnv(t, envOptions{rateLimit: RateLimitConfig{RPS: 1, Burst: 2}})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, e.do(t, "GET", "/api/ai/status", "", true).StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Probes are exempt.
	assert.Equal(t, http.StatusOK, e.do(t, "GET", "/healthz", "", false).StatusCode)
}

func TestTokenBucket(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(1, 2, now)
	assert.True(t, b.allow(now))
	assert.True(t, b.allow(now))
	assert.False(t, b.allow(now))
	assert.True(t, b.allow(now.Add(time.Second)))
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{RPS: 1, Burst: 1})
	defer rl.close()

	now := time.Now()
	rl.allow("a", now)
	rl.allow("b", now.Add(20*time.Minute))
	rl.evict(now.Add(21*time.Minute), 10*time.Minute)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}
