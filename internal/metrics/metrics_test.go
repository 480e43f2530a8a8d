package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordChat(t *testing.T) {
	m := New()
	m.RecordChat("ok", 1.5, 3)
	m.RecordChat("error", 0.2, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ChatRounds))
}

func TestRecordToolCallAndTokens(t *testing.T) {
	m := New()
	m.RecordToolCall("list_tasks", "ok")
	m.RecordToolCall("list_tasks", "ok")
	m.RecordToolCall("complete_task", "soft_error")
	m.AddTokens(100, 20)
	m.AddTokens(50, 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("list_tasks", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("complete_task", "soft_error")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("input")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("output")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordModelCall("anthropic", "ok")
	m.RecordHTTP("POST", "/api/ai/chat", "200")
	m.RecordError("assistant", "max_rounds")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "workspace_model_calls_total")
	assert.Contains(t, body, "workspace_http_requests_total")
	assert.Contains(t, body, "workspace_errors_total")
	assert.Contains(t, body, "go_goroutines")
}
