package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStubServer 创建模拟供应商 API 的测试服务器
func newStubServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// TestVendorChat_Success 测试正常的问答调用
func TestVendorChat_Success(t *testing.T) {
	var captured chatCompletionRequest

	server := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"content": "Use a context manager."}}],
			"usage": {"total_tokens": 120}
		}`))
	})

	b := NewOpenAI(config.BackendConfig{
		BaseURL: server.URL,
		Model:   "gpt-4o",
		APIKey:  "test-key",
	}, 5*time.Second)

	result, err := b.Chat(context.Background(), &ChatRequest{
		Question: "How do I open a file safely?",
		Language: "python",
		TaskType: models.TaskGeneral,
	})

	require.NoError(t, err)
	assert.Equal(t, "Use a context manager.", result.Text)
	assert.Equal(t, 120, result.TokensUsed)
	assert.GreaterOrEqual(t, result.LatencyMs, int64(0))

	// 请求体应携带模型名和两条消息
	assert.Equal(t, "gpt-4o", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Contains(t, captured.Messages[1].Content, "How do I open a file safely?")
}

// TestVendorChat_TaskSampling 测试采样参数随任务类型变化
func TestVendorChat_TaskSampling(t *testing.T) {
	var captured chatCompletionRequest

	server := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}], "usage": {"total_tokens": 5}}`))
	})

	b := NewDeepSeek(config.BackendConfig{
		BaseURL: server.URL,
		Model:   "deepseek-coder",
		APIKey:  "test-key",
	}, 5*time.Second)

	_, err := b.Chat(context.Background(), &ChatRequest{
		Question: "Fix this panic",
		Language: "go",
		TaskType: models.TaskDebugging,
	})
	require.NoError(t, err)

	// 调试任务使用低温度
	assert.Equal(t, 0.3, captured.Temperature)
	assert.Equal(t, 2500, captured.MaxTokens)
}

// TestVendorChat_HTTPError 测试非 200 响应返回错误
func TestVendorChat_HTTPError(t *testing.T) {
	server := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	})

	b := NewOpenAI(config.BackendConfig{
		BaseURL: server.URL,
		Model:   "gpt-4o",
		APIKey:  "test-key",
	}, 5*time.Second)

	_, err := b.Chat(context.Background(), &ChatRequest{Question: "q", TaskType: models.TaskGeneral})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

// TestVendorChat_EmptyChoices 测试空回答返回 ErrEmptyResponse
func TestVendorChat_EmptyChoices(t *testing.T) {
	server := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [], "usage": {"total_tokens": 0}}`))
	})

	b := NewOpenAI(config.BackendConfig{
		BaseURL: server.URL,
		Model:   "gpt-4o",
		APIKey:  "test-key",
	}, 5*time.Second)

	_, err := b.Chat(context.Background(), &ChatRequest{Question: "q", TaskType: models.TaskGeneral})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

// TestVendorChat_NoAPIKey 测试缺少凭证时不可用
func TestVendorChat_NoAPIKey(t *testing.T) {
	b := NewOpenAI(config.BackendConfig{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	}, 5*time.Second)

	assert.False(t, b.Available())

	_, err := b.Chat(context.Background(), &ChatRequest{Question: "q", TaskType: models.TaskGeneral})
	assert.ErrorIs(t, err, ErrUnavailable)
}

// TestVendorChat_ContextCancelled 测试请求尊重 context 取消
func TestVendorChat_ContextCancelled(t *testing.T) {
	server := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"choices": [{"message": {"content": "too late"}}]}`))
	})

	b := NewOpenAI(config.BackendConfig{
		BaseURL: server.URL,
		Model:   "gpt-4o",
		APIKey:  "test-key",
	}, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Chat(ctx, &ChatRequest{Question: "q", TaskType: models.TaskGeneral})
	assert.Error(t, err)
}

// TestRegistry_Available 测试注册表按可用性过滤
func TestRegistry_Available(t *testing.T) {
	openai := NewOpenAI(config.BackendConfig{APIKey: "key"}, time.Second)
	deepseek := NewDeepSeek(config.BackendConfig{}, time.Second) // 无凭证

	registry := NewRegistry(openai, deepseek)

	available := registry.Available()
	assert.Equal(t, []models.BackendID{models.BackendOpenAI}, available)

	assert.NotNil(t, registry.Get(models.BackendOpenAI))
	assert.Nil(t, registry.Get(models.BackendLocal))
}
