package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

// chatMessage OpenAI 兼容的消息结构
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest OpenAI 兼容的请求体
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatCompletionResponse OpenAI 兼容的响应体
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// VendorBackend OpenAI 兼容协议的外部供应商后端
// openai 和 deepseek 的接口形状一致，共用同一实现
type VendorBackend struct {
	id     models.BackendID
	cfg    config.BackendConfig
	client *http.Client
}

// NewOpenAI 创建 OpenAI 后端
func NewOpenAI(cfg config.BackendConfig, timeout time.Duration) *VendorBackend {
	return newVendor(models.BackendOpenAI, cfg, timeout)
}

// NewDeepSeek 创建 DeepSeek 后端
func NewDeepSeek(cfg config.BackendConfig, timeout time.Duration) *VendorBackend {
	return newVendor(models.BackendDeepSeek, cfg, timeout)
}

func newVendor(id models.BackendID, cfg config.BackendConfig, timeout time.Duration) *VendorBackend {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &VendorBackend{
		id:  id,
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ID 后端标识
func (v *VendorBackend) ID() models.BackendID {
	return v.id
}

// Available API Key 存在即认为可用
func (v *VendorBackend) Available() bool {
	return v.cfg.APIKey != ""
}

// Chat 调用供应商的 chat completions 接口
func (v *VendorBackend) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if !v.Available() {
		return nil, fmt.Errorf("%s: %w", v.id, ErrUnavailable)
	}

	sampling := SamplingFor(req.TaskType)

	payload := chatCompletionRequest{
		Model: v.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildSystemPrompt(req.TaskType, req.Language)},
			{Role: "user", Content: BuildUserPrompt(req)},
		},
		Temperature: sampling.Temperature,
		MaxTokens:   sampling.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	url := strings.TrimSuffix(v.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "CodeMentor-API/1.0")

	startTime := time.Now()

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s 请求失败: %w", v.id, err)
	}
	defer resp.Body.Close()

	latencyMs := time.Since(startTime).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		// 错误响应体截断记录，避免日志爆炸
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s 返回 HTTP %d: %s", v.id, resp.StatusCode, string(raw))
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析 %s 响应失败: %w", v.id, err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%s: %w", v.id, ErrEmptyResponse)
	}

	return &ChatResult{
		Text:       parsed.Choices[0].Message.Content,
		TokensUsed: parsed.Usage.TotalTokens,
		LatencyMs:  latencyMs,
	}, nil
}
