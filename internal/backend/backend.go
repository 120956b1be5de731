package backend

import (
	"context"
	"errors"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

var (
	// ErrUnavailable 后端不可用（缺少凭证或本地模型缺失）
	ErrUnavailable = errors.New("backend unavailable")
	// ErrEmptyResponse 后端返回了空回答
	ErrEmptyResponse = errors.New("backend returned empty response")
)

// ChatRequest 一次问答请求
type ChatRequest struct {
	Question string
	Context  string
	Language string
	TaskType models.TaskType
}

// ChatResult 一次问答结果
type ChatResult struct {
	Text       string
	TokensUsed int
	LatencyMs  int64
}

// Backend 回答后端
// 本地专家模型和外部供应商实现同一接口，调用方不感知差异
type Backend interface {
	// ID 后端标识
	ID() models.BackendID
	// Available 后端当前是否可用
	Available() bool
	// Chat 生成回答，错误通过返回值传递，实现不得 panic
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// Registry 后端注册表，按固定顺序持有全部后端
type Registry struct {
	backends map[models.BackendID]Backend
}

// NewRegistry 创建注册表
func NewRegistry(backends ...Backend) *Registry {
	m := make(map[models.BackendID]Backend, len(backends))
	for _, b := range backends {
		m[b.ID()] = b
	}
	return &Registry{backends: m}
}

// Get 按标识取后端，未注册返回 nil
func (r *Registry) Get(id models.BackendID) Backend {
	return r.backends[id]
}

// Available 列出当前可用的后端标识（按 AllBackends 顺序）
func (r *Registry) Available() []models.BackendID {
	var ids []models.BackendID
	for _, id := range models.AllBackends {
		if b, ok := r.backends[id]; ok && b.Available() {
			ids = append(ids, id)
		}
	}
	return ids
}
