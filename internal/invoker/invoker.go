package invoker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
	"github.com/lumoxuan/CodeMentor-API/internal/selector"
	"github.com/lumoxuan/CodeMentor-API/internal/stats"
)

// ErrAllBackendsFailed 双后端模式下两个供应商都失败
var ErrAllBackendsFailed = errors.New("both backends failed")

// Request 一次问答调用
type Request struct {
	Question string
	Context  string
	Language string
	TaskType models.TaskType
	UseBoth  bool // 双后端对比模式
}

// VendorOutcome 对比模式下单个供应商的结果
type VendorOutcome struct {
	Response   string  `json:"response,omitempty"`
	Error      string  `json:"error,omitempty"`
	TokensUsed int     `json:"tokens_used"`
	LatencyMs  int64   `json:"latency_ms"`
	Quality    float64 `json:"quality"`
}

// Result 调用结果
// Success=false 时 Error 说明失败原因，其余字段不可信
type Result struct {
	Success    bool
	Response   string
	Backend    models.BackendID
	TokensUsed int
	LatencyMs  int64
	Quality    float64
	Error      string

	// 对比模式附加字段
	Comparison bool
	OpenAI     *VendorOutcome
	DeepSeek   *VendorOutcome
}

// Invoker 后端调用器
// 封装单后端与双后端两种调用模式，并负责落库调用记录
type Invoker struct {
	registry    *backend.Registry
	selector    selector.Selector
	estimator   quality.Estimator
	repo        *stats.Repository
	dualTimeout time.Duration
}

// NewInvoker 创建调用器
func NewInvoker(registry *backend.Registry, sel selector.Selector, estimator quality.Estimator, repo *stats.Repository, dualTimeout time.Duration) *Invoker {
	if dualTimeout == 0 {
		dualTimeout = 45 * time.Second
	}

	return &Invoker{
		registry:    registry,
		selector:    sel,
		estimator:   estimator,
		repo:        repo,
		dualTimeout: dualTimeout,
	}
}

// Invoke 执行一次问答调用
// 错误以 Result.Success=false 的形式返回，不向上抛 panic
func (inv *Invoker) Invoke(ctx context.Context, req *Request) *Result {
	if req.UseBoth {
		openai := inv.registry.Get(models.BackendOpenAI)
		deepseek := inv.registry.Get(models.BackendDeepSeek)

		if openai != nil && openai.Available() && deepseek != nil && deepseek.Available() {
			return inv.invokeDual(ctx, req, openai, deepseek)
		}
		// 双后端条件不满足时退化为单后端
		log.Println("⚠️  双后端模式要求两个供应商都可用，退化为单后端")
	}

	return inv.invokeSingle(ctx, req)
}

// invokeSingle 单后端调用
func (inv *Invoker) invokeSingle(ctx context.Context, req *Request) *Result {
	backendID, err := inv.selector.Select(req.TaskType, req.Language)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}
	}

	b := inv.registry.Get(backendID)
	if b == nil {
		return &Result{Success: false, Error: fmt.Sprintf("backend %s not registered", backendID)}
	}

	chatReq := &backend.ChatRequest{
		Question: req.Question,
		Context:  req.Context,
		Language: req.Language,
		TaskType: req.TaskType,
	}

	result, err := b.Chat(ctx, chatReq)
	if err != nil {
		log.Printf("❌ 后端 %s 调用失败: %v", backendID, err)
		return &Result{Success: false, Backend: backendID, Error: err.Error()}
	}

	score := inv.estimator.Score(result.Text, string(req.TaskType))

	inv.record(backendID, req, score, result)

	return &Result{
		Success:    true,
		Response:   result.Text,
		Backend:    backendID,
		TokensUsed: result.TokensUsed,
		LatencyMs:  result.LatencyMs,
		Quality:    score,
	}
}

// invokeDual 双后端并发调用
// 两个调用共享同一个超时预算，各自的错误被捕获而不会中断另一个
func (inv *Invoker) invokeDual(ctx context.Context, req *Request, openai, deepseek backend.Backend) *Result {
	ctx, cancel := context.WithTimeout(ctx, inv.dualTimeout)
	defer cancel()

	chatReq := &backend.ChatRequest{
		Question: req.Question,
		Context:  req.Context,
		Language: req.Language,
		TaskType: req.TaskType,
	}

	var wg sync.WaitGroup
	outcomes := make([]*VendorOutcome, 2)
	backends := []backend.Backend{openai, deepseek}

	for i, b := range backends {
		wg.Add(1)
		go func(i int, b backend.Backend) {
			defer wg.Done()

			outcome := &VendorOutcome{}
			result, err := b.Chat(ctx, chatReq)
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.Response = result.Text
				outcome.TokensUsed = result.TokensUsed
				outcome.LatencyMs = result.LatencyMs
				outcome.Quality = inv.estimator.Score(result.Text, string(req.TaskType))
			}
			outcomes[i] = outcome
		}(i, b)
	}
	wg.Wait()

	openaiOut, deepseekOut := outcomes[0], outcomes[1]

	res := &Result{
		Comparison: true,
		OpenAI:     openaiOut,
		DeepSeek:   deepseekOut,
	}

	// 质量分高者为主回答；只有一方成功则用成功方
	switch {
	case openaiOut.Error == "" && deepseekOut.Error == "":
		if deepseekOut.Quality > openaiOut.Quality {
			res.fillPrimary(models.BackendDeepSeek, deepseekOut)
		} else {
			res.fillPrimary(models.BackendOpenAI, openaiOut)
		}
	case openaiOut.Error == "":
		res.fillPrimary(models.BackendOpenAI, openaiOut)
	case deepseekOut.Error == "":
		res.fillPrimary(models.BackendDeepSeek, deepseekOut)
	default:
		res.Success = false
		res.Error = fmt.Sprintf("%s: openai: %s; deepseek: %s",
			ErrAllBackendsFailed, openaiOut.Error, deepseekOut.Error)
	}

	// 成功的调用各自落一条记录
	if openaiOut.Error == "" {
		inv.record(models.BackendOpenAI, req, openaiOut.Quality, &backend.ChatResult{
			Text: openaiOut.Response, TokensUsed: openaiOut.TokensUsed, LatencyMs: openaiOut.LatencyMs,
		})
	}
	if deepseekOut.Error == "" {
		inv.record(models.BackendDeepSeek, req, deepseekOut.Quality, &backend.ChatResult{
			Text: deepseekOut.Response, TokensUsed: deepseekOut.TokensUsed, LatencyMs: deepseekOut.LatencyMs,
		})
	}

	// 对比记录无论成败都保存，便于离线分析
	comparison := &models.ComparisonRecord{
		Question:          req.Question,
		TaskType:          string(req.TaskType),
		OpenAIResponse:    openaiOut.Response,
		DeepSeekResponse:  deepseekOut.Response,
		OpenAILatencyMs:   openaiOut.LatencyMs,
		DeepSeekLatencyMs: deepseekOut.LatencyMs,
		OpenAITokens:      openaiOut.TokensUsed,
		DeepSeekTokens:    deepseekOut.TokensUsed,
		PreferredBackend:  string(res.Backend),
	}
	if err := inv.repo.RecordComparison(comparison); err != nil {
		log.Printf("⚠️  保存对比记录失败: %v", err)
	}

	return res
}

// fillPrimary 将某个供应商的结果设为主回答
func (r *Result) fillPrimary(id models.BackendID, out *VendorOutcome) {
	r.Success = true
	r.Backend = id
	r.Response = out.Response
	r.TokensUsed = out.TokensUsed
	r.LatencyMs = out.LatencyMs
	r.Quality = out.Quality
}

// record 落库一条调用记录
func (inv *Invoker) record(id models.BackendID, req *Request, score float64, result *backend.ChatResult) {
	rec := &models.InvocationRecord{
		Backend:      string(id),
		TaskType:     string(req.TaskType),
		Language:     req.Language,
		PromptHash:   hashPrompt(req.Question, req.TaskType),
		QualityScore: score,
		LatencyMs:    result.LatencyMs,
		TokensUsed:   result.TokensUsed,
	}

	if err := inv.repo.RecordInvocation(rec); err != nil {
		log.Printf("⚠️  保存调用记录失败: %v", err)
	}
}

// hashPrompt 问题指纹，用于追踪重复提问
func hashPrompt(question string, taskType models.TaskType) string {
	sum := sha256.Sum256([]byte(question + "_" + string(taskType)))
	return hex.EncodeToString(sum[:])
}
