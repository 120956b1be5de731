package invoker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
	"github.com/lumoxuan/CodeMentor-API/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubBackend 可编程的测试后端
type stubBackend struct {
	id        models.BackendID
	available bool
	text      string
	tokens    int
	err       error
	delay     time.Duration
}

func (s *stubBackend) ID() models.BackendID { return s.id }
func (s *stubBackend) Available() bool      { return s.available }

func (s *stubBackend) Chat(ctx context.Context, req *backend.ChatRequest) (*backend.ChatResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &backend.ChatResult{Text: s.text, TokensUsed: s.tokens, LatencyMs: 10}, nil
}

// fixedSelector 始终返回固定后端的选择器
type fixedSelector struct {
	id  models.BackendID
	err error
}

func (f *fixedSelector) Select(taskType models.TaskType, language string) (models.BackendID, error) {
	return f.id, f.err
}

func newTestRepo(t *testing.T) *stats.Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.InvocationRecord{}, &models.ComparisonRecord{}))
	return stats.NewRepository(db)
}

func newInvoker(t *testing.T, sel *fixedSelector, backends ...backend.Backend) (*Invoker, *stats.Repository) {
	repo := newTestRepo(t)
	inv := NewInvoker(backend.NewRegistry(backends...), sel, quality.NewHeuristicEstimator(), repo, 2*time.Second)
	return inv, repo
}

// TestInvoke_Single 测试单后端调用成功并落库
func TestInvoke_Single(t *testing.T) {
	answer := "Use slicing, for example: lst[::-1]\n```python\nprint(lst[::-1])\n```"
	b := &stubBackend{id: models.BackendOpenAI, available: true, text: answer, tokens: 80}
	inv, repo := newInvoker(t, &fixedSelector{id: models.BackendOpenAI}, b)

	result := inv.Invoke(context.Background(), &Request{
		Question: "How do I reverse a list?",
		Language: "python",
		TaskType: models.TaskCodeGeneration,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.BackendOpenAI, result.Backend)
	assert.Equal(t, answer, result.Response)
	assert.Equal(t, 80, result.TokensUsed)
	assert.Greater(t, result.Quality, 0.5)

	count, err := repo.InvocationCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// TestInvoke_SingleBackendError 测试后端失败时返回失败结果而非 panic
func TestInvoke_SingleBackendError(t *testing.T) {
	b := &stubBackend{id: models.BackendOpenAI, available: true, err: errors.New("boom")}
	inv, repo := newInvoker(t, &fixedSelector{id: models.BackendOpenAI}, b)

	result := inv.Invoke(context.Background(), &Request{Question: "q", TaskType: models.TaskGeneral})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")

	// 失败的调用不落库
	count, err := repo.InvocationCount()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

// TestInvoke_SelectorError 测试选择器失败直接返回
func TestInvoke_SelectorError(t *testing.T) {
	inv, _ := newInvoker(t, &fixedSelector{err: errors.New("no backend available")})

	result := inv.Invoke(context.Background(), &Request{Question: "q", TaskType: models.TaskGeneral})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no backend available")
}

// TestInvoke_DualHigherQualityWins 测试对比模式下质量分高者为主回答
func TestInvoke_DualHigherQualityWins(t *testing.T) {
	// deepseek 的回答带代码块和解释词，质量分更高
	openai := &stubBackend{id: models.BackendOpenAI, available: true, text: "short answer", tokens: 10}
	deepseek := &stubBackend{
		id: models.BackendDeepSeek, available: true, tokens: 90,
		text: "This works because of slicing. Example:\n```python\nlst[::-1]\n```",
	}
	inv, repo := newInvoker(t, &fixedSelector{id: models.BackendOpenAI}, openai, deepseek)

	result := inv.Invoke(context.Background(), &Request{
		Question: "reverse a list",
		Language: "python",
		TaskType: models.TaskCodeGeneration,
		UseBoth:  true,
	})

	assert.True(t, result.Success)
	assert.True(t, result.Comparison)
	assert.Equal(t, models.BackendDeepSeek, result.Backend)
	assert.Contains(t, result.Response, "slicing")
	require.NotNil(t, result.OpenAI)
	require.NotNil(t, result.DeepSeek)
	assert.Empty(t, result.OpenAI.Error)

	// 两条调用记录都落库
	count, err := repo.InvocationCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

// TestInvoke_DualOneFails 测试一方失败时成功方成为主回答
func TestInvoke_DualOneFails(t *testing.T) {
	openai := &stubBackend{id: models.BackendOpenAI, available: true, err: errors.New("rate limited")}
	deepseek := &stubBackend{id: models.BackendDeepSeek, available: true, text: "working answer", tokens: 30}
	inv, _ := newInvoker(t, &fixedSelector{id: models.BackendOpenAI}, openai, deepseek)

	result := inv.Invoke(context.Background(), &Request{
		Question: "q", TaskType: models.TaskGeneral, UseBoth: true,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.BackendDeepSeek, result.Backend)
	assert.Equal(t, "working answer", result.Response)
	assert.Contains(t, result.OpenAI.Error, "rate limited")
}

// TestInvoke_DualBothFail 测试双方都失败时返回合并错误
func TestInvoke_DualBothFail(t *testing.T) {
	openai := &stubBackend{id: models.BackendOpenAI, available: true, err: errors.New("err-a")}
	deepseek := &stubBackend{id: models.BackendDeepSeek, available: true, err: errors.New("err-b")}
	inv, _ := newInvoker(t, &fixedSelector{id: models.BackendOpenAI}, openai, deepseek)

	result := inv.Invoke(context.Background(), &Request{
		Question: "q", TaskType: models.TaskGeneral, UseBoth: true,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "err-a")
	assert.Contains(t, result.Error, "err-b")
}

// TestInvoke_DualSharedTimeout 测试两个并发调用共享超时预算
func TestInvoke_DualSharedTimeout(t *testing.T) {
	openai := &stubBackend{id: models.BackendOpenAI, available: true, text: "fast", delay: 10 * time.Millisecond}
	deepseek := &stubBackend{id: models.BackendDeepSeek, available: true, text: "slow", delay: 5 * time.Second}

	repo := newTestRepo(t)
	inv := NewInvoker(backend.NewRegistry(openai, deepseek), &fixedSelector{id: models.BackendOpenAI},
		quality.NewHeuristicEstimator(), repo, 100*time.Millisecond)

	start := time.Now()
	result := inv.Invoke(context.Background(), &Request{
		Question: "q", TaskType: models.TaskGeneral, UseBoth: true,
	})

	assert.Less(t, time.Since(start), 2*time.Second, "慢后端应被共享超时取消")
	assert.True(t, result.Success)
	assert.Equal(t, models.BackendOpenAI, result.Backend)
	assert.NotEmpty(t, result.DeepSeek.Error)
}

// TestInvoke_DualFallsBackToSingle 测试只有一个供应商可用时退化为单后端
func TestInvoke_DualFallsBackToSingle(t *testing.T) {
	openai := &stubBackend{id: models.BackendOpenAI, available: true, text: "answer"}
	deepseek := &stubBackend{id: models.BackendDeepSeek, available: false}
	inv, _ := newInvoker(t, &fixedSelector{id: models.BackendOpenAI}, openai, deepseek)

	result := inv.Invoke(context.Background(), &Request{
		Question: "q", TaskType: models.TaskGeneral, UseBoth: true,
	})

	assert.True(t, result.Success)
	assert.False(t, result.Comparison)
	assert.Equal(t, models.BackendOpenAI, result.Backend)
}
