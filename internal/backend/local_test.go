package backend

import (
	"context"
	"testing"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalExpert_NoModel 测试无模型时使用内置知识
func TestLocalExpert_NoModel(t *testing.T) {
	store := modelstore.NewStore(t.TempDir())
	expert := NewLocalExpert(store)

	assert.True(t, expert.Available())
	assert.Equal(t, "baseline", expert.Version())

	result, err := expert.Chat(context.Background(), &ChatRequest{
		Question: "How do functions work?",
		Language: "python",
		TaskType: models.TaskLearning,
	})

	require.NoError(t, err)
	assert.Contains(t, result.Text, "def")
}

// TestLocalExpert_IndexMatch 测试索引条目优先于内置知识
func TestLocalExpert_IndexMatch(t *testing.T) {
	store := modelstore.NewStore(t.TempDir())

	idx := &modelstore.Index{
		Version: "20260101_120000",
		BuiltAt: time.Now(),
		Entries: []modelstore.IndexEntry{
			{
				Question:     "How to reverse a linked list in python",
				Answer:       "Iterate while re-pointing each node's next to the previous node.",
				Language:     "python",
				QualityScore: 0.9,
			},
		},
	}
	require.NoError(t, modelstore.SaveIndex(store.CurrentDir(), idx))

	expert := NewLocalExpert(store)
	assert.Equal(t, "20260101_120000", expert.Version())

	result, err := expert.Chat(context.Background(), &ChatRequest{
		Question: "How do I reverse a linked list?",
		Language: "python",
		TaskType: models.TaskCodeGeneration,
	})

	require.NoError(t, err)
	assert.Contains(t, result.Text, "re-pointing")
}

// TestLocalExpert_Fallbacks 测试任务类型兜底回答
func TestLocalExpert_Fallbacks(t *testing.T) {
	store := modelstore.NewStore(t.TempDir())
	expert := NewLocalExpert(store)

	tests := []struct {
		taskType models.TaskType
		contains string
	}{
		{models.TaskDebugging, "systematic approach to debugging"},
		{models.TaskLearning, "fundamental concepts"},
		{models.TaskGeneral, "more details"},
	}

	for _, tt := range tests {
		result, err := expert.Chat(context.Background(), &ChatRequest{
			Question: "zzz qqq xyzzy",
			TaskType: tt.taskType,
		})
		require.NoError(t, err)
		assert.Contains(t, result.Text, tt.contains, "task type: %s", tt.taskType)
	}
}

// TestLocalExpert_Reload 测试晋升后重新加载索引
func TestLocalExpert_Reload(t *testing.T) {
	store := modelstore.NewStore(t.TempDir())
	expert := NewLocalExpert(store)
	assert.Equal(t, "baseline", expert.Version())

	idx := &modelstore.Index{Version: "20260201_080000", BuiltAt: time.Now()}
	require.NoError(t, modelstore.SaveIndex(store.CurrentDir(), idx))

	require.NoError(t, expert.Reload())
	assert.Equal(t, "20260201_080000", expert.Version())
}

// TestLocalExpert_ContextCancelled 测试取消的 context 直接返回错误
func TestLocalExpert_ContextCancelled(t *testing.T) {
	store := modelstore.NewStore(t.TempDir())
	expert := NewLocalExpert(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := expert.Chat(ctx, &ChatRequest{Question: "q", TaskType: models.TaskGeneral})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestBuildSystemPrompt 测试系统提示词构建
func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(models.TaskDebugging, "go")
	assert.Contains(t, prompt, "debugging solutions for go problems")

	// 未知任务类型落入通用提示词
	prompt = BuildSystemPrompt(models.TaskType("unknown"), "go")
	assert.Contains(t, prompt, "comprehensive programming assistance")
}

// TestSamplingFor_UnknownTask 测试未知任务类型的采样参数
func TestSamplingFor_UnknownTask(t *testing.T) {
	p := SamplingFor(models.TaskType("unknown"))
	assert.Equal(t, 0.7, p.Temperature)
	assert.Equal(t, 2000, p.MaxTokens)
}
