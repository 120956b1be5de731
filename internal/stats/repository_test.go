package stats

import (
	"testing"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 创建测试用内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.InvocationRecord{}, &models.ComparisonRecord{}))

	return db
}

// seedInvocations 写入一组调用记录
func seedInvocations(t *testing.T, repo *Repository, backend string, taskType models.TaskType, language string, scores []float64) {
	for _, score := range scores {
		err := repo.RecordInvocation(&models.InvocationRecord{
			Backend:      backend,
			TaskType:     string(taskType),
			Language:     language,
			PromptHash:   "hash",
			QualityScore: score,
			LatencyMs:    500,
			TokensUsed:   100,
		})
		require.NoError(t, err)
	}
}

// TestBestBackend_QualifiedHistory 测试历史记录达标时返回最佳后端
func TestBestBackend_QualifiedHistory(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	seedInvocations(t, repo, "openai", models.TaskDebugging, "python", []float64{0.8, 0.9, 0.85})
	seedInvocations(t, repo, "deepseek", models.TaskDebugging, "python", []float64{0.6, 0.65, 0.6})

	best, ok, err := repo.BestBackend(models.TaskDebugging, "python")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.BackendOpenAI, best)
}

// TestBestBackend_TooFewRecords 测试记录不足 3 条时不生效
func TestBestBackend_TooFewRecords(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	seedInvocations(t, repo, "openai", models.TaskDebugging, "python", []float64{0.9, 0.95})

	_, ok, err := repo.BestBackend(models.TaskDebugging, "python")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestBestBackend_LowQuality 测试平均质量分不超过 0.7 时不生效
func TestBestBackend_LowQuality(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	// 平均正好 0.7，不满足严格大于
	seedInvocations(t, repo, "openai", models.TaskDebugging, "python", []float64{0.7, 0.7, 0.7})

	_, ok, err := repo.BestBackend(models.TaskDebugging, "python")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestBestBackend_LanguageSubstring 测试语言子串匹配
func TestBestBackend_LanguageSubstring(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	seedInvocations(t, repo, "deepseek", models.TaskCodeGeneration, "javascript", []float64{0.8, 0.8, 0.9})

	// "script" 是 "javascript" 的子串
	best, ok, err := repo.BestBackend(models.TaskCodeGeneration, "script")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.BackendDeepSeek, best)

	// 任务类型不同则不命中
	_, ok, err = repo.BestBackend(models.TaskDebugging, "script")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestBackendAggregates 测试按后端聚合
func TestBackendAggregates(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	seedInvocations(t, repo, "openai", models.TaskGeneral, "python", []float64{0.8, 0.6})
	seedInvocations(t, repo, "local", models.TaskGeneral, "python", []float64{0.5})

	aggs, err := repo.BackendAggregates()
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	// openai 记录更多，排在前面
	assert.Equal(t, "openai", aggs[0].Backend)
	assert.Equal(t, int64(2), aggs[0].Requests)
	assert.InDelta(t, 0.7, aggs[0].AvgQuality, 0.0001)
	assert.Equal(t, int64(200), aggs[0].TotalTokens)
}

// TestTaskPreferences 测试任务类型维度聚合
func TestTaskPreferences(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	seedInvocations(t, repo, "openai", models.TaskDebugging, "python", []float64{0.9})
	seedInvocations(t, repo, "deepseek", models.TaskDebugging, "python", []float64{0.5})
	seedInvocations(t, repo, "local", models.TaskLearning, "go", []float64{0.6})

	prefs, err := repo.TaskPreferences()
	require.NoError(t, err)
	require.Len(t, prefs, 3)

	// debugging 组内 openai 质量更高，排在前面
	assert.Equal(t, "debugging", prefs[0].TaskType)
	assert.Equal(t, "openai", prefs[0].Backend)
}

// TestRecordComparison 测试对比记录写入
func TestRecordComparison(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.RecordComparison(&models.ComparisonRecord{
		Question:         "q",
		TaskType:         "general",
		OpenAIResponse:   "a1",
		DeepSeekResponse: "a2",
		PreferredBackend: "openai",
	})
	require.NoError(t, err)

	count, err := repo.InvocationCount()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "对比记录不计入调用记录")
}
