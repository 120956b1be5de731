package trainer

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() config.TrainingConfig {
	return config.TrainingConfig{
		MinSamples:       100,
		MaxSamples:       1000,
		MinQualityScore:  0.5,
		Epochs:           3,
		MinAccuracy:      0.4,
		MinSuccessRate:   0.7,
		ImprovementDelta: 0.05,
	}
}

func setupService(t *testing.T) (*Service, *Repository, *modelstore.Store, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.TrainingSample{}, &models.ModelVersion{}, &models.SystemEvent{},
	))

	repo := NewRepository(db)
	store := modelstore.NewStore(t.TempDir())
	evaluator := NewEvaluator(quality.NewHeuristicEstimator())
	svc := NewService(repo, store, evaluator, events.NewService(db), nil, testConfig(), 5)

	return svc, repo, store, db
}

// seedGoodSamples 写入问题能自匹配、回答质量高的样本
func seedGoodSamples(t *testing.T, repo *Repository, n int) {
	for i := 0; i < n; i++ {
		err := repo.CreateSample(&models.TrainingSample{
			Question: fmt.Sprintf("How to handle timeout retries in worker pool number %d", i),
			Answer: fmt.Sprintf("Retry with backoff because transient failures recover. Example:\n"+
				"```go\nfor attempt := 0; attempt < %d; attempt++ {\n    // retry\n}\n```", i+3),
			Language:     "go",
			Category:     "code_generation",
			SourceType:   "stackoverflow",
			SourceURL:    fmt.Sprintf("https://stackoverflow.com/q/%d", i),
			QualityScore: 0.8,
		})
		require.NoError(t, err)
	}
}

// seedBadSamples 写入无法匹配的低质量样本
func seedBadSamples(t *testing.T, repo *Repository, n int) {
	for i := 0; i < n; i++ {
		err := repo.CreateSample(&models.TrainingSample{
			Question:     fmt.Sprintf("x%d", i),
			Answer:       "ok",
			Language:     "general",
			QualityScore: 0.6,
		})
		require.NoError(t, err)
	}
}

// TestTrain_InsufficientData 测试样本不足时中止且无状态变化
func TestTrain_InsufficientData(t *testing.T) {
	svc, repo, store, db := setupService(t)

	seedGoodSamples(t, repo, 10)

	_, err := svc.Train(context.Background(), false)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// 没有版本记录、没有模型目录、样本未被消费
	var versionCount int64
	db.Model(&models.ModelVersion{}).Count(&versionCount)
	assert.Equal(t, int64(0), versionCount)
	assert.False(t, store.HasCurrent())

	_, unused, err := repo.CountSamples()
	require.NoError(t, err)
	assert.Equal(t, int64(10), unused)

	assert.Equal(t, StateIdle, svc.Status().State)
}

// TestTrain_ForceBypassesMinimum 测试手动强制训练跳过样本数检查
func TestTrain_ForceBypassesMinimum(t *testing.T) {
	svc, repo, _, _ := setupService(t)

	seedGoodSamples(t, repo, 10)

	outcome, err := svc.Train(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, outcome.Promoted)
}

// TestTrain_PromoteSuccess 测试达标候选被晋升
func TestTrain_PromoteSuccess(t *testing.T) {
	svc, repo, store, _ := setupService(t)

	seedGoodSamples(t, repo, 120)

	outcome, err := svc.Train(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, outcome.Promoted)
	assert.Equal(t, 120, outcome.Samples)
	assert.GreaterOrEqual(t, outcome.Evaluation.AccuracyScore, 0.4)
	assert.GreaterOrEqual(t, outcome.Evaluation.SuccessRate, 0.7)

	// 模型目录切换为 current
	assert.True(t, store.HasCurrent())
	info, err := store.CurrentInfo()
	require.NoError(t, err)
	assert.Equal(t, outcome.Version, info.Version)

	// 样本被消费
	_, unused, err := repo.CountSamples()
	require.NoError(t, err)
	assert.Equal(t, int64(0), unused)

	// 版本记录为 current
	current, err := repo.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, outcome.Version, current.Version)
}

// TestTrain_DiscardKeepsSamples 测试不达标候选被丢弃且样本不翻转标记
func TestTrain_DiscardKeepsSamples(t *testing.T) {
	svc, repo, store, db := setupService(t)

	seedBadSamples(t, repo, 120)

	outcome, err := svc.Train(context.Background(), false)
	require.NoError(t, err)

	assert.False(t, outcome.Promoted)
	assert.NotEmpty(t, outcome.Reason)

	// 样本不被消费
	_, unused, err := repo.CountSamples()
	require.NoError(t, err)
	assert.Equal(t, int64(120), unused)

	// 没有模型晋升
	assert.False(t, store.HasCurrent())

	// 丢弃记录落库
	var discarded models.ModelVersion
	require.NoError(t, db.Where("state = ?", models.ModelStateDiscarded).First(&discarded).Error)
	assert.Equal(t, outcome.Version, discarded.Version)
	assert.NotEmpty(t, discarded.Notes)
}

// TestTrain_BackupFailureAborts 测试备份失败时训练硬性中止
func TestTrain_BackupFailureAborts(t *testing.T) {
	svc, repo, store, db := setupService(t)

	// 先放一个当前模型
	require.NoError(t, modelstore.SaveIndex(store.CurrentDir(), &modelstore.Index{Version: "old"}))

	// 用同名文件占住 backups 路径，使备份必然失败
	require.NoError(t, os.WriteFile(store.BackupsDir(), []byte("block"), 0644))

	seedGoodSamples(t, repo, 120)

	_, err := svc.Train(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "备份")

	// 当前模型不受影响，样本未被消费
	info, infoErr := store.CurrentInfo()
	require.NoError(t, infoErr)
	assert.Equal(t, "old", info.Version)

	_, unused, cntErr := repo.CountSamples()
	require.NoError(t, cntErr)
	assert.Equal(t, int64(120), unused)

	// 记录了 backup_failed 事件
	var event models.SystemEvent
	require.NoError(t, db.Where("type = ?", models.EventTypeBackupFailed).First(&event).Error)
	assert.Equal(t, models.EventLevelError, event.Level)
}

// TestTrain_PruneAfterPromotion 测试晋升后备份数收敛到保留上限
func TestTrain_PruneAfterPromotion(t *testing.T) {
	svc, repo, store, _ := setupService(t)

	// 预置 7 个备份
	require.NoError(t, modelstore.SaveIndex(store.CurrentDir(), &modelstore.Index{Version: "old"}))
	for i := 1; i <= 7; i++ {
		require.NoError(t, store.Backup(fmt.Sprintf("2026010%d_000000", i)))
	}

	seedGoodSamples(t, repo, 120)

	outcome, err := svc.Train(context.Background(), false)
	require.NoError(t, err)
	require.True(t, outcome.Promoted)

	backups, err := store.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 5)
}

// TestPromotionFailures_Boundaries 测试晋升门槛的边界值
func TestPromotionFailures_Boundaries(t *testing.T) {
	svc, _, _, _ := setupService(t)

	tests := []struct {
		name string
		eval Evaluation
		pass bool
	}{
		{"正好达到门槛", Evaluation{AccuracyScore: 0.4, SuccessRate: 0.7}, true},
		{"准确率略低于门槛", Evaluation{AccuracyScore: 0.3999, SuccessRate: 0.9}, false},
		{"成功率略低于门槛", Evaluation{AccuracyScore: 0.8, SuccessRate: 0.6999}, false},
		{"双双不达标", Evaluation{AccuracyScore: 0.1, SuccessRate: 0.1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons, err := svc.promotionFailures(&tt.eval)
			require.NoError(t, err)
			if tt.pass {
				assert.Empty(t, reasons)
			} else {
				assert.NotEmpty(t, reasons)
			}
		})
	}
}

// TestPromotionFailures_ImprovementDelta 测试相对上一版本的提升检查
func TestPromotionFailures_ImprovementDelta(t *testing.T) {
	svc, repo, _, _ := setupService(t)

	// 上一版本 accuracy 0.6
	require.NoError(t, repo.CreateVersion(&models.ModelVersion{
		Version:       "20260101_000000",
		AccuracyScore: 0.6,
		SuccessRate:   0.9,
		State:         models.ModelStateCurrent,
	}))

	// 0.63 < 0.6 + 0.05，拒绝
	reasons, err := svc.promotionFailures(&Evaluation{AccuracyScore: 0.63, SuccessRate: 0.9})
	require.NoError(t, err)
	assert.NotEmpty(t, reasons)

	// 0.66 ≥ 0.6 + 0.05，通过
	reasons, err = svc.promotionFailures(&Evaluation{AccuracyScore: 0.66, SuccessRate: 0.9})
	require.NoError(t, err)
	assert.Empty(t, reasons)
}

// TestPromotionFailures_VersionLookupError 测试版本记录读取失败时中止判定
// 不能把数据库故障当成"没有历史版本"，否则退化候选会绕过提升检查
func TestPromotionFailures_VersionLookupError(t *testing.T) {
	svc, repo, _, db := setupService(t)

	require.NoError(t, repo.CreateVersion(&models.ModelVersion{
		Version:       "20260101_000000",
		AccuracyScore: 0.9,
		SuccessRate:   0.9,
		State:         models.ModelStateCurrent,
	}))

	// 关闭底层连接制造数据库故障
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.promotionFailures(&Evaluation{AccuracyScore: 0.5, SuccessRate: 0.9})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVersionNotFound)
}

// TestTrain_ConcurrentGuard 测试同一时刻只允许一轮训练
func TestTrain_ConcurrentGuard(t *testing.T) {
	svc, _, _, _ := setupService(t)

	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()

	_, err := svc.Train(context.Background(), true)
	assert.ErrorIs(t, err, ErrTrainingInProgress)
}

// TestRepository_CollectSamples 测试样本收集的过滤与排序
func TestRepository_CollectSamples(t *testing.T) {
	_, repo, _, _ := setupService(t)

	samples := []*models.TrainingSample{
		{Question: "q1", Answer: "a", QualityScore: 0.9},
		{Question: "q2", Answer: "a", QualityScore: 0.3}, // 低于门槛
		{Question: "q3", Answer: "a", QualityScore: 0.7},
		{Question: "q4", Answer: "a", QualityScore: 0.6},
	}
	for _, s := range samples {
		require.NoError(t, repo.CreateSample(s))
	}
	// q3 已被上一轮训练消费
	require.NoError(t, repo.MarkSamplesUsed([]uint{samples[2].ID}))

	collected, err := repo.CollectSamples(100, 0.5)
	require.NoError(t, err)
	require.Len(t, collected, 2)

	// 质量倒序
	assert.Equal(t, "q1", collected[0].Question)
	assert.Equal(t, "q4", collected[1].Question)
}

// TestBuildIndex_MergesCurrentIndex 测试微调在现有索引基础上增量构建
func TestBuildIndex_MergesCurrentIndex(t *testing.T) {
	svc, _, store, _ := setupService(t)

	existing := &modelstore.Index{
		Version: "20260101_000000",
		Entries: []modelstore.IndexEntry{
			{Question: "existing question about channels", Answer: "old answer", QualityScore: 0.7},
		},
	}
	require.NoError(t, modelstore.SaveIndex(store.CurrentDir(), existing))

	samples := []models.TrainingSample{
		{Question: "new question about goroutine leaks", Answer: "new answer", QualityScore: 0.9},
		// 与现有条目同问题但质量更高，应替换
		{Question: "existing question about channels", Answer: "better answer", QualityScore: 0.95},
	}

	idx, fullRetrain := svc.buildIndex("20260102_000000", samples)
	assert.False(t, fullRetrain)
	require.Len(t, idx.Entries, 2)

	for _, e := range idx.Entries {
		if e.Question == "existing question about channels" {
			assert.Equal(t, "better answer", e.Answer)
		}
	}
}
