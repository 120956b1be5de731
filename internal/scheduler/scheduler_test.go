package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/knowledge"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
	"github.com/lumoxuan/CodeMentor-API/internal/query"
	"github.com/lumoxuan/CodeMentor-API/internal/scraper"
	"github.com/lumoxuan/CodeMentor-API/internal/trainer"
)

func setupScheduler(t *testing.T) (*Scheduler, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.KnowledgeItem{},
		&models.TrainingSample{},
		&models.ScrapeLog{},
		&models.SystemEvent{},
		&models.UserQuery{},
		&models.ModelVersion{},
	))

	store := modelstore.NewStore(t.TempDir())
	trainerRepo := trainer.NewRepository(db)
	eventsSvc := events.NewService(db)
	estimator := quality.NewHeuristicEstimator()
	trainerSvc := trainer.NewService(trainerRepo, store, trainer.NewEvaluator(estimator), eventsSvc, nil,
		config.TrainingConfig{MinSamples: 10, MaxSamples: 100, MinQualityScore: 0.5, Epochs: 1, MinAccuracy: 0.4, MinSuccessRate: 0.7, ImprovementDelta: 0.05}, 5)

	deps := Deps{
		DB:        db,
		Processor: scraper.NewProcessor(db, knowledge.NewRepository(db), trainerRepo, eventsSvc, 0.5),
		Trainer:   trainerSvc,
		Knowledge: knowledge.NewRepository(db),
		Query:     query.NewService(db),
		Events:    eventsSvc,
		Store:     store,
		Registry:  backend.NewRegistry(),
	}
	return New(deps, config.SchedulerConfig{CollectionHours: 24, TrainingHours: 72}, 5), db
}

// TestNew_RegistersAllJobs 测试全部任务注册成功
func TestNew_RegistersAllJobs(t *testing.T) {
	s, _ := setupScheduler(t)

	jobs := s.Jobs()
	require.Len(t, jobs, 5)

	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name
		assert.False(t, j.Running)
	}
	assert.Contains(t, names, "data_collection")
	assert.Contains(t, names, "model_training")
	assert.Contains(t, names, "model_evaluation")
	assert.Contains(t, names, "cleanup")
	assert.Contains(t, names, "health_check")
}

// TestJobs_NextRunAfterStart 测试启动后任务有下次执行时间
func TestJobs_NextRunAfterStart(t *testing.T) {
	s, _ := setupScheduler(t)

	s.Start()
	defer s.Stop()

	for _, j := range s.Jobs() {
		assert.False(t, j.NextRun.IsZero(), "job %s has no next run", j.Name)
		assert.True(t, j.NextRun.After(time.Now().Add(-time.Second)))
	}
}

// TestJob_OverlapSkipped 测试同一任务并发触发时第二次被跳过
func TestJob_OverlapSkipped(t *testing.T) {
	release := make(chan struct{})
	var runs int
	var mu sync.Mutex

	j := &job{
		name: "slow",
		run: func(ctx context.Context) {
			mu.Lock()
			runs++
			mu.Unlock()
			<-release
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		j.execute(context.Background())
	}()

	// 等第一轮占住运行标记
	require.Eventually(t, j.isRunning, time.Second, 5*time.Millisecond)

	// 第二次触发应立即返回且不执行
	j.execute(context.Background())
	mu.Lock()
	assert.Equal(t, 1, runs)
	mu.Unlock()

	close(release)
	wg.Wait()
	assert.False(t, j.isRunning())
}

// TestRunCleanup 测试清理任务清掉过期数据
func TestRunCleanup(t *testing.T) {
	s, db := setupScheduler(t)

	oldLog := &models.ScrapeLog{Source: "docs", Status: models.ScrapeStatusCompleted, StartedAt: time.Now().AddDate(0, 0, -60)}
	require.NoError(t, db.Create(oldLog).Error)

	s.runCleanup(context.Background())

	var count int64
	db.Model(&models.ScrapeLog{}).Count(&count)
	assert.Zero(t, count)

	// 清理自身会落一条事件
	var eventCount int64
	db.Model(&models.SystemEvent{}).Where("type = ?", models.EventTypeCleanup).Count(&eventCount)
	assert.EqualValues(t, 1, eventCount)
}

// TestTriggerCollection 测试手动触发采集落日志
func TestTriggerCollection(t *testing.T) {
	s, db := setupScheduler(t)

	result, err := s.TriggerCollection(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Processed)

	var scrapeLog models.ScrapeLog
	require.NoError(t, db.First(&scrapeLog).Error)
	assert.Equal(t, "manual", scrapeLog.Source)
}
