package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/knowledge"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/query"
	"github.com/lumoxuan/CodeMentor-API/internal/scraper"
	"github.com/lumoxuan/CodeMentor-API/internal/trainer"
)

// job 单个定时任务
// 同一任务不允许并发执行，触发时上一轮未结束则跳过
type job struct {
	name    string
	spec    string
	run     func(ctx context.Context)
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
}

func (j *job) execute(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		log.Printf("⚠️ 任务 %s 上一轮尚未结束，本次跳过", j.name)
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	start := time.Now()
	j.run(ctx)
	log.Printf("✅ 任务 %s 完成，耗时 %s", j.name, time.Since(start).Round(time.Millisecond))
}

func (j *job) isRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// JobStatus 任务状态快照
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
	Running bool      `json:"running"`
}

// Deps 调度器依赖
type Deps struct {
	DB        *gorm.DB
	Processor *scraper.Processor
	Scrapers  []scraper.Scraper
	Trainer   *trainer.Service
	Knowledge *knowledge.Repository
	Query     *query.Service
	Events    *events.Service
	Store     *modelstore.Store
	Registry  *backend.Registry
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron   *cron.Cron
	jobs   []*job
	deps   Deps
	cfg    config.SchedulerConfig
	keep   int
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建调度器并注册全部任务
func New(deps Deps, cfg config.SchedulerConfig, keepBackups int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(),
		deps:   deps,
		cfg:    cfg,
		keep:   keepBackups,
		ctx:    ctx,
		cancel: cancel,
	}

	collectionHours := cfg.CollectionHours
	if collectionHours <= 0 {
		collectionHours = 24
	}
	trainingHours := cfg.TrainingHours
	if trainingHours <= 0 {
		trainingHours = 72
	}

	s.register("data_collection", fmt.Sprintf("@every %dh", collectionHours), s.runCollection)
	s.register("model_training", fmt.Sprintf("@every %dh", trainingHours), s.runTraining)
	s.register("model_evaluation", "0 2 * * *", s.runEvaluation)
	s.register("cleanup", "0 3 * * 0", s.runCleanup)
	s.register("health_check", "@hourly", s.runHealthCheck)

	return s
}

func (s *Scheduler) register(name, spec string, run func(ctx context.Context)) {
	j := &job{name: name, spec: spec, run: run}
	entryID, err := s.cron.AddFunc(spec, func() {
		j.execute(s.ctx)
	})
	if err != nil {
		// spec 均为编译期常量拼接，出错属于编程错误
		log.Printf("❌ 注册任务 %s 失败: %v", name, err)
		return
	}
	j.entryID = entryID
	s.jobs = append(s.jobs, j)
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("✅ 调度器已启动，共 %d 个任务", len(s.jobs))
}

// Stop 停止调度并取消正在执行的任务
func (s *Scheduler) Stop() {
	s.cancel()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	log.Println("👋 调度器已停止")
}

// Jobs 返回全部任务的状态
func (s *Scheduler) Jobs() []JobStatus {
	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		statuses = append(statuses, JobStatus{
			Name:    j.name,
			Spec:    j.spec,
			NextRun: s.cron.Entry(j.entryID).Next,
			Running: j.isRunning(),
		})
	}
	return statuses
}

// TriggerCollection 手动触发一轮数据采集
func (s *Scheduler) TriggerCollection(ctx context.Context) (*scraper.RunResult, error) {
	return s.deps.Processor.Run(ctx, "manual", s.deps.Scrapers...)
}

func (s *Scheduler) runCollection(ctx context.Context) {
	if _, err := s.deps.Processor.Run(ctx, "scheduled_collection", s.deps.Scrapers...); err != nil {
		log.Printf("❌ 定时采集失败: %v", err)
	}
}

func (s *Scheduler) runTraining(ctx context.Context) {
	outcome, err := s.deps.Trainer.Train(ctx, false)
	switch {
	case errors.Is(err, trainer.ErrInsufficientData):
		log.Println("📊 样本不足，跳过本轮定时训练")
	case errors.Is(err, trainer.ErrTrainingInProgress):
		log.Println("⚠️ 已有训练在进行，跳过本轮定时训练")
	case err != nil:
		log.Printf("❌ 定时训练失败: %v", err)
	default:
		log.Printf("✅ 定时训练完成: 版本 %s，晋升=%v", outcome.Version, outcome.Promoted)
	}
}

func (s *Scheduler) runEvaluation(ctx context.Context) {
	eval, err := s.deps.Trainer.EvaluateCurrent()
	if err != nil {
		log.Printf("⚠️ 定时评估跳过: %v", err)
		return
	}

	metadata := map[string]interface{}{
		"accuracy":     eval.AccuracyScore,
		"success_rate": eval.SuccessRate,
		"samples":      eval.SampleCount,
	}
	if s.deps.Events != nil {
		_ = s.deps.Events.LogInfo(models.EventTypeHealthCheck, "定时模型评估完成", metadata)
	}
	log.Printf("📊 定时评估: accuracy=%.3f success_rate=%.2f samples=%d",
		eval.AccuracyScore, eval.SuccessRate, eval.SampleCount)
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	scrapeDays := s.cfg.ScrapeLogKeepDays
	if scrapeDays <= 0 {
		scrapeDays = 30
	}
	queryDays := s.cfg.UserQueryKeepDays
	if queryDays <= 0 {
		queryDays = 90
	}
	eventDays := s.cfg.SystemEventKeepDays
	if eventDays <= 0 {
		eventDays = 30
	}

	summary := map[string]interface{}{}

	if n, err := s.deps.Processor.CleanupOldLogs(scrapeDays); err == nil {
		summary["scrape_logs"] = n
	} else {
		log.Printf("⚠️ 清理采集日志失败: %v", err)
	}
	if n, err := s.deps.Query.CleanupOldQueries(queryDays); err == nil {
		summary["user_queries"] = n
	} else {
		log.Printf("⚠️ 清理用户提问失败: %v", err)
	}
	if n, err := s.deps.Knowledge.DeleteDuplicates(); err == nil {
		summary["duplicate_knowledge"] = n
	} else {
		log.Printf("⚠️ 清理重复知识条目失败: %v", err)
	}
	if n, err := s.deps.Store.Prune(s.keep); err == nil {
		summary["pruned_backups"] = n
	} else {
		log.Printf("⚠️ 清理过期备份失败: %v", err)
	}
	if n, err := s.deps.Events.CleanupOldEvents(eventDays); err == nil {
		summary["system_events"] = n
	} else {
		log.Printf("⚠️ 清理系统事件失败: %v", err)
	}

	_ = s.deps.Events.LogInfo(models.EventTypeCleanup, "定期清理完成", summary)
	log.Printf("🧹 定期清理完成: %v", summary)
}

func (s *Scheduler) runHealthCheck(ctx context.Context) {
	var problems []string

	sqlDB, err := s.deps.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		problems = append(problems, "database unreachable")
	}
	if !s.deps.Store.HasCurrent() {
		problems = append(problems, "no current model")
	}
	if len(s.deps.Registry.Available()) == 0 {
		problems = append(problems, "no backend available")
	}

	if len(problems) == 0 {
		return
	}
	log.Printf("⚠️ 健康检查发现问题: %v", problems)
	if s.deps.Events != nil {
		_ = s.deps.Events.LogWarning(models.EventTypeHealthCheck, "健康检查发现问题", map[string]interface{}{
			"problems": problems,
		})
	}
}
