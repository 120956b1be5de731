package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/config"
	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
)

// State 训练流程状态
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateTraining   State = "training"
	StateEvaluating State = "evaluating"
	StatePromoting  State = "promoting"
	StateDiscarding State = "discarding"
)

var (
	// ErrInsufficientData 样本数量未达到训练门槛
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrTrainingInProgress 已有训练在进行
	ErrTrainingInProgress = errors.New("training already in progress")
)

// ModelReloader 晋升后通知本地后端重新加载索引
type ModelReloader interface {
	Reload() error
}

// Status 训练器对外状态
type Status struct {
	State          State      `json:"state"`
	LastVersion    string     `json:"last_version,omitempty"`
	LastOutcome    string     `json:"last_outcome,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
}

// Outcome 一次训练的结果
type Outcome struct {
	Version    string      `json:"version"`
	Promoted   bool        `json:"promoted"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Samples    int         `json:"samples"`
}

// Service 训练与晋升服务
// 状态机: idle → collecting → training → evaluating → {promoting, discarding} → idle
type Service struct {
	repo      *Repository
	store     *modelstore.Store
	evaluator *Evaluator
	events    *events.Service
	reloader  ModelReloader
	cfg       config.TrainingConfig
	keep      int

	mu       sync.Mutex
	running  bool
	state    State
	lastInfo Status
}

// NewService 创建训练服务
func NewService(repo *Repository, store *modelstore.Store, evaluator *Evaluator, eventsSvc *events.Service, reloader ModelReloader, cfg config.TrainingConfig, keepBackups int) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		evaluator: evaluator,
		events:    eventsSvc,
		reloader:  reloader,
		cfg:       cfg,
		keep:      keepBackups,
		state:     StateIdle,
	}
}

// Status 当前训练状态快照
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.lastInfo
	status.State = s.state
	return status
}

// setState 切换状态
func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	log.Printf("🔄 训练状态: %s", state)
}

// Train 执行一轮完整训练
// force 跳过最少样本数检查（手动触发用）；同一时刻只允许一轮训练
func (s *Service) Train(ctx context.Context, force bool) (*Outcome, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrTrainingInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.state = StateIdle
		s.mu.Unlock()
	}()

	outcome, err := s.train(ctx, force)

	now := time.Now()
	s.mu.Lock()
	s.lastInfo.LastFinishedAt = &now
	if err != nil {
		s.lastInfo.LastError = err.Error()
		s.lastInfo.LastOutcome = "failed"
	} else {
		s.lastInfo.LastError = ""
		s.lastInfo.LastVersion = outcome.Version
		if outcome.Promoted {
			s.lastInfo.LastOutcome = "promoted"
		} else {
			s.lastInfo.LastOutcome = "discarded"
		}
	}
	s.mu.Unlock()

	return outcome, err
}

func (s *Service) train(ctx context.Context, force bool) (*Outcome, error) {
	// 1. 收集样本
	s.setState(StateCollecting)

	samples, err := s.repo.CollectSamples(s.cfg.MaxSamples, s.cfg.MinQualityScore)
	if err != nil {
		return nil, fmt.Errorf("收集训练样本失败: %w", err)
	}

	if len(samples) < s.cfg.MinSamples && !force {
		log.Printf("📊 样本不足: %d/%d，跳过训练", len(samples), s.cfg.MinSamples)
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(samples), s.cfg.MinSamples)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no eligible samples", ErrInsufficientData)
	}

	version := time.Now().Format("20060102_150405")

	// 2. 训练前备份当前模型；备份失败是硬性前置条件失败
	if s.store.HasCurrent() {
		if err := s.store.Backup(version); err != nil {
			s.events.LogError(models.EventTypeBackupFailed,
				fmt.Sprintf("训练 %s 前备份失败，训练中止", version),
				map[string]interface{}{"version": version, "error": err.Error()})
			return nil, fmt.Errorf("训练前备份失败: %w", err)
		}
	}

	// 3. 微调：在当前索引基础上重建候选索引
	s.setState(StateTraining)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, fullRetrain := s.buildIndex(version, samples)

	staging := s.store.TrainingDir(version)
	if err := modelstore.SaveIndex(staging, idx); err != nil {
		s.events.LogError(models.EventTypeTrainingFailed,
			fmt.Sprintf("训练 %s 写入候选索引失败", version),
			map[string]interface{}{"version": version, "error": err.Error()})
		return nil, fmt.Errorf("写入候选索引失败: %w", err)
	}

	// 4. 评估
	s.setState(StateEvaluating)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eval := s.evaluator.Evaluate(idx, samples, fullRetrain)
	log.Printf("📊 评估结果 version=%s accuracy=%.3f success_rate=%.2f latency=%dms samples=%d",
		version, eval.AccuracyScore, eval.SuccessRate, eval.AvgLatencyMs, eval.SampleCount)

	outcome := &Outcome{Version: version, Evaluation: eval, Samples: len(samples)}

	// 5. 晋升判定
	reasons, err := s.promotionFailures(eval)
	if err != nil {
		s.events.LogError(models.EventTypeTrainingFailed,
			fmt.Sprintf("训练 %s 晋升判定失败", version),
			map[string]interface{}{"version": version, "error": err.Error()})
		return nil, err
	}
	if len(reasons) > 0 {
		s.setState(StateDiscarding)
		outcome.Reason = strings.Join(reasons, "; ")
		if err := s.discard(version, eval, outcome.Reason); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	s.setState(StatePromoting)
	if err := s.promote(version, staging, eval, samples); err != nil {
		return nil, err
	}

	outcome.Promoted = true
	return outcome, nil
}

// EvaluateCurrent 用最新的未消费样本评估当前模型
// 定时评估任务调用，只产出指标，不改动模型
func (s *Service) EvaluateCurrent() (*Evaluation, error) {
	idx, err := s.store.CurrentInfo()
	if err != nil {
		return nil, fmt.Errorf("读取当前模型失败: %w", err)
	}

	samples, err := s.repo.CollectSamples(s.cfg.MaxSamples, s.cfg.MinQualityScore)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.New("no samples available for evaluation")
	}

	return s.evaluator.Evaluate(idx, samples, false), nil
}

// buildIndex 合并当前索引与新样本，做 epochs 轮精炼
// 没有当前索引时为全量重建
func (s *Service) buildIndex(version string, samples []models.TrainingSample) (*modelstore.Index, bool) {
	entries := make([]modelstore.IndexEntry, 0, len(samples))
	fullRetrain := true

	if current, err := s.store.CurrentInfo(); err == nil {
		entries = append(entries, current.Entries...)
		fullRetrain = false
	}

	for i := range samples {
		entries = append(entries, modelstore.IndexEntry{
			Question:     samples[i].Question,
			Answer:       samples[i].Answer,
			Language:     samples[i].Language,
			Category:     samples[i].Category,
			QualityScore: samples[i].QualityScore,
		})
	}

	// 每轮精炼去一次重并按质量排序，保留同问题的最高质量答案
	epochs := s.cfg.Epochs
	if epochs < 1 {
		epochs = 1
	}
	for epoch := 0; epoch < epochs; epoch++ {
		entries = refineEntries(entries)
	}

	return &modelstore.Index{
		Version:     version,
		BuiltAt:     time.Now(),
		Epochs:      epochs,
		SampleCount: len(entries),
		Entries:     entries,
	}, fullRetrain
}

// refineEntries 一轮精炼：质量倒序并按问题去重
func refineEntries(entries []modelstore.IndexEntry) []modelstore.IndexEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].QualityScore > entries[j].QualityScore
	})

	seen := make(map[string]bool, len(entries))
	refined := entries[:0]
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Question))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		refined = append(refined, e)
	}

	return refined
}

// promotionFailures 返回未达标的晋升条件列表，空列表表示可以晋升
// 读取历史版本出错时返回 error，调用方必须中止本轮训练，
// 否则退化候选可能绕过提升检查被晋升
func (s *Service) promotionFailures(eval *Evaluation) ([]string, error) {
	var reasons []string

	if eval.AccuracyScore < s.cfg.MinAccuracy {
		reasons = append(reasons, fmt.Sprintf("accuracy %.3f below minimum %.2f", eval.AccuracyScore, s.cfg.MinAccuracy))
	}
	if eval.SuccessRate < s.cfg.MinSuccessRate {
		reasons = append(reasons, fmt.Sprintf("success_rate %.2f below minimum %.2f", eval.SuccessRate, s.cfg.MinSuccessRate))
	}

	// 相对上一版本的提升检查；没有历史版本时只看绝对门槛
	previous, err := s.repo.CurrentVersion()
	switch {
	case errors.Is(err, ErrVersionNotFound):
	case err != nil:
		return nil, fmt.Errorf("读取当前版本记录失败: %w", err)
	case eval.AccuracyScore < previous.AccuracyScore+s.cfg.ImprovementDelta:
		reasons = append(reasons, fmt.Sprintf("accuracy %.3f below previous %.3f + delta %.2f",
			eval.AccuracyScore, previous.AccuracyScore, s.cfg.ImprovementDelta))
	}

	return reasons, nil
}

// promote 晋升候选模型
func (s *Service) promote(version, staging string, eval *Evaluation, samples []models.TrainingSample) error {
	if err := s.store.Promote(staging); err != nil {
		s.events.LogError(models.EventTypeTrainingFailed,
			fmt.Sprintf("候选模型 %s 切换失败", version),
			map[string]interface{}{"version": version, "error": err.Error()})
		return fmt.Errorf("切换候选模型失败: %w", err)
	}

	// 消费的样本翻转标记
	ids := make([]uint, len(samples))
	for i := range samples {
		ids[i] = samples[i].ID
	}
	if err := s.repo.MarkSamplesUsed(ids); err != nil {
		return fmt.Errorf("标记训练样本失败: %w", err)
	}

	// 版本记录：旧 current 降级，新版本登记为 current
	if err := s.repo.DemoteCurrent(); err != nil {
		return fmt.Errorf("降级旧版本记录失败: %w", err)
	}
	if err := s.repo.CreateVersion(&models.ModelVersion{
		Version:       version,
		AccuracyScore: eval.AccuracyScore,
		SuccessRate:   eval.SuccessRate,
		AvgLatencyMs:  eval.AvgLatencyMs,
		SampleCount:   len(samples),
		State:         models.ModelStateCurrent,
	}); err != nil {
		return fmt.Errorf("登记模型版本失败: %w", err)
	}

	// 清理超出保留数量的备份
	if _, err := s.store.Prune(s.keep); err != nil {
		log.Printf("⚠️  清理旧备份失败: %v", err)
	}

	// 让本地后端立即用上新索引
	if s.reloader != nil {
		if err := s.reloader.Reload(); err != nil {
			log.Printf("⚠️  重新加载本地模型失败: %v", err)
		}
	}

	s.events.LogInfo(models.EventTypeModelPromoted,
		fmt.Sprintf("模型 %s 晋升为当前版本", version),
		map[string]interface{}{
			"version":      version,
			"accuracy":     eval.AccuracyScore,
			"success_rate": eval.SuccessRate,
			"samples":      len(samples),
		})

	log.Printf("✅ 模型已晋升: %s", version)
	return nil
}

// discard 丢弃候选模型
// 产物留在训练目录，样本不翻转标记，便于下一轮继续使用
func (s *Service) discard(version string, eval *Evaluation, reason string) error {
	if err := s.repo.CreateVersion(&models.ModelVersion{
		Version:       version,
		AccuracyScore: eval.AccuracyScore,
		SuccessRate:   eval.SuccessRate,
		AvgLatencyMs:  eval.AvgLatencyMs,
		SampleCount:   eval.SampleCount,
		State:         models.ModelStateDiscarded,
		Notes:         reason,
	}); err != nil {
		return fmt.Errorf("登记丢弃版本失败: %w", err)
	}

	s.events.LogWarning(models.EventTypeModelDiscarded,
		fmt.Sprintf("候选模型 %s 未达晋升标准: %s", version, reason),
		map[string]interface{}{
			"version":      version,
			"accuracy":     eval.AccuracyScore,
			"success_rate": eval.SuccessRate,
			"reason":       reason,
		})

	log.Printf("📊 候选模型已丢弃: %s (%s)", version, reason)
	return nil
}
