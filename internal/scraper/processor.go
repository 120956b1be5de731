package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/knowledge"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/trainer"
)

// RunResult 单次采集的统计结果
type RunResult struct {
	Processed      int `json:"processed"`
	Samples        int `json:"samples"`
	KnowledgeItems int `json:"knowledge_items"`
	Duplicates     int `json:"duplicates"`
	LowQuality     int `json:"low_quality"`
	Errors         int `json:"errors"`
}

// Processor 采集流水线
// 调度各爬虫，去重、按质量过滤，把问答对写入训练样本、
// 其余内容写入知识库，并为每次运行落一条采集日志
type Processor struct {
	db         *gorm.DB
	knowledge  *knowledge.Repository
	samples    *trainer.Repository
	events     *events.Service
	minQuality float64
}

// NewProcessor 创建采集流水线
func NewProcessor(db *gorm.DB, kb *knowledge.Repository, samples *trainer.Repository, ev *events.Service, minQuality float64) *Processor {
	return &Processor{
		db:         db,
		knowledge:  kb,
		samples:    samples,
		events:     ev,
		minQuality: minQuality,
	}
}

// Run 执行一轮采集
// source 标识触发来源（如 scheduled_collection、manual）
func (p *Processor) Run(ctx context.Context, source string, scrapers ...Scraper) (*RunResult, error) {
	scrapeLog := &models.ScrapeLog{
		Source:    source,
		Status:    models.ScrapeStatusRunning,
		StartedAt: time.Now(),
	}
	if err := p.db.Create(scrapeLog).Error; err != nil {
		return nil, fmt.Errorf("创建采集日志失败: %w", err)
	}

	result := &RunResult{}
	var errDetails []string
	failedScrapers := 0

	for _, s := range scrapers {
		items, err := s.Scrape(ctx)
		if err != nil {
			log.Printf("❌ 数据源 %s 采集失败: %v", s.Name(), err)
			errDetails = append(errDetails, fmt.Sprintf("%s: %v", s.Name(), err))
			failedScrapers++
			result.Errors++
		}
		result.Processed += len(items)
		for _, item := range items {
			outcome, err := p.process(item)
			if err != nil {
				errDetails = append(errDetails, fmt.Sprintf("%s: %v", s.Name(), err))
				result.Errors++
				continue
			}
			switch outcome {
			case outcomeLowQuality:
				result.LowQuality++
			case outcomeDuplicate:
				result.Duplicates++
			case outcomeSample:
				result.Samples++
			case outcomeKnowledge:
				result.KnowledgeItems++
			}
		}
	}

	p.finish(scrapeLog, result, failedScrapers, len(scrapers), errDetails)

	if p.events != nil {
		metadata := map[string]interface{}{
			"source":          source,
			"samples":         result.Samples,
			"knowledge_items": result.KnowledgeItems,
			"duplicates":      result.Duplicates,
			"errors":          result.Errors,
		}
		if result.Errors > 0 {
			_ = p.events.LogWarning(models.EventTypeCollection, "数据采集完成（部分失败）", metadata)
		} else {
			_ = p.events.LogInfo(models.EventTypeCollection, "数据采集完成", metadata)
		}
	}

	log.Printf("✅ 采集完成: 新增样本 %d，知识条目 %d，重复 %d，低质量 %d，错误 %d",
		result.Samples, result.KnowledgeItems, result.Duplicates, result.LowQuality, result.Errors)
	return result, nil
}

type processOutcome int

const (
	outcomeLowQuality processOutcome = iota
	outcomeDuplicate
	outcomeSample
	outcomeKnowledge
)

// process 处理单条采集结果：质量过滤、查重、按形态入库
func (p *Processor) process(item *Item) (processOutcome, error) {
	if item.QualityScore < p.minQuality {
		return outcomeLowQuality, nil
	}
	if p.isDuplicate(item) {
		return outcomeDuplicate, nil
	}

	if item.IsQA() {
		sample := &models.TrainingSample{
			Question:     item.Question,
			Answer:       item.Answer,
			Language:     item.Language,
			Category:     item.Category,
			SourceType:   item.SourceType,
			SourceURL:    item.SourceURL,
			QualityScore: item.QualityScore,
		}
		if err := p.samples.CreateSample(sample); err != nil {
			return outcomeSample, fmt.Errorf("保存训练样本失败: %w", err)
		}
		return outcomeSample, nil
	}

	kb := &models.KnowledgeItem{
		Title:        item.Title,
		Content:      item.Content,
		SourceType:   item.SourceType,
		SourceURL:    item.SourceURL,
		Language:     item.Language,
		Category:     item.Category,
		QualityScore: item.QualityScore,
	}
	if err := p.knowledge.Create(kb); err != nil {
		return outcomeKnowledge, fmt.Errorf("保存知识条目失败: %w", err)
	}
	return outcomeKnowledge, nil
}

// isDuplicate 按来源 URL 对训练样本和知识库双向查重
func (p *Processor) isDuplicate(item *Item) bool {
	if item.SourceURL == "" {
		return false
	}
	if exists, err := p.knowledge.ExistsByURL(item.SourceURL); err == nil && exists {
		return true
	}
	if exists, err := p.samples.SampleExistsByURL(item.SourceURL); err == nil && exists {
		return true
	}
	return false
}

func (p *Processor) finish(scrapeLog *models.ScrapeLog, result *RunResult, failedScrapers, totalScrapers int, errDetails []string) {
	now := time.Now()
	scrapeLog.CompletedAt = &now
	scrapeLog.URLsScraped = result.Processed
	scrapeLog.ItemsCollected = result.Samples + result.KnowledgeItems
	scrapeLog.ErrorsCount = result.Errors
	scrapeLog.ErrorDetails = strings.Join(errDetails, "; ")

	switch {
	case totalScrapers > 0 && failedScrapers == totalScrapers && scrapeLog.ItemsCollected == 0:
		scrapeLog.Status = models.ScrapeStatusFailed
	case result.Errors > 0:
		scrapeLog.Status = models.ScrapeStatusPartialFailure
	default:
		scrapeLog.Status = models.ScrapeStatusCompleted
	}

	if err := p.db.Save(scrapeLog).Error; err != nil {
		log.Printf("⚠️ 更新采集日志失败: %v", err)
	}
}

// CleanupOldLogs 删除超过保留期的采集日志，返回删除数量
func (p *Processor) CleanupOldLogs(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := p.db.Where("started_at < ?", cutoff).Delete(&models.ScrapeLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理采集日志失败: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("🧹 已清理 %d 条过期采集日志", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// RecentLogs 返回最近的采集日志
func (p *Processor) RecentLogs(limit int) ([]models.ScrapeLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []models.ScrapeLog
	err := p.db.Order("started_at DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("查询采集日志失败: %w", err)
	}
	return logs, nil
}
