package stats

import (
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"gorm.io/gorm"
)

// historyMinRecords 历史优选生效需要的最少调用记录数
const historyMinRecords = 3

// historyMinQuality 历史优选生效需要的最低平均质量分
const historyMinQuality = 0.7

// Repository 调用记录与分析数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RecordInvocation 追加一条后端调用记录
func (r *Repository) RecordInvocation(rec *models.InvocationRecord) error {
	return r.db.Create(rec).Error
}

// RecordComparison 追加一条双后端对比记录
func (r *Repository) RecordComparison(rec *models.ComparisonRecord) error {
	return r.db.Create(rec).Error
}

// backendHistory 分组聚合结果
type backendHistory struct {
	Backend    string
	AvgQuality float64
	Count      int64
}

// BestBackend 根据历史调用记录选出表现最佳的后端
// 只有积累了至少 3 条记录且平均质量分超过 0.7 的后端才有资格，
// 返回 false 表示没有后端满足条件
func (r *Repository) BestBackend(taskType models.TaskType, language string) (models.BackendID, bool, error) {
	var rows []backendHistory

	err := r.db.Model(&models.InvocationRecord{}).
		Select("backend, AVG(quality_score) AS avg_quality, COUNT(*) AS count").
		Where("task_type = ? AND language LIKE ?", string(taskType), "%"+language+"%").
		Group("backend").
		Having("COUNT(*) >= ? AND AVG(quality_score) > ?", historyMinRecords, historyMinQuality).
		Order("avg_quality DESC").
		Find(&rows).Error
	if err != nil {
		return "", false, err
	}

	if len(rows) == 0 {
		return "", false, nil
	}

	return models.BackendID(rows[0].Backend), true, nil
}

// BackendAggregate 单后端的聚合指标
type BackendAggregate struct {
	Backend      string  `json:"backend"`
	Requests     int64   `json:"requests"`
	AvgQuality   float64 `json:"avg_quality"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	TotalTokens  int64   `json:"total_tokens"`
}

// BackendAggregates 按后端聚合全部调用记录
func (r *Repository) BackendAggregates() ([]BackendAggregate, error) {
	var rows []BackendAggregate

	err := r.db.Model(&models.InvocationRecord{}).
		Select("backend, COUNT(*) AS requests, AVG(quality_score) AS avg_quality, " +
			"AVG(latency_ms) AS avg_latency_ms, SUM(tokens_used) AS total_tokens").
		Group("backend").
		Order("requests DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// TaskPreference 任务类型维度的后端表现
type TaskPreference struct {
	TaskType   string  `json:"task_type"`
	Backend    string  `json:"backend"`
	Requests   int64   `json:"requests"`
	AvgQuality float64 `json:"avg_quality"`
}

// TaskPreferences 按 (task_type, backend) 聚合调用记录
// 同一任务类型内按平均质量分倒序，排第一的即当前事实上的偏好后端
func (r *Repository) TaskPreferences() ([]TaskPreference, error) {
	var rows []TaskPreference

	err := r.db.Model(&models.InvocationRecord{}).
		Select("task_type, backend, COUNT(*) AS requests, AVG(quality_score) AS avg_quality").
		Group("task_type, backend").
		Order("task_type, avg_quality DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// InvocationCount 调用记录总数
func (r *Repository) InvocationCount() (int64, error) {
	var count int64
	err := r.db.Model(&models.InvocationRecord{}).Count(&count).Error
	return count, err
}
