package models

import "time"

// ModelVersionState 模型版本状态
const (
	// ModelStateCandidate 候选：训练完成，尚未评估通过
	ModelStateCandidate = "candidate"
	// ModelStateCurrent 当前：正在对外提供服务（同一时刻至多一个）
	ModelStateCurrent = "current"
	// ModelStateBackedUp 已备份：被更新版本替换的旧模型
	ModelStateBackedUp = "backed-up"
	// ModelStateDiscarded 已丢弃：评估未达标的候选
	ModelStateDiscarded = "discarded"
)

// ModelVersion 本地模型版本记录
// 版本号由训练启动时间派生（20060102_150405），晋升流程保证
// current 槽位的切换对调用方原子可见（旧模型先改名备份）。
type ModelVersion struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Version       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"version"`
	AccuracyScore float64   `gorm:"not null;default:0" json:"accuracy_score"`
	SuccessRate   float64   `gorm:"not null;default:0" json:"success_rate"`
	AvgLatencyMs  int64     `gorm:"not null;default:0" json:"avg_latency_ms"`
	SampleCount   int       `gorm:"not null;default:0" json:"sample_count"`
	State         string    `gorm:"type:varchar(20);not null;default:'candidate';index" json:"state"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ModelVersion) TableName() string {
	return "model_versions"
}
