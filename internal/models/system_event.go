package models

import "time"

// SystemEvent 系统事件日志
// 用于记录系统重要事件，如模型晋升、训练失败、采集结果、备份异常等
type SystemEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(50);not null;index" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Level     string    `gorm:"type:varchar(20);not null;default:'info'" json:"level"` // info, warning, error
	Metadata  string    `gorm:"type:json" json:"metadata,omitempty"`                   // 额外的元数据（JSON 格式）
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SystemEvent) TableName() string {
	return "system_events"
}

// EventType 事件类型常量
const (
	EventTypeModelPromoted  = "model_promoted"  // 模型晋升
	EventTypeModelRestored  = "model_restored"  // 手动恢复备份
	EventTypeModelDiscarded = "model_discarded" // 候选模型被丢弃
	EventTypeTrainingFailed = "training_failed" // 训练失败
	EventTypeBackupFailed   = "backup_failed"   // 模型备份失败
	EventTypeCollection     = "data_collection" // 数据采集
	EventTypeCleanup        = "cleanup"         // 定期清理
	EventTypeHealthCheck    = "health_check"    // 健康检查
	EventTypeBackendError   = "backend_error"   // 后端调用错误
)

// EventLevel 事件级别常量
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)
