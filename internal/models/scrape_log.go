package models

import "time"

// ScrapeStatus 采集任务状态常量
const (
	ScrapeStatusRunning        = "running"
	ScrapeStatusCompleted      = "completed"
	ScrapeStatusPartialFailure = "partial_failure"
	ScrapeStatusFailed         = "failed"
)

// ScrapeLog 数据采集日志
// 每次采集任务（定时或手动触发）对应一条记录
type ScrapeLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Source         string     `gorm:"type:varchar(100);not null;index" json:"source"` // stackoverflow, github, docs, scheduled_collection
	Status         string     `gorm:"type:varchar(50);not null" json:"status"`
	URLsScraped    int        `gorm:"not null;default:0" json:"urls_scraped"`
	ItemsCollected int        `gorm:"not null;default:0" json:"items_collected"`
	ErrorsCount    int        `gorm:"not null;default:0" json:"errors_count"`
	ErrorDetails   string     `gorm:"type:text" json:"error_details,omitempty"`
	StartedAt      time.Time  `gorm:"index" json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (ScrapeLog) TableName() string {
	return "scrape_logs"
}
