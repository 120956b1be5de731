package models

import "time"

// UserQuery 用户提问记录
// 记录每一次问答交互；高评分的记录会被转化为训练样本
type UserQuery struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	QueryID      string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"query_id"` // UUID，对外暴露
	Question     string    `gorm:"type:text;not null" json:"question"`
	Answer       string    `gorm:"type:text;not null" json:"answer"`
	Language     string    `gorm:"type:varchar(50);not null;default:'general'" json:"language"`
	TaskType     string    `gorm:"type:varchar(50);not null;default:'general'" json:"task_type"`
	Backend      string    `gorm:"type:varchar(20)" json:"backend"`
	SessionID    string    `gorm:"type:varchar(100);index" json:"session_id"`
	ResponseTime float64   `json:"response_time"` // 秒
	TokensUsed   int       `json:"tokens_used"`
	QualityScore float64   `json:"quality_score"`
	Rating       int       `gorm:"default:0" json:"rating"` // 1-5，0 表示未评分
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (UserQuery) TableName() string {
	return "user_queries"
}
