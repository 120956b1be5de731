package models

import "time"

// TrainingSample 训练样本
// 来自爬虫和用户高分问答的 Q&A 对。被成功晋升的模型消费后
// 只翻转 used_for_training 标记，永不删除，以便全量重放训练。
type TrainingSample struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Question        string    `gorm:"type:text;not null" json:"question"`
	Answer          string    `gorm:"type:text;not null" json:"answer"`
	Language        string    `gorm:"type:varchar(50);not null;default:'python'" json:"language"`
	Category        string    `gorm:"type:varchar(100)" json:"category"`
	SourceType      string    `gorm:"type:varchar(100)" json:"source_type"` // stackoverflow, github, docs, user_query
	SourceURL       string    `gorm:"type:varchar(1000)" json:"source_url"`
	QualityScore    float64   `gorm:"not null;default:0;index" json:"quality_score"`
	UsedForTraining bool      `gorm:"not null;default:false;index" json:"used_for_training"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (TrainingSample) TableName() string {
	return "training_samples"
}
