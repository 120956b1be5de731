package models

import "time"

// KnowledgeItem 知识库条目
// 爬虫收集的非问答形态内容（文档章节、代码讲解等），
// 供本地专家模型重建索引时使用
type KnowledgeItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"type:varchar(500);not null" json:"title"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	SourceType   string    `gorm:"type:varchar(100);not null;index" json:"source_type"` // docs, stackoverflow, github
	SourceURL    string    `gorm:"type:varchar(1000);index" json:"source_url"`
	Language     string    `gorm:"type:varchar(50);not null;default:'python'" json:"language"`
	Category     string    `gorm:"type:varchar(100)" json:"category"`
	QualityScore float64   `gorm:"not null;default:0;index" json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (KnowledgeItem) TableName() string {
	return "knowledge_items"
}
