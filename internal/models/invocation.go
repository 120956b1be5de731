package models

import "time"

// InvocationRecord 后端调用记录
// 每次请求后端生成回答都会追加一条，写入后不再修改。
// 选择器根据这些记录计算每个 (task_type, language) 分组下表现最好的后端。
type InvocationRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Backend      string    `gorm:"type:varchar(20);not null;index" json:"backend"`
	TaskType     string    `gorm:"type:varchar(50);not null;index" json:"task_type"`
	Language     string    `gorm:"type:varchar(50);not null" json:"language"`
	PromptHash   string    `gorm:"type:varchar(64);not null" json:"prompt_hash"`
	QualityScore float64   `gorm:"not null;default:0" json:"quality_score"`
	LatencyMs    int64     `gorm:"not null" json:"latency_ms"`
	TokensUsed   int       `gorm:"not null;default:0" json:"tokens_used"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (InvocationRecord) TableName() string {
	return "invocation_records"
}

// ComparisonRecord 双后端对比记录
// 对比模式下保存两个供应商的完整响应，便于离线分析模型偏好
type ComparisonRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Question          string    `gorm:"type:text;not null" json:"question"`
	TaskType          string    `gorm:"type:varchar(50);not null" json:"task_type"`
	OpenAIResponse    string    `gorm:"type:text" json:"openai_response"`
	DeepSeekResponse  string    `gorm:"type:text" json:"deepseek_response"`
	OpenAILatencyMs   int64     `json:"openai_latency_ms"`
	DeepSeekLatencyMs int64     `json:"deepseek_latency_ms"`
	OpenAITokens      int       `json:"openai_tokens"`
	DeepSeekTokens    int       `json:"deepseek_tokens"`
	PreferredBackend  string    `gorm:"type:varchar(20)" json:"preferred_backend"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName 指定表名
func (ComparisonRecord) TableName() string {
	return "comparison_records"
}
