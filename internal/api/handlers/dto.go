package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lumoxuan/CodeMentor-API/internal/invoker"
)

// ErrorResponse 统一错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// respondError 输出统一格式的错误
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// respondValidationError 输出参数校验错误
func respondValidationError(c *gin.Context, err error) {
	c.JSON(400, ErrorResponse{Error: ErrorDetail{
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request parameters",
		Details: err.Error(),
	}})
}

// AskRequest 问答请求
type AskRequest struct {
	Question      string `json:"question" binding:"required"`
	Context       string `json:"context"`
	Language      string `json:"language"`
	TaskType      string `json:"task_type"`
	UseBothModels bool   `json:"use_both_models"`
	SessionID     string `json:"session_id"`
}

// AskResponse 问答响应
type AskResponse struct {
	Response     string  `json:"response"`
	ModelUsed    string  `json:"model_used"`
	TokensUsed   int     `json:"tokens_used"`
	ResponseTime float64 `json:"response_time"` // 秒
	QualityScore float64 `json:"quality_score"`
	Language     string  `json:"language"`
	TaskType     string  `json:"task_type"`
	QueryID      string  `json:"query_id,omitempty"`

	// 双后端对比模式附加字段
	Comparison bool                   `json:"comparison,omitempty"`
	OpenAI     *invoker.VendorOutcome `json:"openai,omitempty"`
	DeepSeek   *invoker.VendorOutcome `json:"deepseek,omitempty"`
}

// GenerateCodeRequest 代码生成请求
type GenerateCodeRequest struct {
	Description string `json:"description" binding:"required"`
	Language    string `json:"language"`
	Context     string `json:"context"`
	SessionID   string `json:"session_id"`
}

// DebugCodeRequest 代码调试请求
type DebugCodeRequest struct {
	Code         string `json:"code" binding:"required"`
	ErrorMessage string `json:"error_message"`
	Language     string `json:"language"`
	SessionID    string `json:"session_id"`
}

// LearnConceptRequest 概念学习请求
type LearnConceptRequest struct {
	Concept   string `json:"concept" binding:"required"`
	Language  string `json:"language"`
	SessionID string `json:"session_id"`
}

// AnalyzeCodeRequest 代码分析请求
type AnalyzeCodeRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
}

// FeedbackRequest 回答评分请求
type FeedbackRequest struct {
	QueryID string `json:"query_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
}
