package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumoxuan/CodeMentor-API/internal/invoker"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/quality"
	"github.com/lumoxuan/CodeMentor-API/internal/query"
)

// AskHandler 问答相关端点
type AskHandler struct {
	invoker  *invoker.Invoker
	detector quality.Detector
	analyzer *quality.CodeAnalyzer
	queries  *query.Service
}

// NewAskHandler 创建问答处理器
func NewAskHandler(inv *invoker.Invoker, detector quality.Detector, analyzer *quality.CodeAnalyzer, queries *query.Service) *AskHandler {
	return &AskHandler{
		invoker:  inv,
		detector: detector,
		analyzer: analyzer,
		queries:  queries,
	}
}

// Ask 通用问答
// @Summary 提交编程问题
// @Tags ask
// @Accept json
// @Produce json
// @Param request body AskRequest true "问题"
// @Success 200 {object} AskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/ask [post]
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	h.answer(c, &req)
}

// GenerateCode 代码生成
// @Summary 根据描述生成代码
// @Tags ask
// @Router /api/generate-code [post]
func (h *AskHandler) GenerateCode(c *gin.Context) {
	var req GenerateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	h.answer(c, &AskRequest{
		Question:  req.Description,
		Context:   req.Context,
		Language:  req.Language,
		TaskType:  string(models.TaskCodeGeneration),
		SessionID: req.SessionID,
	})
}

// DebugCode 代码调试
// @Summary 提交报错代码获取调试帮助
// @Tags ask
// @Router /api/debug-code [post]
func (h *AskHandler) DebugCode(c *gin.Context) {
	var req DebugCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("My code is not working as expected. Please help me debug it.\n\n")
	sb.WriteString("Code:\n```\n")
	sb.WriteString(req.Code)
	sb.WriteString("\n```\n")
	if req.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("\nError message:\n%s\n", req.ErrorMessage))
	}

	h.answer(c, &AskRequest{
		Question:  sb.String(),
		Language:  req.Language,
		TaskType:  string(models.TaskDebugging),
		SessionID: req.SessionID,
	})
}

// LearnConcept 概念学习
// @Summary 请求讲解编程概念
// @Tags ask
// @Router /api/learn-concept [post]
func (h *AskHandler) LearnConcept(c *gin.Context) {
	var req LearnConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	h.answer(c, &AskRequest{
		Question:  fmt.Sprintf("Please explain the concept of %s with examples.", req.Concept),
		Language:  req.Language,
		TaskType:  string(models.TaskLearning),
		SessionID: req.SessionID,
	})
}

// AnalyzeCode 本地代码分析
// 不经过任何后端，纯启发式规则
// @Summary 代码模式与问题分析
// @Tags ask
// @Router /api/analyze-code [post]
func (h *AskHandler) AnalyzeCode(c *gin.Context) {
	var req AnalyzeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	analysis := h.analyzer.Analyze(req.Code, req.Language)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"analysis": analysis,
	})
}

// Feedback 提交回答评分
// @Summary 对某次回答打分（1-5）
// @Tags ask
// @Router /api/feedback [post]
func (h *AskHandler) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.queries.SubmitFeedback(req.QueryID, req.Rating); err != nil {
		switch {
		case errors.Is(err, query.ErrQueryNotFound):
			respondError(c, http.StatusNotFound, "QUERY_NOT_FOUND", "Query not found")
		case errors.Is(err, query.ErrInvalidRating):
			respondError(c, http.StatusBadRequest, "INVALID_RATING", "Rating must be between 1 and 5")
		default:
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save feedback")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// answer 补全语言与任务类型后执行调用并落库
func (h *AskHandler) answer(c *gin.Context, req *AskRequest) {
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = h.detector.DetectLanguage(req.Question)
	}

	var taskType models.TaskType
	if req.TaskType == "" {
		taskType = h.detector.DetectTaskType(req.Question)
	} else {
		taskType = models.TaskType(req.TaskType)
		// 未知任务类型落入通用助手模板
		if !taskType.Valid() {
			taskType = models.TaskGeneral
		}
	}

	result := h.invoker.Invoke(c.Request.Context(), &invoker.Request{
		Question: req.Question,
		Context:  req.Context,
		Language: language,
		TaskType: taskType,
		UseBoth:  req.UseBothModels,
	})

	if !result.Success {
		respondError(c, http.StatusBadGateway, "BACKEND_ERROR", result.Error)
		return
	}

	resp := AskResponse{
		Response:     result.Response,
		ModelUsed:    string(result.Backend),
		TokensUsed:   result.TokensUsed,
		ResponseTime: float64(result.LatencyMs) / 1000.0,
		QualityScore: result.Quality,
		Language:     language,
		TaskType:     string(taskType),
		Comparison:   result.Comparison,
		OpenAI:       result.OpenAI,
		DeepSeek:     result.DeepSeek,
	}

	// 提问记录失败不影响回答返回
	queryID, err := h.queries.Record(&models.UserQuery{
		Question:     req.Question,
		Answer:       result.Response,
		Language:     language,
		TaskType:     string(taskType),
		Backend:      string(result.Backend),
		SessionID:    req.SessionID,
		ResponseTime: resp.ResponseTime,
		TokensUsed:   result.TokensUsed,
		QualityScore: result.Quality,
	})
	if err != nil {
		log.Printf("⚠️ 记录用户提问失败: %v", err)
	} else {
		resp.QueryID = queryID
	}

	c.JSON(http.StatusOK, resp)
}
