package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumoxuan/CodeMentor-API/internal/backend"
	"github.com/lumoxuan/CodeMentor-API/internal/knowledge"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/query"
	"github.com/lumoxuan/CodeMentor-API/internal/stats"
	"github.com/lumoxuan/CodeMentor-API/internal/trainer"
)

// StatusHandler 系统状态与统计端点
type StatusHandler struct {
	db          *gorm.DB
	registry    *backend.Registry
	store       *modelstore.Store
	trainer     *trainer.Service
	trainerRepo *trainer.Repository
	knowledge   *knowledge.Repository
	queries     *query.Service
	statsRepo   *stats.Repository
	counter     *stats.RequestCounter
}

// NewStatusHandler 创建状态处理器
func NewStatusHandler(db *gorm.DB, registry *backend.Registry, store *modelstore.Store,
	trainerSvc *trainer.Service, trainerRepo *trainer.Repository, kb *knowledge.Repository,
	queries *query.Service, statsRepo *stats.Repository, counter *stats.RequestCounter) *StatusHandler {
	return &StatusHandler{
		db:          db,
		registry:    registry,
		store:       store,
		trainer:     trainerSvc,
		trainerRepo: trainerRepo,
		knowledge:   kb,
		queries:     queries,
		statsRepo:   statsRepo,
		counter:     counter,
	}
}

// ModelStatus 当前模型信息
type ModelStatus struct {
	Version     string `json:"version"`
	SampleCount int    `json:"sample_count"`
	Entries     int    `json:"entries"`
	Present     bool   `json:"present"`
}

// Status 系统状态总览
// @Summary 系统状态
// @Tags status
// @Produce json
// @Router /api/status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	// 后端可用性
	availability := make(map[string]bool, len(models.AllBackends))
	for _, id := range models.AllBackends {
		b := h.registry.Get(id)
		availability[string(id)] = b != nil && b.Available()
	}

	// 当前模型
	model := ModelStatus{Version: "baseline"}
	if idx, err := h.store.CurrentInfo(); err == nil {
		model = ModelStatus{
			Version:     idx.Version,
			SampleCount: idx.SampleCount,
			Entries:     len(idx.Entries),
			Present:     true,
		}
	}

	totalSamples, unusedSamples, _ := h.trainerRepo.CountSamples()
	knowledgeCount, _ := h.knowledge.Count()
	queryCount, _ := h.queries.CountQueries()

	c.JSON(http.StatusOK, gin.H{
		"backends": availability,
		"model":    model,
		"training": h.trainer.Status(),
		"data": gin.H{
			"training_samples": totalSamples,
			"unused_samples":   unusedSamples,
			"knowledge_items":  knowledgeCount,
			"user_queries":     queryCount,
		},
		"requests": h.counter.GetStats(),
	})
}

// Analytics 后端使用分析
// @Summary 按后端和任务类型的调用聚合
// @Tags status
// @Produce json
// @Router /api/analytics [get]
func (h *StatusHandler) Analytics(c *gin.Context) {
	aggregates, err := h.statsRepo.BackendAggregates()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to aggregate invocations")
		return
	}
	preferences, err := h.statsRepo.TaskPreferences()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to aggregate task preferences")
		return
	}
	total, _ := h.statsRepo.InvocationCount()

	c.JSON(http.StatusOK, gin.H{
		"total_invocations": total,
		"backends":          aggregates,
		"task_preferences":  preferences,
	})
}

// Health 健康检查
// 数据库不可达视为不健康（503），其余问题只降级不拒绝
// @Summary 健康检查
// @Tags status
// @Produce json
// @Router /health [get]
func (h *StatusHandler) Health(c *gin.Context) {
	checks := gin.H{}
	healthy := true
	degraded := false

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		checks["database"] = "down"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if h.store.HasCurrent() {
		checks["model"] = "ok"
	} else {
		checks["model"] = "baseline_only"
		degraded = true
	}

	available := h.registry.Available()
	checks["backends_available"] = len(available)
	if len(available) == 0 {
		degraded = true
	}

	status := "healthy"
	code := http.StatusOK
	switch {
	case !healthy:
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	case degraded:
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": "CodeMentor-API",
		"checks":  checks,
	})
}
