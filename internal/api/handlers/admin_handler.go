package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lumoxuan/CodeMentor-API/internal/events"
	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/modelstore"
	"github.com/lumoxuan/CodeMentor-API/internal/scraper"
	"github.com/lumoxuan/CodeMentor-API/internal/trainer"
)

// AdminHandler 管理端端点
// 全部路由都在 Token 认证之后
type AdminHandler struct {
	processor   *scraper.Processor
	scrapers    []scraper.Scraper
	trainer     *trainer.Service
	store       *modelstore.Store
	events      *events.Service
	reloader    trainer.ModelReloader
	keepBackups int
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(processor *scraper.Processor, scrapers []scraper.Scraper, trainerSvc *trainer.Service,
	store *modelstore.Store, eventsSvc *events.Service, reloader trainer.ModelReloader, keepBackups int) *AdminHandler {
	return &AdminHandler{
		processor:   processor,
		scrapers:    scrapers,
		trainer:     trainerSvc,
		store:       store,
		events:      eventsSvc,
		reloader:    reloader,
		keepBackups: keepBackups,
	}
}

// Collect 手动触发一轮数据采集
// @Summary 触发数据采集
// @Tags admin
// @Router /api/admin/collect [post]
func (h *AdminHandler) Collect(c *gin.Context) {
	result, err := h.processor.Run(c.Request.Context(), "manual", h.scrapers...)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "COLLECTION_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// Train 手动触发一轮训练
// @Summary 触发模型训练
// @Tags admin
// @Param force query bool false "跳过最少样本数检查"
// @Router /api/admin/train [post]
func (h *AdminHandler) Train(c *gin.Context) {
	force := c.Query("force") == "true"

	outcome, err := h.trainer.Train(c.Request.Context(), force)
	if err != nil {
		switch {
		case errors.Is(err, trainer.ErrTrainingInProgress):
			respondError(c, http.StatusConflict, "TRAINING_IN_PROGRESS", "A training run is already in progress")
		case errors.Is(err, trainer.ErrInsufficientData):
			respondError(c, http.StatusBadRequest, "INSUFFICIENT_DATA", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "TRAINING_FAILED", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"outcome": outcome,
	})
}

// ListBackups 列出全部模型备份
// @Summary 模型备份列表
// @Tags admin
// @Router /api/admin/backups [get]
func (h *AdminHandler) ListBackups(c *gin.Context) {
	backups, err := h.store.ListBackups()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list backups")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(backups),
		"backups": backups,
	})
}

// RestoreBackup 恢复指定版本的备份为当前模型
// @Summary 恢复模型备份
// @Tags admin
// @Param version path string true "备份版本号"
// @Router /api/admin/backups/{version}/restore [post]
func (h *AdminHandler) RestoreBackup(c *gin.Context) {
	version := c.Param("version")

	if err := h.store.Restore(version); err != nil {
		if errors.Is(err, modelstore.ErrBackupNotFound) {
			respondError(c, http.StatusNotFound, "BACKUP_NOT_FOUND", "Backup version not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "RESTORE_FAILED", err.Error())
		return
	}

	if h.reloader != nil {
		if err := h.reloader.Reload(); err != nil {
			log.Printf("⚠️ 恢复后重载本地模型失败: %v", err)
		}
	}

	_ = h.events.LogInfo(models.EventTypeModelRestored, "手动恢复模型备份", map[string]interface{}{
		"version": version,
	})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"version": version,
	})
}

// PruneBackups 清理旧备份
// @Summary 按保留数量清理备份
// @Tags admin
// @Router /api/admin/backups/prune [post]
func (h *AdminHandler) PruneBackups(c *gin.Context) {
	keep := h.keepBackups
	if raw := c.Query("keep"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			keep = n
		}
	}

	deleted, err := h.store.Prune(keep)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "PRUNE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": deleted,
		"kept":    keep,
	})
}

// ListEvents 查询系统事件
// @Summary 系统事件审计
// @Tags admin
// @Param type query string false "事件类型过滤"
// @Param level query string false "级别过滤"
// @Param limit query int false "返回条数"
// @Router /api/admin/events [get]
func (h *AdminHandler) ListEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	var (
		list []models.SystemEvent
		err  error
	)
	switch {
	case c.Query("type") != "":
		list, err = h.events.GetEventsByType(c.Query("type"), limit)
	case c.Query("level") != "":
		list, err = h.events.GetEventsByLevel(c.Query("level"), limit)
	default:
		list, err = h.events.GetRecentEvents(limit)
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(list),
		"events": list,
	})
}
