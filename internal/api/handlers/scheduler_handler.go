package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumoxuan/CodeMentor-API/internal/scheduler"
)

// JobLister 任务状态提供方
type JobLister interface {
	Jobs() []scheduler.JobStatus
}

// SchedulerHandler 定时任务查询端点
type SchedulerHandler struct {
	jobs JobLister
}

// NewSchedulerHandler 创建调度处理器
func NewSchedulerHandler(jobs JobLister) *SchedulerHandler {
	return &SchedulerHandler{jobs: jobs}
}

// ListJobs 列出全部定时任务
// @Summary 定时任务状态
// @Tags scheduler
// @Produce json
// @Router /api/scheduler/jobs [get]
func (h *SchedulerHandler) ListJobs(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "jobs": []scheduler.JobStatus{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"jobs":    h.jobs.Jobs(),
	})
}
