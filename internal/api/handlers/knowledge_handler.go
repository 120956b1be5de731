package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumoxuan/CodeMentor-API/internal/knowledge"
)

// KnowledgeHandler 知识库检索端点
type KnowledgeHandler struct {
	repo *knowledge.Repository
}

// NewKnowledgeHandler 创建知识库处理器
func NewKnowledgeHandler(repo *knowledge.Repository) *KnowledgeHandler {
	return &KnowledgeHandler{repo: repo}
}

// Search 知识库全文检索
// @Summary 按关键词检索知识条目
// @Tags knowledge
// @Produce json
// @Param q query string true "关键词"
// @Param limit query int false "返回条数上限（默认 20，最大 50）"
// @Router /api/knowledge/search [get]
func (h *KnowledgeHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondError(c, http.StatusBadRequest, "MISSING_QUERY", "Query parameter 'q' is required")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := h.repo.Search(q, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   q,
		"count":   len(items),
		"results": items,
	})
}
