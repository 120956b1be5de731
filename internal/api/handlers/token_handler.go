package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lumoxuan/CodeMentor-API/internal/token"
)

// TokenHandler Token HTTP 处理器
type TokenHandler struct {
	service *token.Service
}

// NewTokenHandler 创建 TokenHandler 实例
func NewTokenHandler(service *token.Service) *TokenHandler {
	return &TokenHandler{service: service}
}

// CreateToken 创建 Token
// @Summary 创建 Token
// @Tags tokens
// @Accept json
// @Produce json
// @Param token body token.CreateTokenRequest true "Token 信息"
// @Success 201 {object} token.TokenDTO
// @Failure 400 {object} ErrorResponse
// @Router /api/admin/tokens [post]
func (h *TokenHandler) CreateToken(c *gin.Context) {
	var req token.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	tok, err := h.service.CreateToken(req.Name, req.ExpiresAt, req.CustomToken)
	if err != nil {
		h.handleTokenError(c, err)
		return
	}

	// 完整 Token 仅在创建响应中出现一次
	c.JSON(http.StatusCreated, token.ToTokenDTO(tok, true))
}

// ListTokens 获取 Token 列表
// @Summary 获取 Token 列表
// @Tags tokens
// @Produce json
// @Success 200 {array} token.TokenDTO
// @Router /api/admin/tokens [get]
func (h *TokenHandler) ListTokens(c *gin.Context) {
	tokens, err := h.service.ListTokens()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to retrieve tokens")
		return
	}

	dtos := make([]*token.TokenDTO, len(tokens))
	for i, tok := range tokens {
		dtos[i] = token.ToTokenDTO(tok, false) // 列表里只给脱敏值
	}
	c.JSON(http.StatusOK, dtos)
}

// GetToken 获取单个 Token（包含完整 Token 值）
// @Summary 获取单个 Token 详情
// @Tags tokens
// @Produce json
// @Param id path int true "Token ID"
// @Success 200 {object} token.TokenDTO
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/tokens/{id} [get]
func (h *TokenHandler) GetToken(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	tok, err := h.service.GetToken(id)
	if err != nil {
		h.handleTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, token.ToTokenDTO(tok, true))
}

// DeleteToken 删除 Token
// @Summary 删除 Token
// @Tags tokens
// @Param id path int true "Token ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /api/admin/tokens/{id} [delete]
func (h *TokenHandler) DeleteToken(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteToken(id); err != nil {
		h.handleTokenError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EnableToken 启用 Token
// @Summary 启用 Token
// @Tags tokens
// @Router /api/admin/tokens/{id}/enable [post]
func (h *TokenHandler) EnableToken(c *gin.Context) {
	h.setEnabled(c, true)
}

// DisableToken 禁用 Token
// @Summary 禁用 Token
// @Tags tokens
// @Router /api/admin/tokens/{id}/disable [post]
func (h *TokenHandler) DisableToken(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *TokenHandler) setEnabled(c *gin.Context, enabled bool) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var err error
	if enabled {
		err = h.service.EnableToken(id)
	} else {
		err = h.service.DisableToken(id)
	}
	if err != nil {
		h.handleTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "enabled": enabled})
}

func (h *TokenHandler) parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid token ID")
		return 0, false
	}
	return uint(id), true
}

// handleTokenError 处理 Token 相关错误
func (h *TokenHandler) handleTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, token.ErrTokenNotFound):
		respondError(c, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found")
	case errors.Is(err, token.ErrInvalidExpiresAt):
		respondError(c, http.StatusBadRequest, "INVALID_EXPIRES_AT", "Expiration time must be in the future")
	case errors.Is(err, token.ErrTokenValueExists):
		respondError(c, http.StatusConflict, "TOKEN_CONFLICT", "Token already exists")
	case errors.Is(err, token.ErrInvalidCustomToken):
		respondError(c, http.StatusBadRequest, "INVALID_CUSTOM_TOKEN", "Custom token must start with 'sk-' and be at least 8 characters")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
