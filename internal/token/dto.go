package token

import (
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

// CreateTokenRequest 创建 Token 请求
type CreateTokenRequest struct {
	Name        string     `json:"name" binding:"required,max=100"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CustomToken string     `json:"custom_token"`
}

// TokenDTO Token 数据传输对象
type TokenDTO struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Token        string     `json:"token,omitempty"` // 仅在创建时返回
	TokenDisplay string     `json:"token_display"`   // 脱敏显示
	Enabled      bool       `json:"enabled"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToTokenDTO 将 Token 模型转换为 DTO
// showFullToken 仅在创建响应中为 true
func ToTokenDTO(token *models.Token, showFullToken bool) *TokenDTO {
	dto := &TokenDTO{
		ID:           token.ID,
		Name:         token.Name,
		TokenDisplay: MaskToken(token.Token),
		Enabled:      token.Enabled,
		ExpiresAt:    token.ExpiresAt,
		LastUsedAt:   token.LastUsedAt,
		CreatedAt:    token.CreatedAt,
		UpdatedAt:    token.UpdatedAt,
	}
	if showFullToken {
		dto.Token = token.Token
	}
	return dto
}
