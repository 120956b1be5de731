package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"time"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

var (
	// ErrInvalidToken Token 无效
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired Token 已过期
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenDisabled Token 已禁用
	ErrTokenDisabled = errors.New("token disabled")
	// ErrInvalidExpiresAt 过期时间必须是未来时间
	ErrInvalidExpiresAt = errors.New("expires_at must be in the future")
	// ErrInvalidCustomToken 自定义 Token 格式无效
	ErrInvalidCustomToken = errors.New("custom token must start with 'sk-' and be at least 8 characters")
)

// Service Token 业务逻辑层
// 管理端接口（触发采集训练、备份管理、事件审计）凭此鉴权
type Service struct {
	repo *Repository
}

// NewService 创建 Service 实例
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GenerateTokenValue 生成唯一的 Token 值
// 格式: sk- + 32 字节 base64 编码 (URLEncoding)
func GenerateTokenValue() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	token := "sk-" + base64.URLEncoding.EncodeToString(bytes)
	return token, nil
}

// ValidateCustomToken 验证自定义 Token 格式
func ValidateCustomToken(token string) error {
	if len(token) < 8 {
		return ErrInvalidCustomToken
	}
	if token[:3] != "sk-" {
		return ErrInvalidCustomToken
	}
	return nil
}

// CreateToken 创建 Token
// customToken 非空时使用调用方提供的值，否则随机生成
func (s *Service) CreateToken(name string, expiresAt *time.Time, customToken string) (*models.Token, error) {
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return nil, ErrInvalidExpiresAt
	}

	var tokenValue string
	var err error

	if customToken != "" {
		if err := ValidateCustomToken(customToken); err != nil {
			return nil, err
		}
		exists, err := s.repo.CheckValueExists(customToken)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrTokenValueExists
		}
		tokenValue = customToken
	} else {
		// 随机碰撞概率极低，留少量重试兜底
		maxRetries := 5
		for i := 0; i < maxRetries; i++ {
			tokenValue, err = GenerateTokenValue()
			if err != nil {
				return nil, err
			}
			exists, err := s.repo.CheckValueExists(tokenValue)
			if err != nil {
				return nil, err
			}
			if !exists {
				break
			}
			if i == maxRetries-1 {
				return nil, ErrTokenValueExists
			}
		}
	}

	token := &models.Token{
		Name:      name,
		Token:     tokenValue,
		Enabled:   true,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Create(token); err != nil {
		return nil, err
	}
	return token, nil
}

// ListTokens 获取所有 Token 列表
func (s *Service) ListTokens() ([]*models.Token, error) {
	return s.repo.FindAll()
}

// GetToken 根据 ID 获取 Token
func (s *Service) GetToken(id uint) (*models.Token, error) {
	return s.repo.FindByID(id)
}

// DeleteToken 删除 Token
func (s *Service) DeleteToken(id uint) error {
	return s.repo.Delete(id)
}

// EnableToken 启用 Token
func (s *Service) EnableToken(id uint) error {
	return s.repo.SetEnabled(id, true)
}

// DisableToken 禁用 Token
func (s *Service) DisableToken(id uint) error {
	return s.repo.SetEnabled(id, false)
}

// ValidateToken 验证 Token (用于认证中间件)
// 检查 Token 是否存在、是否启用、是否过期，通过后记录最近使用时间
func (s *Service) ValidateToken(tokenValue string) (*models.Token, error) {
	token, err := s.repo.FindByValue(tokenValue)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if !token.Enabled {
		return nil, ErrTokenDisabled
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	// 使用时间仅作审计，更新失败不影响鉴权结果
	now := time.Now()
	if err := s.repo.TouchLastUsed(token.ID, now); err != nil {
		log.Printf("⚠️ 更新 Token 使用时间失败: %v", err)
	} else {
		token.LastUsedAt = &now
	}

	return token, nil
}

// MaskToken 脱敏显示 Token
// 格式: sk-****{最后4位}
func MaskToken(token string) string {
	if len(token) < 8 {
		return "****"
	}
	last4 := token[len(token)-4:]
	return "sk-****" + last4
}
