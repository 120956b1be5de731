package token

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
)

func setupService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Token{}))
	return NewService(NewRepository(db))
}

// TestGenerateTokenValue 测试 Token 生成格式
func TestGenerateTokenValue(t *testing.T) {
	value, err := GenerateTokenValue()
	require.NoError(t, err)

	matched, err := regexp.MatchString(`^sk-[a-zA-Z0-9_\-=]{43,44}$`, value)
	require.NoError(t, err)
	assert.True(t, matched, "unexpected token format: %s", value)
}

// TestCreateToken 测试创建 Token
func TestCreateToken(t *testing.T) {
	svc := setupService(t)

	tok, err := svc.CreateToken("ops", nil, "")
	require.NoError(t, err)
	assert.NotZero(t, tok.ID)
	assert.Equal(t, "ops", tok.Name)
	assert.True(t, tok.Enabled)
	assert.Nil(t, tok.ExpiresAt)
}

// TestCreateToken_CustomValue 测试自定义 Token 值
func TestCreateToken_CustomValue(t *testing.T) {
	svc := setupService(t)

	tok, err := svc.CreateToken("ci", nil, "sk-custom-value")
	require.NoError(t, err)
	assert.Equal(t, "sk-custom-value", tok.Token)

	// 重复值被拒绝
	_, err = svc.CreateToken("ci2", nil, "sk-custom-value")
	assert.ErrorIs(t, err, ErrTokenValueExists)

	// 格式非法被拒绝
	_, err = svc.CreateToken("bad", nil, "nope")
	assert.ErrorIs(t, err, ErrInvalidCustomToken)
}

// TestCreateToken_PastExpiry 测试过期时间必须在未来
func TestCreateToken_PastExpiry(t *testing.T) {
	svc := setupService(t)

	past := time.Now().Add(-time.Hour)
	_, err := svc.CreateToken("old", &past, "")
	assert.ErrorIs(t, err, ErrInvalidExpiresAt)
}

// TestValidateToken 测试鉴权与使用时间记录
func TestValidateToken(t *testing.T) {
	svc := setupService(t)

	created, err := svc.CreateToken("ops", nil, "")
	require.NoError(t, err)

	validated, err := svc.ValidateToken(created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, validated.ID)
	require.NotNil(t, validated.LastUsedAt)
	assert.WithinDuration(t, time.Now(), *validated.LastUsedAt, time.Second)
}

// TestValidateToken_Unknown 测试未知 Token
func TestValidateToken_Unknown(t *testing.T) {
	svc := setupService(t)

	_, err := svc.ValidateToken("sk-does-not-exist")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestValidateToken_Disabled 测试禁用后的 Token 被拒绝
func TestValidateToken_Disabled(t *testing.T) {
	svc := setupService(t)

	created, err := svc.CreateToken("ops", nil, "")
	require.NoError(t, err)
	require.NoError(t, svc.DisableToken(created.ID))

	_, err = svc.ValidateToken(created.Token)
	assert.ErrorIs(t, err, ErrTokenDisabled)

	// 重新启用后恢复
	require.NoError(t, svc.EnableToken(created.ID))
	_, err = svc.ValidateToken(created.Token)
	assert.NoError(t, err)
}

// TestValidateToken_Expired 测试过期 Token 被拒绝
func TestValidateToken_Expired(t *testing.T) {
	svc := setupService(t)

	soon := time.Now().Add(30 * time.Millisecond)
	created, err := svc.CreateToken("short-lived", &soon, "")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = svc.ValidateToken(created.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

// TestDeleteToken 测试删除
func TestDeleteToken(t *testing.T) {
	svc := setupService(t)

	created, err := svc.CreateToken("tmp", nil, "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteToken(created.ID))

	assert.ErrorIs(t, svc.DeleteToken(created.ID), ErrTokenNotFound)
	_, err = svc.ValidateToken(created.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestListTokens 测试列表按创建时间倒序
func TestListTokens(t *testing.T) {
	svc := setupService(t)

	_, err := svc.CreateToken("a", nil, "")
	require.NoError(t, err)
	_, err = svc.CreateToken("b", nil, "")
	require.NoError(t, err)

	tokens, err := svc.ListTokens()
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

// TestMaskToken 测试脱敏显示
func TestMaskToken(t *testing.T) {
	assert.Equal(t, "sk-****wxyz", MaskToken("sk-abcdefghwxyz"))
	assert.Equal(t, "****", MaskToken("short"))
}
