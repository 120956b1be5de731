package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lumoxuan/CodeMentor-API/internal/models"
	"github.com/lumoxuan/CodeMentor-API/internal/token"
)

func setupAuthRouter(t *testing.T, adminToken string) (*gin.Engine, *token.Service) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Token{}))

	service := token.NewService(token.NewRepository(db))

	router := gin.New()
	protected := router.Group("/admin")
	protected.Use(TokenAuthMiddleware(service, adminToken))
	protected.GET("/resource", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router, service
}

func doAuthRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/resource", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestTokenAuth_ValidDBToken 测试数据库 Token 放行
func TestTokenAuth_ValidDBToken(t *testing.T) {
	router, service := setupAuthRouter(t, "")

	tok, err := service.CreateToken("ops", nil, "")
	require.NoError(t, err)

	w := doAuthRequest(router, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestTokenAuth_BootstrapToken 测试引导令牌放行
func TestTokenAuth_BootstrapToken(t *testing.T) {
	router, _ := setupAuthRouter(t, "bootstrap-secret")

	w := doAuthRequest(router, "Bearer bootstrap-secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestTokenAuth_MissingHeader 测试缺少认证头
func TestTokenAuth_MissingHeader(t *testing.T) {
	router, _ := setupAuthRouter(t, "")

	w := doAuthRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

// TestTokenAuth_BadFormat 测试非 Bearer 格式
func TestTokenAuth_BadFormat(t *testing.T) {
	router, _ := setupAuthRouter(t, "")

	w := doAuthRequest(router, "Basic abc123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
}

// TestTokenAuth_UnknownToken 测试未知 Token
func TestTokenAuth_UnknownToken(t *testing.T) {
	router, _ := setupAuthRouter(t, "")

	w := doAuthRequest(router, "Bearer sk-not-real")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

// TestTokenAuth_DisabledToken 测试禁用 Token 被拒绝
func TestTokenAuth_DisabledToken(t *testing.T) {
	router, service := setupAuthRouter(t, "")

	tok, err := service.CreateToken("ops", nil, "")
	require.NoError(t, err)
	require.NoError(t, service.DisableToken(tok.ID))

	w := doAuthRequest(router, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_DISABLED")
}
