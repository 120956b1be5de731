package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumoxuan/CodeMentor-API/internal/stats"
)

// RequestCounterMiddleware 请求计数中间件
// 统计所有通过的请求，5xx 响应额外计入错误数
func RequestCounterMiddleware(counter *stats.RequestCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		counter.Increment()

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			counter.IncrementError()
		}
	}
}
