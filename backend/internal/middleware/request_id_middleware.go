package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 用于在客户端与日志之间关联同一次请求。
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID 复用客户端传入的请求 ID，缺失时生成新的 UUID，并写回响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestIDFrom 返回当前请求的 ID。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
