package middleware

import (
	"paper-portal/backend/internal/domain/user"

	"github.com/gin-gonic/gin"
)

// OfflineAuthMiddleware 在本地模式下注入固定身份，绕过 JWT 校验流程。
type OfflineAuthMiddleware struct {
	principal user.Principal
}

// NewOfflineAuthMiddleware 构造用于离线模式的鉴权中间件。
func NewOfflineAuthMiddleware(p user.Principal) *OfflineAuthMiddleware {
	return &OfflineAuthMiddleware{principal: p}
}

// Handle 将固定身份写入上下文。
func (m *OfflineAuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		SetPrincipal(c, m.principal)
		c.Next()
	}
}
