/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:41:15
 * @FilePath: \paper-portal\backend\internal\middleware\auth_middleware.go
 * @LastEditTime: 2025-11-04 15:21:02
 */
package middleware

import (
	"net/http"
	"strings"

	"paper-portal/backend/internal/domain/user"
	response "paper-portal/backend/internal/infra/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenParser 把 Bearer 令牌解析为 Principal。
type TokenParser interface {
	Parse(raw string) (user.Principal, error)
}

// AuthMiddleware 校验 JWT 并把 claims 转换为显式的 Principal，保护受限路由。
type AuthMiddleware struct {
	tokens TokenParser
	logger *zap.SugaredLogger
}

// NewAuthMiddleware 创建鉴权中间件实例。
func NewAuthMiddleware(tokens TokenParser, logger *zap.SugaredLogger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Handle 返回 Gin 中间件，验证 Bearer Token 并在上下文中注入 Principal。
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing authorization header", nil)
			c.Abort()
			return
		}

		principal, err := m.tokens.Parse(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			m.logger.Debugw("reject token", "error", err, "path", c.FullPath())
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}
