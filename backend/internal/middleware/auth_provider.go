package middleware

import (
	"paper-portal/backend/internal/domain/user"

	"github.com/gin-gonic/gin"
)

// principalKey 是 Principal 在 gin.Context 中的键。
const principalKey = "principal"

// Authenticator 抽象鉴权中间件，实现 Handle() 的结构体即可插入路由。
type Authenticator interface {
	Handle() gin.HandlerFunc
}

// SetPrincipal 将调用身份写入上下文。
func SetPrincipal(c *gin.Context, p user.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom 读取鉴权中间件写入的调用身份。
func PrincipalFrom(c *gin.Context) (user.Principal, bool) {
	val, ok := c.Get(principalKey)
	if !ok {
		return user.Principal{}, false
	}
	p, ok := val.(user.Principal)
	return p, ok
}
