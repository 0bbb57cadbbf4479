/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-03 20:05:12
 * @FilePath: \paper-portal\backend\internal\handler\helpers.go
 * @LastEditTime: 2025-11-04 16:22:37
 */
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"paper-portal/backend/internal/apperr"
	"paper-portal/backend/internal/domain/user"
	response "paper-portal/backend/internal/infra/common"
	"paper-portal/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requirePrincipal 读取鉴权中间件注入的身份，缺失时直接返回 401。
func requirePrincipal(c *gin.Context) (user.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized", nil)
		return user.Principal{}, false
	}
	return p, true
}

// parseUintParam 解析路径参数，非法时返回 400。0 交给门面层做统一校验。
func parseUintParam(c *gin.Context, name string) (uint64, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid "+name, gin.H{"field": name})
		return 0, false
	}
	return value, true
}

// parseUintQuery 解析可选的查询参数，缺省时返回 fallback。
func parseUintQuery(c *gin.Context, name string, fallback uint64) (uint64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid "+name, gin.H{"field": name})
		return 0, false
	}
	return value, true
}

// parseIntQuery 解析可为负数的查询参数，范围检查由门面层负责。
func parseIntQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid "+name, gin.H{"field": name})
		return 0, false
	}
	return value, true
}

// fail 记录日志并输出统一错误响应，调用方错误按 info 记录，其余按 error 记录。
func fail(c *gin.Context, log *zap.SugaredLogger, err error, msg string, kv ...any) {
	fields := append([]any{"error", err, "request_id", middleware.RequestIDFrom(c)}, kv...)
	if apperr.IsValidation(err) || apperr.IsPermission(err) || apperr.IsNotFound(err) || apperr.IsIntegrity(err) {
		log.Infow(msg, fields...)
	} else {
		log.Errorw(msg, fields...)
	}
	response.FailWithError(c, err)
}
