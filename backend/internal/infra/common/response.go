/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 17:02:32
 * @FilePath: \paper-portal\backend\internal\infra\common\response.go
 * @LastEditTime: 2025-11-03 19:02:50
 */
package response

import (
	"errors"
	"net/http"

	"paper-portal/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorCode 表示统一的错误码，便于客户端识别失败原因。
type ErrorCode string

const (
	ErrBadRequest      ErrorCode = "BAD_REQUEST"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrConflict        ErrorCode = "CONFLICT"
	ErrTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// Error 描述错误响应的统一结构。
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// Response 是所有接口返回的公共结构。
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// MetaPagination 描述分页信息，可嵌入到 Response.Meta。
type MetaPagination struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalItems   int `json:"total_items"`
	TotalPages   int `json:"total_pages"`
	CurrentCount int `json:"current_count"`
}

// Success 以统一格式返回成功结果。
func Success(c *gin.Context, status int, data any, meta any) {
	if status == 0 {
		status = http.StatusOK
	}
	resp := Response{
		Success: true,
		Data:    data,
	}
	if meta != nil {
		resp.Meta = meta
	}
	c.JSON(status, resp)
}

// Created 返回 201 Created 的成功响应。
func Created(c *gin.Context, data any, meta any) {
	Success(c, http.StatusCreated, data, meta)
}

// Fail 以统一格式返回错误结果。
func Fail(c *gin.Context, status int, code ErrorCode, message string, details any) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	resp := Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	}
	if details != nil {
		resp.Error.Details = details
	}
	c.JSON(status, resp)
}

// FailWithError 把业务错误映射为 HTTP 状态码与错误码：
// Validation→400，Permission→403，NotFound→404，Integrity→409，其余（含 Storage）→500。
// 存储错误不向客户端暴露底层信息。
func FailWithError(c *gin.Context, err error) {
	var (
		validationErr *apperr.ValidationError
		permissionErr *apperr.PermissionError
		notFoundErr   *apperr.NotFoundError
		integrityErr  *apperr.IntegrityError
	)
	switch {
	case err == nil:
		Fail(c, http.StatusInternalServerError, ErrInternal, http.StatusText(http.StatusInternalServerError), nil)
	case errors.As(err, &validationErr):
		Fail(c, http.StatusBadRequest, ErrBadRequest, validationErr.Error(), gin.H{"field": validationErr.Field})
	case errors.As(err, &permissionErr):
		Fail(c, http.StatusForbidden, ErrForbidden, permissionErr.Error(), nil)
	case errors.As(err, &notFoundErr):
		Fail(c, http.StatusNotFound, ErrNotFound, notFoundErr.Error(), gin.H{"kind": notFoundErr.Kind, "id": notFoundErr.ID})
	case errors.As(err, &integrityErr):
		Fail(c, http.StatusConflict, ErrConflict, integrityErr.Error(), nil)
	default:
		Fail(c, http.StatusInternalServerError, ErrInternal, "internal storage error", nil)
	}
}
