/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-03 20:12:37
 * @FilePath: \paper-portal\backend\internal\handler\click_handler.go
 * @LastEditTime: 2025-11-05 09:40:58
 */
package handler

import (
	"net/http"
	"time"

	response "paper-portal/backend/internal/infra/common"
	"paper-portal/backend/internal/infra/ratelimit"
	portalsvc "paper-portal/backend/internal/service/portal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClickRateLimit 控制单个用户上报点击的频率。
type ClickRateLimit struct {
	Limit  int
	Window time.Duration
}

// ClickHandler 负责点击上报、历史查询与删除接口。
type ClickHandler struct {
	portal  *portalsvc.Service
	limiter ratelimit.Limiter
	limit   ClickRateLimit
	logger  *zap.SugaredLogger
}

// NewClickHandler 创建点击 Handler，limiter 为 nil 时不限流。
func NewClickHandler(portal *portalsvc.Service, limiter ratelimit.Limiter, limit ClickRateLimit, logger *zap.SugaredLogger) *ClickHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if limit.Limit < 0 {
		limit.Limit = 0
	}
	return &ClickHandler{portal: portal, limiter: limiter, limit: limit, logger: logger}
}

func (h *ClickHandler) scope(operation string) *zap.SugaredLogger {
	return h.logger.With("component", "click.handler", "operation", operation)
}

type recordClickRequest struct {
	UserID    uint `json:"user_id"`
	PaperID   uint `json:"paper_id"`
	CollegeID uint `json:"college_id"`
}

// Record 上报一次点击。user_id 与 college_id 缺省时取调用者自身的身份。
// 新写入返回 201，命中去重窗口返回 200 且 duplicate=true。
func (h *ClickHandler) Record(c *gin.Context) {
	log := h.scope("record")
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req recordClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid request body", nil)
		return
	}
	if req.UserID == 0 {
		req.UserID = principal.UserID
	}
	if req.CollegeID == 0 {
		req.CollegeID = principal.CollegeID
	}

	if !h.allow(c, ratelimit.ClickKey(principal.UserID)) {
		return
	}

	view, err := h.portal.RecordClick(c.Request.Context(), principal, portalsvc.RecordClickRequest{
		UserID:    req.UserID,
		PaperID:   req.PaperID,
		CollegeID: req.CollegeID,
	})
	if err != nil {
		fail(c, log, err, "record click failed", "user_id", req.UserID, "paper_id", req.PaperID)
		return
	}
	if view.Duplicate {
		response.Success(c, http.StatusOK, view, nil)
		return
	}
	response.Created(c, view, nil)
}

// History 返回点击历史，user_id 缺省时查询调用者本人。
func (h *ClickHandler) History(c *gin.Context) {
	log := h.scope("history")
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	userID, ok := parseUintQuery(c, "user_id", uint64(principal.UserID))
	if !ok {
		return
	}

	views, err := h.portal.ClickHistory(c.Request.Context(), principal, uint(userID))
	if err != nil {
		fail(c, log, err, "list click history failed", "user_id", userID)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": views}, nil)
}

// Delete 删除一条点击；记录不存在或不属于 user_id 时返回 404。
func (h *ClickHandler) Delete(c *gin.Context) {
	log := h.scope("delete")
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	clickID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	ownerID, ok := parseUintQuery(c, "user_id", uint64(principal.UserID))
	if !ok {
		return
	}

	deleted, err := h.portal.DeleteClick(c.Request.Context(), principal, clickID, uint(ownerID))
	if err != nil {
		fail(c, log, err, "delete click failed", "click_id", clickID)
		return
	}
	if !deleted {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, "click not found", gin.H{"deleted": false})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// allow 结合限流器检查用户是否可以继续上报；限流器故障时放行。
func (h *ClickHandler) allow(c *gin.Context, key string) bool {
	if h.limiter == nil || h.limit.Limit <= 0 {
		return true
	}
	res, err := h.limiter.Allow(c.Request.Context(), key, h.limit.Limit, h.limit.Window)
	if err != nil {
		h.logger.Warnw("click rate limiter failed", "error", err, "key", key)
		return true
	}
	if res.Allowed {
		return true
	}
	response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "too many clicks, retry later", gin.H{
		"retry_after_seconds": int(res.RetryAfter.Seconds()),
	})
	return false
}
