package handler

import (
	"net/http"

	response "paper-portal/backend/internal/infra/common"
	portalsvc "paper-portal/backend/internal/service/portal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsHandler 输出排行、分布与看板数据。
type StatsHandler struct {
	portal *portalsvc.Service
	logger *zap.SugaredLogger
}

// NewStatsHandler 创建统计 Handler。
func NewStatsHandler(portal *portalsvc.Service, logger *zap.SugaredLogger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StatsHandler{portal: portal, logger: logger}
}

func (h *StatsHandler) scope(operation string) *zap.SugaredLogger {
	return h.logger.With("component", "stats.handler", "operation", operation)
}

// Categories 返回 {categories, counts}。
func (h *StatsHandler) Categories(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	dist, err := h.portal.CategoryDistribution(c.Request.Context(), principal)
	if err != nil {
		fail(c, h.scope("categories"), err, "category distribution failed")
		return
	}
	response.Success(c, http.StatusOK, dist, nil)
}

// Years 返回 {years, counts}。
func (h *StatsHandler) Years(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	dist, err := h.portal.YearDistribution(c.Request.Context(), principal)
	if err != nil {
		fail(c, h.scope("years"), err, "year distribution failed")
		return
	}
	response.Success(c, http.StatusOK, dist, nil)
}

// Colleges 返回全部学院的点击排行。
func (h *StatsHandler) Colleges(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	ranking, err := h.portal.CollegeRanking(c.Request.Context(), principal)
	if err != nil {
		fail(c, h.scope("colleges"), err, "college ranking failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ranking": ranking}, nil)
}

// Students 返回学院内学生的点击排行。
func (h *StatsHandler) Students(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	collegeID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	ranking, err := h.portal.StudentRanking(c.Request.Context(), principal, uint(collegeID))
	if err != nil {
		fail(c, h.scope("students"), err, "student ranking failed", "college_id", collegeID)
		return
	}
	response.Success(c, http.StatusOK, ranking, nil)
}

// Dashboard 返回调用者角色对应的看板。
func (h *StatsHandler) Dashboard(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	summary, err := h.portal.Dashboard(c.Request.Context(), principal)
	if err != nil {
		fail(c, h.scope("dashboard"), err, "dashboard failed", "role", principal.Role)
		return
	}
	response.Success(c, http.StatusOK, summary, nil)
}
