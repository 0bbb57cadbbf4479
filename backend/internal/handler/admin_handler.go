package handler

import (
	"encoding/json"
	"net/http"

	"paper-portal/backend/internal/domain/paper"
	response "paper-portal/backend/internal/infra/common"
	portalsvc "paper-portal/backend/internal/service/portal"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler 负责学院学生列表、用户与论文的管理接口。
type AdminHandler struct {
	portal *portalsvc.Service
	logger *zap.SugaredLogger
}

// NewAdminHandler 初始化管理 Handler。
func NewAdminHandler(portal *portalsvc.Service, logger *zap.SugaredLogger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AdminHandler{portal: portal, logger: logger}
}

func (h *AdminHandler) scope(operation string) *zap.SugaredLogger {
	return h.logger.With("component", "admin.handler", "operation", operation)
}

// CollegeStudents 分页返回学院学生及点击统计，支持 search 模糊匹配用户名或姓名。
func (h *AdminHandler) CollegeStudents(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	collegeID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	page, ok := parseIntQuery(c, "page")
	if !ok {
		return
	}
	pageSize, ok := parseIntQuery(c, "page_size")
	if !ok {
		return
	}

	result, err := h.portal.ListCollegeStudents(c.Request.Context(), principal, portalsvc.RosterQuery{
		CollegeID: uint(collegeID),
		Page:      page,
		PageSize:  pageSize,
		Search:    c.Query("search"),
	})
	if err != nil {
		fail(c, h.scope("college_students"), err, "list college students failed", "college_id", collegeID)
		return
	}

	meta := response.MetaPagination{
		Page:         result.Page,
		PageSize:     result.PageSize,
		TotalItems:   int(result.Total),
		TotalPages:   result.TotalPages,
		CurrentCount: len(result.Items),
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": result.Items,
		"stats": result.Stats,
	}, meta)
}

// RemoveUser 删除用户及其全部点击。
func (h *AdminHandler) RemoveUser(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	userID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.portal.RemoveUser(c.Request.Context(), principal, uint(userID)); err != nil {
		fail(c, h.scope("remove_user"), err, "remove user failed", "user_id", userID)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// UpdatePaper 按变更集更新论文，请求体中出现未知字段时返回 400。
func (h *AdminHandler) UpdatePaper(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	paperID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var changes paper.Changes
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&changes); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	updated, err := h.portal.UpdatePaper(c.Request.Context(), principal, uint(paperID), changes)
	if err != nil {
		fail(c, h.scope("update_paper"), err, "update paper failed", "paper_id", paperID)
		return
	}
	response.Success(c, http.StatusOK, updated, nil)
}

// RemovePaper 删除论文及其全部点击。
func (h *AdminHandler) RemovePaper(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	paperID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.portal.RemovePaper(c.Request.Context(), principal, uint(paperID)); err != nil {
		fail(c, h.scope("remove_paper"), err, "remove paper failed", "paper_id", paperID)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, nil)
}
