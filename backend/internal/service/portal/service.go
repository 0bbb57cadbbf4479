/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-03 09:47:52
 * @FilePath: \paper-portal\backend\internal\service\portal\service.go
 * @LastEditTime: 2025-11-05 22:36:04
 */
package portal

import (
	"context"
	"strings"
	"time"

	"paper-portal/backend/internal/apperr"
	clickdomain "paper-portal/backend/internal/domain/click"
	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/paper"
	"paper-portal/backend/internal/domain/user"
	appLogger "paper-portal/backend/internal/infra/logger"
	"paper-portal/backend/internal/repository"
	clicksvc "paper-portal/backend/internal/service/click"
	statssvc "paper-portal/backend/internal/service/stats"

	"go.uber.org/zap"
)

const (
	defaultPageSize    = 20
	defaultMaxPageSize = 100
)

// ClickGate 是门面依赖的点击写入与历史能力。
type ClickGate interface {
	RecordClick(ctx context.Context, input clicksvc.RecordInput) (clicksvc.RecordResult, error)
	History(ctx context.Context, userID uint) ([]clickdomain.Event, error)
	Forget(ctx context.Context, clickID uint64, owner uint) (bool, error)
}

// Aggregator 是门面依赖的统计能力。
type Aggregator interface {
	RankStudentsInCollege(ctx context.Context, collegeID uint) (statssvc.StudentRanking, error)
	RankColleges(ctx context.Context) ([]statssvc.CollegeRank, error)
	CategoryDistribution(ctx context.Context) (statssvc.CategoryDistribution, error)
	YearDistribution(ctx context.Context) (statssvc.YearDistribution, error)
	Summary(ctx context.Context, scope statssvc.Scope) (statssvc.Summary, error)
	CollegeStudentStats(ctx context.Context, collegeID uint) (statssvc.StudentStats, error)
	ClickCounts(ctx context.Context, userIDs []uint) (map[uint]int64, error)
}

// UserStore 提供用户查询、学生分页与级联删除。
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*user.User, error)
	ListStudentsPage(ctx context.Context, filter repository.StudentListFilter) ([]user.User, int64, error)
	DeleteWithClicks(ctx context.Context, id uint) (bool, error)
}

// PaperStore 提供论文更新与级联删除。
type PaperStore interface {
	Update(ctx context.Context, id uint, changes paper.Changes) (*paper.Paper, error)
	DeleteWithClicks(ctx context.Context, id uint) (bool, error)
}

// CollegeStore 按 ID 查询学院。
type CollegeStore interface {
	FindByID(ctx context.Context, id uint) (*college.College, error)
}

// Config 描述门面的分页参数。
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service 是各角色访问点击与统计能力的唯一入口：先校验参数，再检查权限，最后调用下游。
type Service struct {
	cfg      Config
	clicks   ClickGate
	stats    Aggregator
	users    UserStore
	papers   PaperStore
	colleges CollegeStore
	logger   *zap.SugaredLogger
}

// NewService 创建门面服务，分页配置缺省时使用 20/100。
func NewService(cfg Config, clicks ClickGate, stats Aggregator, users UserStore, papers PaperStore, colleges CollegeStore, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.portal")
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaultMaxPageSize
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	return &Service{
		cfg:      cfg,
		clicks:   clicks,
		stats:    stats,
		users:    users,
		papers:   papers,
		colleges: colleges,
		logger:   logger,
	}
}

// RecordClickRequest 描述一次点击上报。
type RecordClickRequest struct {
	UserID    uint
	PaperID   uint
	CollegeID uint
}

// ClickView 是返回给调用方的点击记录，Duplicate 表示命中了去重窗口。
type ClickView struct {
	ClickID   uint64    `json:"click_id"`
	UserID    uint      `json:"user_id"`
	PaperID   uint      `json:"paper_id"`
	CollegeID uint      `json:"college_id"`
	ClickTime time.Time `json:"click_time"`
	Duplicate bool      `json:"duplicate"`
}

// RosterQuery 描述学院学生列表的查询参数，Page/PageSize 为 0 时使用默认值。
type RosterQuery struct {
	CollegeID uint
	Page      int
	PageSize  int
	Search    string
}

// RosterEntry 是学生列表中的一行。
type RosterEntry struct {
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	RealName   string    `json:"real_name"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	ClickCount int64     `json:"click_count"`
}

// RosterPage 是分页后的学生列表及学院学生统计。
type RosterPage struct {
	Items      []RosterEntry         `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
	Stats      statssvc.StudentStats `json:"stats"`
}

// RecordClick 记录调用者本人的一次点击。
func (s *Service) RecordClick(ctx context.Context, p user.Principal, req RecordClickRequest) (ClickView, error) {
	if err := validatePrincipal(p); err != nil {
		return ClickView{}, err
	}
	if err := requireIDs(idField{"user_id", uint64(req.UserID)}, idField{"paper_id", uint64(req.PaperID)}, idField{"college_id", uint64(req.CollegeID)}); err != nil {
		return ClickView{}, err
	}
	if req.UserID != p.UserID {
		return ClickView{}, apperr.Forbidden("record_click", "clicks can only be recorded for the caller")
	}

	result, err := s.clicks.RecordClick(ctx, clicksvc.RecordInput{
		UserID:    req.UserID,
		PaperID:   req.PaperID,
		CollegeID: req.CollegeID,
	})
	if err != nil {
		return ClickView{}, err
	}
	return toClickView(result.Event, !result.Created), nil
}

// ClickHistory 返回用户的点击历史，最新的在前。
func (s *Service) ClickHistory(ctx context.Context, p user.Principal, userID uint) ([]ClickView, error) {
	if err := validatePrincipal(p); err != nil {
		return nil, err
	}
	if err := requireIDs(idField{"user_id", uint64(userID)}); err != nil {
		return nil, err
	}
	if err := s.authorizeUser(ctx, p, userID, "click_history"); err != nil {
		return nil, err
	}

	events, err := s.clicks.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ClickView, 0, len(events))
	for _, ev := range events {
		views = append(views, toClickView(ev, false))
	}
	return views, nil
}

// DeleteClick 删除 ownerID 名下的一条点击；记录不存在或不属于 ownerID 时返回 false。
func (s *Service) DeleteClick(ctx context.Context, p user.Principal, clickID uint64, ownerID uint) (bool, error) {
	if err := validatePrincipal(p); err != nil {
		return false, err
	}
	if err := requireIDs(idField{"click_id", clickID}, idField{"user_id", uint64(ownerID)}); err != nil {
		return false, err
	}
	if err := s.authorizeUser(ctx, p, ownerID, "delete_click"); err != nil {
		return false, err
	}
	return s.clicks.Forget(ctx, clickID, ownerID)
}

// StudentRanking 返回学院内学生的点击排行，仅管理员可用。
func (s *Service) StudentRanking(ctx context.Context, p user.Principal, collegeID uint) (statssvc.StudentRanking, error) {
	if err := validatePrincipal(p); err != nil {
		return statssvc.StudentRanking{}, err
	}
	if err := requireIDs(idField{"college_id", uint64(collegeID)}); err != nil {
		return statssvc.StudentRanking{}, err
	}
	if err := s.authorizeCollege(ctx, p, collegeID, "student_ranking"); err != nil {
		return statssvc.StudentRanking{}, err
	}
	return s.stats.RankStudentsInCollege(ctx, collegeID)
}

// CollegeRanking 返回全部学院的点击排行，仅校级管理员可用。
func (s *Service) CollegeRanking(ctx context.Context, p user.Principal) ([]statssvc.CollegeRank, error) {
	if err := validatePrincipal(p); err != nil {
		return nil, err
	}
	switch p.Role {
	case user.RoleUniversityAdmin:
		return s.stats.RankColleges(ctx)
	case user.RoleStudent, user.RoleCollegeAdmin:
		return nil, apperr.Forbidden("college_ranking", "university admin only")
	default:
		return nil, apperr.Validation("principal", "unknown role")
	}
}

// CategoryDistribution 返回分类论文分布，所有角色可用。
func (s *Service) CategoryDistribution(ctx context.Context, p user.Principal) (statssvc.CategoryDistribution, error) {
	if err := validatePrincipal(p); err != nil {
		return statssvc.CategoryDistribution{}, err
	}
	return s.stats.CategoryDistribution(ctx)
}

// YearDistribution 返回年度论文分布，所有角色可用。
func (s *Service) YearDistribution(ctx context.Context, p user.Principal) (statssvc.YearDistribution, error) {
	if err := validatePrincipal(p); err != nil {
		return statssvc.YearDistribution{}, err
	}
	return s.stats.YearDistribution(ctx)
}

// Dashboard 返回与调用者角色对应的看板。
func (s *Service) Dashboard(ctx context.Context, p user.Principal) (statssvc.Summary, error) {
	if err := validatePrincipal(p); err != nil {
		return statssvc.Summary{}, err
	}
	return s.stats.Summary(ctx, statssvc.Scope{
		Role:      p.Role,
		UserID:    p.UserID,
		CollegeID: p.CollegeID,
	})
}

// ListCollegeStudents 分页返回学院学生及其点击数，附带学院学生统计。
func (s *Service) ListCollegeStudents(ctx context.Context, p user.Principal, q RosterQuery) (RosterPage, error) {
	if err := validatePrincipal(p); err != nil {
		return RosterPage{}, err
	}
	if err := requireIDs(idField{"college_id", uint64(q.CollegeID)}); err != nil {
		return RosterPage{}, err
	}
	page, pageSize, err := s.normalisePaging(q.Page, q.PageSize)
	if err != nil {
		return RosterPage{}, err
	}
	if err := s.authorizeCollege(ctx, p, q.CollegeID, "list_students"); err != nil {
		return RosterPage{}, err
	}

	students, total, err := s.users.ListStudentsPage(ctx, repository.StudentListFilter{
		CollegeID: q.CollegeID,
		Query:     strings.TrimSpace(q.Search),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		return RosterPage{}, err
	}

	ids := make([]uint, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	counts, err := s.stats.ClickCounts(ctx, ids)
	if err != nil {
		return RosterPage{}, err
	}
	collegeStats, err := s.stats.CollegeStudentStats(ctx, q.CollegeID)
	if err != nil {
		return RosterPage{}, err
	}

	items := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		items = append(items, RosterEntry{
			UserID:     st.ID,
			Username:   st.Username,
			RealName:   st.RealName,
			Name:       st.DisplayName(),
			CreatedAt:  st.CreatedAt,
			ClickCount: counts[st.ID],
		})
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return RosterPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Stats:      collegeStats,
	}, nil
}

// RemoveUser 删除用户并级联删除其点击。院级管理员只能删除本学院学生，任何人不能删除自己。
func (s *Service) RemoveUser(ctx context.Context, p user.Principal, userID uint) error {
	if err := validatePrincipal(p); err != nil {
		return err
	}
	if err := requireIDs(idField{"user_id", uint64(userID)}); err != nil {
		return err
	}
	if userID == p.UserID {
		return apperr.Forbidden("remove_user", "cannot remove yourself")
	}

	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	switch p.Role {
	case user.RoleStudent:
		return apperr.Forbidden("remove_user", "admin only")
	case user.RoleCollegeAdmin:
		if target.Role != user.RoleStudent || target.CollegeID != p.CollegeID {
			return apperr.Forbidden("remove_user", "college admins may only remove students of their own college")
		}
	case user.RoleUniversityAdmin:
	default:
		return apperr.Validation("principal", "unknown role")
	}

	deleted, err := s.users.DeleteWithClicks(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("user", uint64(userID))
	}
	s.logger.Infow("user removed", "user_id", userID, "by", p.UserID)
	return nil
}

// UpdatePaper 按变更集更新论文，仅管理员可用。
func (s *Service) UpdatePaper(ctx context.Context, p user.Principal, paperID uint, changes paper.Changes) (*paper.Paper, error) {
	if err := validatePrincipal(p); err != nil {
		return nil, err
	}
	if err := requireIDs(idField{"paper_id", uint64(paperID)}); err != nil {
		return nil, err
	}
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	if err := requireAdmin(p, "update_paper"); err != nil {
		return nil, err
	}
	return s.papers.Update(ctx, paperID, changes)
}

// RemovePaper 删除论文并级联删除其点击，仅管理员可用。
func (s *Service) RemovePaper(ctx context.Context, p user.Principal, paperID uint) error {
	if err := validatePrincipal(p); err != nil {
		return err
	}
	if err := requireIDs(idField{"paper_id", uint64(paperID)}); err != nil {
		return err
	}
	if err := requireAdmin(p, "remove_paper"); err != nil {
		return err
	}
	deleted, err := s.papers.DeleteWithClicks(ctx, paperID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("paper", uint64(paperID))
	}
	s.logger.Infow("paper removed", "paper_id", paperID, "by", p.UserID)
	return nil
}

// authorizeUser 判断调用者能否访问 userID 的点击数据：学生只能访问自己，
// 院级管理员可以访问本学院用户，校级管理员不受限。
func (s *Service) authorizeUser(ctx context.Context, p user.Principal, userID uint, action string) error {
	switch p.Role {
	case user.RoleStudent:
		if userID != p.UserID {
			return apperr.Forbidden(action, "students may only access their own clicks")
		}
		return nil
	case user.RoleCollegeAdmin:
		if userID == p.UserID {
			return nil
		}
		target, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if target.CollegeID != p.CollegeID {
			return apperr.Forbidden(action, "user belongs to another college")
		}
		return nil
	case user.RoleUniversityAdmin:
		return nil
	default:
		return apperr.Validation("principal", "unknown role")
	}
}

// authorizeCollege 判断调用者能否查看学院级数据，并确认学院存在。
func (s *Service) authorizeCollege(ctx context.Context, p user.Principal, collegeID uint, action string) error {
	switch p.Role {
	case user.RoleStudent:
		return apperr.Forbidden(action, "admin only")
	case user.RoleCollegeAdmin:
		if collegeID != p.CollegeID {
			return apperr.Forbidden(action, "college admins may only access their own college")
		}
	case user.RoleUniversityAdmin:
	default:
		return apperr.Validation("principal", "unknown role")
	}
	_, err := s.colleges.FindByID(ctx, collegeID)
	return err
}

func requireAdmin(p user.Principal, action string) error {
	switch p.Role {
	case user.RoleCollegeAdmin, user.RoleUniversityAdmin:
		return nil
	case user.RoleStudent:
		return apperr.Forbidden(action, "admin only")
	default:
		return apperr.Validation("principal", "unknown role")
	}
}

func (s *Service) normalisePaging(page, pageSize int) (int, int, error) {
	if page < 0 {
		return 0, 0, apperr.Validation("page", "must not be negative")
	}
	if page == 0 {
		page = 1
	}
	if pageSize < 0 {
		return 0, 0, apperr.Validation("page_size", "must not be negative")
	}
	if pageSize == 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		return 0, 0, apperr.Validation("page_size", "exceeds maximum")
	}
	return page, pageSize, nil
}

func validatePrincipal(p user.Principal) error {
	if err := p.Validate(); err != nil {
		return apperr.Validation("principal", err.Error())
	}
	return nil
}

type idField struct {
	name  string
	value uint64
}

func requireIDs(fields ...idField) error {
	for _, f := range fields {
		if f.value == 0 {
			return apperr.Validation(f.name, "must be positive")
		}
	}
	return nil
}

func toClickView(ev clickdomain.Event, duplicate bool) ClickView {
	return ClickView{
		ClickID:   ev.ID,
		UserID:    ev.UserID,
		PaperID:   ev.PaperID,
		CollegeID: ev.CollegeID,
		ClickTime: ev.ClickTime,
		Duplicate: duplicate,
	}
}
