/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-02 14:08:36
 * @FilePath: \paper-portal\backend\internal\service\click\service.go
 * @LastEditTime: 2025-11-04 10:27:19
 */
package click

import (
	"context"
	"time"

	"paper-portal/backend/internal/apperr"
	clickdomain "paper-portal/backend/internal/domain/click"
	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/paper"
	"paper-portal/backend/internal/domain/user"
	"paper-portal/backend/internal/infra/clock"
	appLogger "paper-portal/backend/internal/infra/logger"
	"paper-portal/backend/internal/infra/metrics"

	"go.uber.org/zap"
)

const (
	// DefaultDedupWindow 是同一 (用户, 论文, 学院) 两次点击被视为重复的时间窗口。
	DefaultDedupWindow = 60 * time.Second
)

// EventStore 是去重闸门依赖的点击存储能力。
type EventStore interface {
	Append(ctx context.Context, event *clickdomain.Event) error
	FindRecent(ctx context.Context, userID, paperID, collegeID uint, since time.Time) (*clickdomain.Event, error)
	Delete(ctx context.Context, clickID uint64, owner uint) (bool, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]clickdomain.Event, error)
}

// UserLookup 按 ID 查询用户，不存在时返回 NotFoundError。
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*user.User, error)
}

// PaperLookup 按 ID 查询论文。
type PaperLookup interface {
	FindByID(ctx context.Context, id uint) (*paper.Paper, error)
}

// CollegeLookup 按 ID 查询学院。
type CollegeLookup interface {
	FindByID(ctx context.Context, id uint) (*college.College, error)
}

// Config 描述点击服务的可配置参数。
type Config struct {
	DedupWindow time.Duration
	// HistoryLimit 为 0 时返回完整历史。
	HistoryLimit int
}

// Service 负责点击写入与去重，以及点击历史的查询和删除。
type Service struct {
	cfg      Config
	events   EventStore
	users    UserLookup
	papers   PaperLookup
	colleges CollegeLookup
	clock    clock.Clock
	logger   *zap.SugaredLogger
}

// RecordInput 描述一次点击上报。
type RecordInput struct {
	UserID    uint
	PaperID   uint
	CollegeID uint
}

// RecordResult 返回写入（或去重命中）的点击，Created=false 表示命中了窗口内的已有记录。
type RecordResult struct {
	Event   clickdomain.Event
	Created bool
}

// NewService 创建点击服务；clk 为 nil 时使用系统 UTC 时钟。
func NewService(cfg Config, events EventStore, users UserLookup, papers PaperLookup, colleges CollegeLookup, clk clock.Clock, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.click")
	}
	if clk == nil {
		clk = clock.System{}
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}
	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}
	return &Service{
		cfg:      cfg,
		events:   events,
		users:    users,
		papers:   papers,
		colleges: colleges,
		clock:    clk,
		logger:   logger,
	}
}

// Window 返回当前生效的去重窗口。
func (s *Service) Window() time.Duration {
	return s.cfg.DedupWindow
}

// RecordClick 记录一次点击：窗口内已有相同 (user, paper, college) 的点击时原样返回，
// 否则校验引用完整性后写入新记录。
// 并发的相同点击可能都未命中去重而各自写入，这里不加锁。
func (s *Service) RecordClick(ctx context.Context, input RecordInput) (RecordResult, error) {
	now := s.clock.Now()
	since := now.Add(-s.cfg.DedupWindow)

	existing, err := s.events.FindRecent(ctx, input.UserID, input.PaperID, input.CollegeID, since)
	if err != nil {
		metrics.RecordClickIngest(metrics.ClickResultError)
		s.logger.Errorw("find recent click failed", "error", err, "user_id", input.UserID, "paper_id", input.PaperID)
		return RecordResult{}, err
	}
	if existing != nil {
		metrics.RecordClickIngest(metrics.ClickResultDuplicate)
		return RecordResult{Event: *existing, Created: false}, nil
	}

	if err := s.checkReferences(ctx, input); err != nil {
		if apperr.IsStorage(err) {
			metrics.RecordClickIngest(metrics.ClickResultError)
		} else {
			metrics.RecordClickIngest(metrics.ClickResultRejected)
		}
		return RecordResult{}, err
	}

	event := clickdomain.Event{
		UserID:    input.UserID,
		PaperID:   input.PaperID,
		CollegeID: input.CollegeID,
		ClickTime: now,
	}
	if err := s.events.Append(ctx, &event); err != nil {
		metrics.RecordClickIngest(metrics.ClickResultError)
		s.logger.Errorw("append click failed", "error", err, "user_id", input.UserID, "paper_id", input.PaperID)
		return RecordResult{}, err
	}

	metrics.RecordClickIngest(metrics.ClickResultCreated)
	s.logger.Debugw("click recorded", "click_id", event.ID, "user_id", event.UserID, "paper_id", event.PaperID, "college_id", event.CollegeID)
	return RecordResult{Event: event, Created: true}, nil
}

// checkReferences 依次确认用户、论文、学院存在，并且用户属于该学院。
func (s *Service) checkReferences(ctx context.Context, input RecordInput) error {
	u, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if _, err := s.papers.FindByID(ctx, input.PaperID); err != nil {
		return err
	}
	if _, err := s.colleges.FindByID(ctx, input.CollegeID); err != nil {
		return err
	}
	if u.CollegeID != input.CollegeID {
		return apperr.Integrity("user", uint64(u.ID), "user not in college")
	}
	return nil
}

// History 返回用户的点击历史，最新的在前；默认不截断。
func (s *Service) History(ctx context.Context, userID uint) ([]clickdomain.Event, error) {
	events, err := s.events.ListByUser(ctx, userID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []clickdomain.Event{}
	}
	return events, nil
}

// Forget 删除 owner 名下的一条点击，返回是否删除成功。
func (s *Service) Forget(ctx context.Context, clickID uint64, owner uint) (bool, error) {
	deleted, err := s.events.Delete(ctx, clickID, owner)
	if err != nil {
		return false, err
	}
	if !deleted {
		s.logger.Infow("click not deleted", "click_id", clickID, "owner", owner)
	}
	return deleted, nil
}
