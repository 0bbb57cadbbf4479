/*
 * @Author: NEFU AB-IN
 * @Date: 2025-11-02 16:22:10
 * @FilePath: \paper-portal\backend\internal\service\stats\service.go
 * @LastEditTime: 2025-11-05 20:11:43
 */
package stats

import (
	"context"
	"iter"
	"slices"
	"sort"
	"time"

	"paper-portal/backend/internal/apperr"
	clickdomain "paper-portal/backend/internal/domain/click"
	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/user"
	"paper-portal/backend/internal/infra/clock"
	appLogger "paper-portal/backend/internal/infra/logger"
	"paper-portal/backend/internal/infra/metrics"
	"paper-portal/backend/internal/repository"

	"go.uber.org/zap"
)

// ClickScanner 提供可重复遍历的点击序列。
type ClickScanner interface {
	Scan(ctx context.Context, filter repository.ClickScanFilter) iter.Seq2[clickdomain.Event, error]
}

// StudentDirectory 返回学院的学生名单。
type StudentDirectory interface {
	ListStudents(ctx context.Context, collegeID uint) ([]user.User, error)
}

// CollegeDirectory 返回完整的学院名册。
type CollegeDirectory interface {
	List(ctx context.Context) ([]college.College, error)
}

// PaperCatalog 提供论文维度的计数。
type PaperCatalog interface {
	CountByCategory(ctx context.Context) ([]repository.CategoryCountRow, error)
	ListCreatedAt(ctx context.Context) ([]time.Time, error)
	Count(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountCategories(ctx context.Context) (int64, error)
}

// Service 在点击流与目录数据之上计算排行、分布与看板汇总。
// 任一次扫描或查询失败都会使整个调用失败，不返回部分结果。
type Service struct {
	clicks   ClickScanner
	students StudentDirectory
	colleges CollegeDirectory
	papers   PaperCatalog
	clock    clock.Clock
	logger   *zap.SugaredLogger
}

// NewService 创建统计服务，clk 需要与点击服务共用同一个时钟。
func NewService(clicks ClickScanner, students StudentDirectory, colleges CollegeDirectory, papers PaperCatalog, clk clock.Clock, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = appLogger.S().With("component", "service.stats")
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		clicks:   clicks,
		students: students,
		colleges: colleges,
		papers:   papers,
		clock:    clk,
		logger:   logger,
	}
}

// StudentRank 是学院内学生排行的一行。
type StudentRank struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	// RealName 为空时回退为 "Student {id}"。
	RealName   string `json:"real_name"`
	ClickCount int64  `json:"click_count"`
}

// StudentRanking 是学院内按点击数排序的学生排行。
type StudentRanking struct {
	CollegeID               uint          `json:"college_id"`
	Ranking                 []StudentRank `json:"ranking"`
	TotalClicks             int64         `json:"total_clicks"`
	TotalStudentsWithClicks int           `json:"total_students_with_clicks"`
}

// CollegeRank 是学院排行的一行，没有点击的学院 TotalClicks 为 0。
type CollegeRank struct {
	CollegeID   uint   `json:"college_id"`
	CollegeName string `json:"college_name"`
	TotalClicks int64  `json:"total_clicks"`
}

// CategoryDistribution 以平行数组表示各分类的论文数。
type CategoryDistribution struct {
	Categories []string `json:"categories"`
	Counts     []int64  `json:"counts"`
}

// YearDistribution 以平行数组表示各年份（UTC）的论文数，年份升序。
type YearDistribution struct {
	Years  []int   `json:"years"`
	Counts []int64 `json:"counts"`
}

// PaperStats 汇总论文与当日点击。
type PaperStats struct {
	TotalPapers   int64 `json:"total_papers"`
	TodayPapers   int64 `json:"today_papers"`
	CategoryCount int64 `json:"category_count"`
	TodayClicks   int64 `json:"today_clicks"`
}

// StudentStats 汇总学院学生的活跃情况。
type StudentStats struct {
	TotalStudents int   `json:"total_students"`
	ActiveToday   int   `json:"active_today"`
	TotalClicks   int64 `json:"total_clicks"`
}

// StudentSummary 是学生看板。
type StudentSummary struct {
	UserID      uint                 `json:"user_id"`
	TotalClicks int64                `json:"total_clicks"`
	TodayClicks int64                `json:"today_clicks"`
	Categories  CategoryDistribution `json:"categories"`
	Years       YearDistribution     `json:"years"`
}

// CollegeSummary 是院级管理员看板。
type CollegeSummary struct {
	CollegeID    uint         `json:"college_id"`
	StudentStats StudentStats `json:"student_stats"`
	PaperStats   PaperStats   `json:"paper_stats"`
}

// UniversitySummary 是校级管理员看板。
type UniversitySummary struct {
	PaperStats     PaperStats    `json:"paper_stats"`
	CollegeRanking []CollegeRank `json:"college_ranking"`
	TotalClicks    int64         `json:"total_clicks"`
}

// Scope 描述看板的统计范围，由角色决定返回哪一种汇总。
type Scope struct {
	Role      user.Role
	UserID    uint
	CollegeID uint
}

// Summary 只会填充与 Role 对应的一个字段。
type Summary struct {
	Role       user.Role          `json:"role"`
	Student    *StudentSummary    `json:"student,omitempty"`
	College    *CollegeSummary    `json:"college,omitempty"`
	University *UniversitySummary `json:"university,omitempty"`
}

// RankStudentsInCollege 统计学院内每个有点击的学生的点击数，按点击数降序、用户 ID 升序排列。
// 点击按学生当前所属学院归属，而不是点击记录上的 college_id。
func (s *Service) RankStudentsInCollege(ctx context.Context, collegeID uint) (result StudentRanking, err error) {
	defer s.observe("rank_students", time.Now(), &err)

	students, err := s.students.ListStudents(ctx, collegeID)
	if err != nil {
		return StudentRanking{}, err
	}
	byID := make(map[uint]user.User, len(students))
	ids := make([]uint, 0, len(students))
	for _, st := range students {
		byID[st.ID] = st
		ids = append(ids, st.ID)
	}

	counts := make(map[uint]int64)
	err = s.each(ctx, repository.ClickScanFilter{UserIDs: ids}, func(ev clickdomain.Event) {
		counts[ev.UserID]++
	})
	if err != nil {
		return StudentRanking{}, err
	}

	ranking := make([]StudentRank, 0, len(counts))
	var total int64
	for userID, n := range counts {
		st := byID[userID]
		ranking = append(ranking, StudentRank{
			UserID:     userID,
			Username:   st.Username,
			RealName:   st.DisplayName(),
			ClickCount: n,
		})
		total += n
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].ClickCount != ranking[j].ClickCount {
			return ranking[i].ClickCount > ranking[j].ClickCount
		}
		return ranking[i].UserID < ranking[j].UserID
	})

	return StudentRanking{
		CollegeID:               collegeID,
		Ranking:                 ranking,
		TotalClicks:             total,
		TotalStudentsWithClicks: len(ranking),
	}, nil
}

// RankColleges 返回名册中每个学院的点击总数（按点击记录的 college_id 归属），
// 没有点击的学院以 0 出现；点击数相同时保持学院 ID 升序。
func (s *Service) RankColleges(ctx context.Context) (result []CollegeRank, err error) {
	defer s.observe("rank_colleges", time.Now(), &err)

	colleges, err := s.colleges.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.countBy(ctx, repository.ClickScanFilter{}, func(ev clickdomain.Event) uint { return ev.CollegeID })
	if err != nil {
		return nil, err
	}
	return rankColleges(colleges, counts), nil
}

func rankColleges(colleges []college.College, counts map[uint]int64) []CollegeRank {
	ordered := slices.Clone(colleges)
	slices.SortFunc(ordered, func(a, b college.College) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	ranking := make([]CollegeRank, 0, len(ordered))
	for _, c := range ordered {
		ranking = append(ranking, CollegeRank{
			CollegeID:   c.ID,
			CollegeName: c.Name,
			TotalClicks: counts[c.ID],
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].TotalClicks > ranking[j].TotalClicks
	})
	return ranking
}

// CategoryDistribution 统计每个分类的论文数，没有论文的分类不出现。
func (s *Service) CategoryDistribution(ctx context.Context) (result CategoryDistribution, err error) {
	defer s.observe("category_distribution", time.Now(), &err)

	rows, err := s.papers.CountByCategory(ctx)
	if err != nil {
		return CategoryDistribution{}, err
	}
	result = CategoryDistribution{
		Categories: make([]string, 0, len(rows)),
		Counts:     make([]int64, 0, len(rows)),
	}
	for _, row := range rows {
		if row.Count <= 0 {
			continue
		}
		result.Categories = append(result.Categories, row.Name)
		result.Counts = append(result.Counts, row.Count)
	}
	return result, nil
}

// YearDistribution 按论文创建时间的 UTC 年份分桶，年份升序。
func (s *Service) YearDistribution(ctx context.Context) (result YearDistribution, err error) {
	defer s.observe("year_distribution", time.Now(), &err)

	stamps, err := s.papers.ListCreatedAt(ctx)
	if err != nil {
		return YearDistribution{}, err
	}
	buckets := make(map[int]int64)
	for _, ts := range stamps {
		buckets[ts.UTC().Year()]++
	}
	years := make([]int, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	slices.Sort(years)

	result = YearDistribution{
		Years:  years,
		Counts: make([]int64, 0, len(years)),
	}
	for _, year := range years {
		result.Counts = append(result.Counts, buckets[year])
	}
	return result, nil
}

// PaperStats 汇总论文总数、今日新增、分类数与今日点击；collegeID 非 0 时今日点击只统计该学院。
func (s *Service) PaperStats(ctx context.Context, collegeID uint) (result PaperStats, err error) {
	defer s.observe("paper_stats", time.Now(), &err)

	start, end := clock.DayRange(s.clock.Now())

	if result.TotalPapers, err = s.papers.Count(ctx); err != nil {
		return PaperStats{}, err
	}
	if result.TodayPapers, err = s.papers.CountCreatedBetween(ctx, start, end); err != nil {
		return PaperStats{}, err
	}
	if result.CategoryCount, err = s.papers.CountCategories(ctx); err != nil {
		return PaperStats{}, err
	}
	todayClicks, err := s.count(ctx, repository.ClickScanFilter{CollegeID: collegeID, Since: start, Until: end})
	if err != nil {
		return PaperStats{}, err
	}
	result.TodayClicks = todayClicks
	return result, nil
}

// CollegeStudentStats 统计学院学生总数、今日有点击的学生数与学生点击总数。
func (s *Service) CollegeStudentStats(ctx context.Context, collegeID uint) (result StudentStats, err error) {
	defer s.observe("college_student_stats", time.Now(), &err)

	students, err := s.students.ListStudents(ctx, collegeID)
	if err != nil {
		return StudentStats{}, err
	}
	ids := make([]uint, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}

	start, end := clock.DayRange(s.clock.Now())
	active := make(map[uint]struct{})
	var total int64
	err = s.each(ctx, repository.ClickScanFilter{UserIDs: ids}, func(ev clickdomain.Event) {
		total++
		if !ev.ClickTime.Before(start) && ev.ClickTime.Before(end) {
			active[ev.UserID] = struct{}{}
		}
	})
	if err != nil {
		return StudentStats{}, err
	}
	return StudentStats{
		TotalStudents: len(students),
		ActiveToday:   len(active),
		TotalClicks:   total,
	}, nil
}

// ClickCounts 返回给定用户各自的点击总数，没有点击的用户计为 0。
func (s *Service) ClickCounts(ctx context.Context, userIDs []uint) (map[uint]int64, error) {
	if len(userIDs) == 0 {
		return map[uint]int64{}, nil
	}
	counts, err := s.countBy(ctx, repository.ClickScanFilter{UserIDs: userIDs}, func(ev clickdomain.Event) uint { return ev.UserID })
	if err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}
	return counts, nil
}

// Summary 按角色返回对应的看板。
func (s *Service) Summary(ctx context.Context, scope Scope) (Summary, error) {
	switch scope.Role {
	case user.RoleStudent:
		summary, err := s.studentSummary(ctx, scope.UserID)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Role: scope.Role, Student: &summary}, nil
	case user.RoleCollegeAdmin:
		summary, err := s.collegeSummary(ctx, scope.CollegeID)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Role: scope.Role, College: &summary}, nil
	case user.RoleUniversityAdmin:
		summary, err := s.universitySummary(ctx)
		if err != nil {
			return Summary{}, err
		}
		return Summary{Role: scope.Role, University: &summary}, nil
	default:
		return Summary{}, apperr.Validation("role", "unknown role")
	}
}

func (s *Service) studentSummary(ctx context.Context, userID uint) (StudentSummary, error) {
	start, end := clock.DayRange(s.clock.Now())
	summary := StudentSummary{UserID: userID}
	err := s.each(ctx, repository.ClickScanFilter{UserID: userID}, func(ev clickdomain.Event) {
		summary.TotalClicks++
		if !ev.ClickTime.Before(start) && ev.ClickTime.Before(end) {
			summary.TodayClicks++
		}
	})
	if err != nil {
		return StudentSummary{}, err
	}
	if summary.Categories, err = s.CategoryDistribution(ctx); err != nil {
		return StudentSummary{}, err
	}
	if summary.Years, err = s.YearDistribution(ctx); err != nil {
		return StudentSummary{}, err
	}
	return summary, nil
}

func (s *Service) collegeSummary(ctx context.Context, collegeID uint) (CollegeSummary, error) {
	studentStats, err := s.CollegeStudentStats(ctx, collegeID)
	if err != nil {
		return CollegeSummary{}, err
	}
	paperStats, err := s.PaperStats(ctx, collegeID)
	if err != nil {
		return CollegeSummary{}, err
	}
	return CollegeSummary{
		CollegeID:    collegeID,
		StudentStats: studentStats,
		PaperStats:   paperStats,
	}, nil
}

func (s *Service) universitySummary(ctx context.Context) (UniversitySummary, error) {
	paperStats, err := s.PaperStats(ctx, 0)
	if err != nil {
		return UniversitySummary{}, err
	}
	ranking, err := s.RankColleges(ctx)
	if err != nil {
		return UniversitySummary{}, err
	}
	total, err := s.count(ctx, repository.ClickScanFilter{})
	if err != nil {
		return UniversitySummary{}, err
	}
	return UniversitySummary{
		PaperStats:     paperStats,
		CollegeRanking: ranking,
		TotalClicks:    total,
	}, nil
}

// each 遍历过滤后的点击，遇到错误立即停止并返回。
func (s *Service) each(ctx context.Context, filter repository.ClickScanFilter, visit func(clickdomain.Event)) error {
	for ev, err := range s.clicks.Scan(ctx, filter) {
		if err != nil {
			if apperr.IsStorage(err) {
				return err
			}
			return apperr.Storage("stats.scan", err)
		}
		visit(ev)
	}
	return nil
}

func (s *Service) count(ctx context.Context, filter repository.ClickScanFilter) (int64, error) {
	var total int64
	err := s.each(ctx, filter, func(clickdomain.Event) { total++ })
	return total, err
}

func (s *Service) countBy(ctx context.Context, filter repository.ClickScanFilter, key func(clickdomain.Event) uint) (map[uint]int64, error) {
	counts := make(map[uint]int64)
	err := s.each(ctx, filter, func(ev clickdomain.Event) { counts[key(ev)]++ })
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Service) observe(operation string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	metrics.ObserveAggregation(operation, time.Since(start), err)
	if err != nil {
		s.logger.Warnw("aggregation failed", "operation", operation, "error", err)
	}
}
