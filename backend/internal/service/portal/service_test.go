package portal

import (
	"context"
	"testing"
	"time"

	"paper-portal/backend/internal/apperr"
	clickdomain "paper-portal/backend/internal/domain/click"
	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/paper"
	"paper-portal/backend/internal/domain/user"
	"paper-portal/backend/internal/repository"
	clicksvc "paper-portal/backend/internal/service/click"
	statssvc "paper-portal/backend/internal/service/stats"

	"go.uber.org/zap"
)

// calls 统计下游被调用的次数，用于断言校验失败时不会触达存储。
type calls struct{ n int }

func (c *calls) hit() { c.n++ }

type stubGate struct {
	*calls
	created bool
}

func (s stubGate) RecordClick(_ context.Context, in clicksvc.RecordInput) (clicksvc.RecordResult, error) {
	s.hit()
	return clicksvc.RecordResult{
		Event:   clickdomain.Event{ID: 11, UserID: in.UserID, PaperID: in.PaperID, CollegeID: in.CollegeID, ClickTime: time.Unix(0, 0).UTC()},
		Created: s.created,
	}, nil
}

func (s stubGate) History(_ context.Context, userID uint) ([]clickdomain.Event, error) {
	s.hit()
	return []clickdomain.Event{{ID: 1, UserID: userID}}, nil
}

func (s stubGate) Forget(context.Context, uint64, uint) (bool, error) {
	s.hit()
	return true, nil
}

type stubAgg struct{ *calls }

func (s stubAgg) RankStudentsInCollege(_ context.Context, collegeID uint) (statssvc.StudentRanking, error) {
	s.hit()
	return statssvc.StudentRanking{CollegeID: collegeID}, nil
}
func (s stubAgg) RankColleges(context.Context) ([]statssvc.CollegeRank, error) {
	s.hit()
	return []statssvc.CollegeRank{}, nil
}
func (s stubAgg) CategoryDistribution(context.Context) (statssvc.CategoryDistribution, error) {
	s.hit()
	return statssvc.CategoryDistribution{}, nil
}
func (s stubAgg) YearDistribution(context.Context) (statssvc.YearDistribution, error) {
	s.hit()
	return statssvc.YearDistribution{}, nil
}
func (s stubAgg) Summary(_ context.Context, scope statssvc.Scope) (statssvc.Summary, error) {
	s.hit()
	return statssvc.Summary{Role: scope.Role}, nil
}
func (s stubAgg) CollegeStudentStats(context.Context, uint) (statssvc.StudentStats, error) {
	s.hit()
	return statssvc.StudentStats{TotalStudents: 3}, nil
}
func (s stubAgg) ClickCounts(_ context.Context, ids []uint) (map[uint]int64, error) {
	s.hit()
	out := make(map[uint]int64, len(ids))
	for _, id := range ids {
		out[id] = int64(id)
	}
	return out, nil
}

type stubUsers struct {
	*calls
	users map[uint]user.User
}

func (s stubUsers) FindByID(_ context.Context, id uint) (*user.User, error) {
	s.hit()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user", uint64(id))
	}
	return &u, nil
}

func (s stubUsers) ListStudentsPage(_ context.Context, f repository.StudentListFilter) ([]user.User, int64, error) {
	s.hit()
	var all []user.User
	for id := uint(1); id <= 50; id++ {
		if u, ok := s.users[id]; ok && u.Role == user.RoleStudent && u.CollegeID == f.CollegeID {
			all = append(all, u)
		}
	}
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []user.User{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], total, nil
}

func (s stubUsers) DeleteWithClicks(_ context.Context, id uint) (bool, error) {
	s.hit()
	_, ok := s.users[id]
	return ok, nil
}

type stubPapers struct{ *calls }

func (s stubPapers) Update(_ context.Context, id uint, changes paper.Changes) (*paper.Paper, error) {
	s.hit()
	return &paper.Paper{ID: id, Title: *changes.Title}, nil
}

func (s stubPapers) DeleteWithClicks(_ context.Context, id uint) (bool, error) {
	s.hit()
	return id != 404, nil
}

type stubColleges struct{ *calls }

func (s stubColleges) FindByID(_ context.Context, id uint) (*college.College, error) {
	s.hit()
	if id > 10 {
		return nil, apperr.NotFound("college", uint64(id))
	}
	return &college.College{ID: id}, nil
}

var (
	student    = user.Principal{UserID: 1, Role: user.RoleStudent, CollegeID: 1}
	csAdmin    = user.Principal{UserID: 2, Role: user.RoleCollegeAdmin, CollegeID: 1}
	mathAdmin  = user.Principal{UserID: 3, Role: user.RoleCollegeAdmin, CollegeID: 2}
	university = user.Principal{UserID: 4, Role: user.RoleUniversityAdmin}
)

func newTestService(created bool) (*Service, *calls) {
	c := &calls{}
	users := map[uint]user.User{
		1: {ID: 1, Username: "alice", Role: user.RoleStudent, CollegeID: 1},
		2: {ID: 2, Username: "cs_admin", Role: user.RoleCollegeAdmin, CollegeID: 1},
		3: {ID: 3, Username: "math_admin", Role: user.RoleCollegeAdmin, CollegeID: 2},
		4: {ID: 4, Username: "root", Role: user.RoleUniversityAdmin},
	}
	for id := uint(10); id < 35; id++ {
		users[id] = user.User{ID: id, Username: "stu", Role: user.RoleStudent, CollegeID: 1}
	}
	svc := NewService(Config{DefaultPageSize: 10, MaxPageSize: 20},
		stubGate{calls: c, created: created},
		stubAgg{calls: c},
		stubUsers{calls: c, users: users},
		stubPapers{calls: c},
		stubColleges{calls: c},
		zap.NewNop().Sugar(),
	)
	return svc, c
}

func TestValidationRunsBeforeAnyStoreCall(t *testing.T) {
	svc, c := newTestService(true)
	ctx := context.Background()

	checks := []struct {
		name  string
		field string
		call  func() error
	}{
		{"zero principal", "principal", func() error {
			_, err := svc.Dashboard(ctx, user.Principal{})
			return err
		}},
		{"student without college", "principal", func() error {
			_, err := svc.CategoryDistribution(ctx, user.Principal{UserID: 1, Role: user.RoleStudent})
			return err
		}},
		{"zero paper", "paper_id", func() error {
			_, err := svc.RecordClick(ctx, student, RecordClickRequest{UserID: 1, CollegeID: 1})
			return err
		}},
		{"zero click id", "click_id", func() error {
			_, err := svc.DeleteClick(ctx, student, 0, 1)
			return err
		}},
		{"zero college", "college_id", func() error {
			_, err := svc.StudentRanking(ctx, university, 0)
			return err
		}},
		{"negative page", "page", func() error {
			_, err := svc.ListCollegeStudents(ctx, university, RosterQuery{CollegeID: 1, Page: -1})
			return err
		}},
		{"page size too large", "page_size", func() error {
			_, err := svc.ListCollegeStudents(ctx, university, RosterQuery{CollegeID: 1, PageSize: 21})
			return err
		}},
		{"empty changes", "changes", func() error {
			_, err := svc.UpdatePaper(ctx, student, 1, paper.Changes{})
			return err
		}},
		{"blank title", "title", func() error {
			blank := " "
			_, err := svc.UpdatePaper(ctx, university, 1, paper.Changes{Title: &blank})
			return err
		}},
		{"zero user", "user_id", func() error {
			return svc.RemoveUser(ctx, university, 0)
		}},
		{"zero removed paper", "paper_id", func() error {
			return svc.RemovePaper(ctx, university, 0)
		}},
	}
	for _, tc := range checks {
		err := tc.call()
		verr, ok := err.(*apperr.ValidationError)
		if !ok {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: expected field %s, got %s", tc.name, tc.field, verr.Field)
		}
	}
	if c.n != 0 {
		t.Fatalf("expected no downstream calls, got %d", c.n)
	}
}

func TestRecordClickOnlyForCaller(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	if _, err := svc.RecordClick(ctx, student, RecordClickRequest{UserID: 9, PaperID: 1, CollegeID: 1}); !apperr.IsPermission(err) {
		t.Fatalf("expected permission error, got %v", err)
	}
	view, err := svc.RecordClick(ctx, student, RecordClickRequest{UserID: 1, PaperID: 5, CollegeID: 1})
	if err != nil {
		t.Fatalf("record click: %v", err)
	}
	if !view.Duplicate || view.ClickID != 11 || view.PaperID != 5 {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestClickHistoryScopes(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	if _, err := svc.ClickHistory(ctx, student, 10); !apperr.IsPermission(err) {
		t.Fatalf("student reading another user: expected permission error, got %v", err)
	}
	if _, err := svc.ClickHistory(ctx, student, 1); err != nil {
		t.Fatalf("student reading own history: %v", err)
	}
	if _, err := svc.ClickHistory(ctx, csAdmin, 10); err != nil {
		t.Fatalf("college admin reading own college: %v", err)
	}
	if _, err := svc.ClickHistory(ctx, mathAdmin, 10); !apperr.IsPermission(err) {
		t.Fatalf("college admin reading other college: expected permission error, got %v", err)
	}
	if _, err := svc.ClickHistory(ctx, mathAdmin, 999); !apperr.IsNotFound(err) {
		t.Fatalf("college admin reading unknown user: expected not found, got %v", err)
	}
	if _, err := svc.ClickHistory(ctx, university, 10); err != nil {
		t.Fatalf("university admin: %v", err)
	}
}

func TestRankingPermissions(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	if _, err := svc.StudentRanking(ctx, student, 1); !apperr.IsPermission(err) {
		t.Fatalf("student: expected permission error, got %v", err)
	}
	if _, err := svc.StudentRanking(ctx, mathAdmin, 1); !apperr.IsPermission(err) {
		t.Fatalf("other college admin: expected permission error, got %v", err)
	}
	if r, err := svc.StudentRanking(ctx, csAdmin, 1); err != nil || r.CollegeID != 1 {
		t.Fatalf("own college admin: %+v %v", r, err)
	}
	if _, err := svc.StudentRanking(ctx, university, 99); !apperr.IsNotFound(err) {
		t.Fatalf("unknown college: expected not found, got %v", err)
	}

	if _, err := svc.CollegeRanking(ctx, csAdmin); !apperr.IsPermission(err) {
		t.Fatalf("college admin: expected permission error, got %v", err)
	}
	if _, err := svc.CollegeRanking(ctx, university); err != nil {
		t.Fatalf("university admin: %v", err)
	}
	if _, err := svc.YearDistribution(ctx, student); err != nil {
		t.Fatalf("student year distribution: %v", err)
	}
}

func TestDashboardUsesPrincipalRole(t *testing.T) {
	svc, _ := newTestService(true)
	summary, err := svc.Dashboard(context.Background(), csAdmin)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.Role != user.RoleCollegeAdmin {
		t.Fatalf("unexpected role %s", summary.Role)
	}
}

func TestListCollegeStudentsPaging(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	page, err := svc.ListCollegeStudents(ctx, csAdmin, RosterQuery{CollegeID: 1, Page: 3})
	if err != nil {
		t.Fatalf("list students: %v", err)
	}
	// 学院 1 共 26 名学生：alice 与 id 10..34。
	if page.Total != 26 || page.TotalPages != 3 || page.PageSize != 10 || len(page.Items) != 6 {
		t.Fatalf("unexpected page: total=%d pages=%d size=%d items=%d", page.Total, page.TotalPages, page.PageSize, len(page.Items))
	}
	if page.Items[0].ClickCount != int64(page.Items[0].UserID) {
		t.Fatalf("expected click counts to be attached, got %+v", page.Items[0])
	}
	if page.Stats.TotalStudents != 3 {
		t.Fatalf("expected college stats to be attached, got %+v", page.Stats)
	}

	if _, err := svc.ListCollegeStudents(ctx, student, RosterQuery{CollegeID: 1}); !apperr.IsPermission(err) {
		t.Fatalf("student: expected permission error, got %v", err)
	}
}

func TestRemoveUserRules(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	if err := svc.RemoveUser(ctx, csAdmin, csAdmin.UserID); !apperr.IsPermission(err) {
		t.Fatalf("self removal: expected permission error, got %v", err)
	}
	if err := svc.RemoveUser(ctx, student, 10); !apperr.IsPermission(err) {
		t.Fatalf("student: expected permission error, got %v", err)
	}
	if err := svc.RemoveUser(ctx, mathAdmin, 10); !apperr.IsPermission(err) {
		t.Fatalf("other college admin: expected permission error, got %v", err)
	}
	if err := svc.RemoveUser(ctx, csAdmin, 3); !apperr.IsPermission(err) {
		t.Fatalf("college admin removing admin: expected permission error, got %v", err)
	}
	if err := svc.RemoveUser(ctx, csAdmin, 10); err != nil {
		t.Fatalf("college admin removing own student: %v", err)
	}
	if err := svc.RemoveUser(ctx, university, 3); err != nil {
		t.Fatalf("university admin: %v", err)
	}
	if err := svc.RemoveUser(ctx, university, 999); !apperr.IsNotFound(err) {
		t.Fatalf("unknown user: expected not found, got %v", err)
	}
}

func TestPaperAdministration(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()
	title := "Updated"

	if _, err := svc.UpdatePaper(ctx, student, 1, paper.Changes{Title: &title}); !apperr.IsPermission(err) {
		t.Fatalf("student update: expected permission error, got %v", err)
	}
	updated, err := svc.UpdatePaper(ctx, csAdmin, 1, paper.Changes{Title: &title})
	if err != nil || updated.Title != title {
		t.Fatalf("admin update: %+v %v", updated, err)
	}

	if err := svc.RemovePaper(ctx, student, 1); !apperr.IsPermission(err) {
		t.Fatalf("student remove: expected permission error, got %v", err)
	}
	if err := svc.RemovePaper(ctx, university, 404); !apperr.IsNotFound(err) {
		t.Fatalf("missing paper: expected not found, got %v", err)
	}
	if err := svc.RemovePaper(ctx, university, 1); err != nil {
		t.Fatalf("remove paper: %v", err)
	}
}
