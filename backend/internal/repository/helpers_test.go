package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/paper"
	"paper-portal/backend/internal/domain/user"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type fixture struct {
	college  college.College
	student  user.User
	category paper.Category
	paper    paper.Paper
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		college:  college.College{Name: "Computer Science", Code: "CS"},
		category: paper.Category{Code: "cs.AI", Name: "Artificial Intelligence"},
	}
	if err := NewCollegeRepository(db).Create(ctx, &f.college); err != nil {
		t.Fatalf("create college: %v", err)
	}
	f.student = user.User{Username: "alice", RealName: "Alice", Role: user.RoleStudent, CollegeID: f.college.ID}
	if err := NewUserRepository(db).Create(ctx, &f.student); err != nil {
		t.Fatalf("create user: %v", err)
	}
	papers := NewPaperRepository(db)
	if err := papers.CreateCategory(ctx, &f.category); err != nil {
		t.Fatalf("create category: %v", err)
	}
	f.paper = paper.Paper{Title: "Attention", ArxivID: "1706.03762", CategoryID: f.category.ID}
	if err := papers.Create(ctx, &f.paper); err != nil {
		t.Fatalf("create paper: %v", err)
	}
	return f
}
