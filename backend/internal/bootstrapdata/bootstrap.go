package bootstrapdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	clickdomain "paper-portal/backend/internal/domain/click"
	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/paper"
	"paper-portal/backend/internal/domain/user"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	envDataDir              = "LOCAL_BOOTSTRAP_DATA_DIR"
	defaultBootstrapDataDir = "backend/data/bootstrap"

	collegesFilename   = "colleges.json"
	categoriesFilename = "categories.json"
	usersFilename      = "users.json"
	papersFilename     = "papers.json"
	clicksFilename     = "clicks.json"
)

// Options 描述预置数据导入所需的可选参数。
type Options struct {
	DataDir string
	Logger  *zap.SugaredLogger
	// Now 决定点击样例的时间基准，默认 time.Now().UTC()。
	Now func() time.Time
}

// Summary 记录一次导入新增的记录数。
type Summary struct {
	Colleges   int
	Categories int
	Users      int
	Papers     int
	Clicks     int
}

// SeedLocalDatabase 在本地模式下导入学院、分类、用户、论文与点击样例。
// 已存在的记录按唯一键跳过，点击样例仅在点击表为空时写入，重复执行不会产生重复数据。
func SeedLocalDatabase(ctx context.Context, db *gorm.DB, opts Options) error {
	_, err := Seed(ctx, db, opts)
	return err
}

// Seed 与 SeedLocalDatabase 相同，但返回导入统计。
func Seed(ctx context.Context, db *gorm.DB, opts Options) (Summary, error) {
	if db == nil {
		return Summary{}, errors.New("db is nil")
	}
	if opts.DataDir == "" {
		opts.DataDir = ResolveDataDir()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	var data seedFiles
	for _, f := range []struct {
		name   string
		target any
	}{
		{collegesFilename, &data.Colleges},
		{categoriesFilename, &data.Categories},
		{usersFilename, &data.Users},
		{papersFilename, &data.Papers},
		{clicksFilename, &data.Clicks},
	} {
		found, err := readSeed(filepath.Join(opts.DataDir, f.name), f.target)
		if err != nil {
			return Summary{}, err
		}
		if !found {
			opts.Logger.Infow("bootstrap seed not found, skip", "file", f.name, "dir", opts.DataDir)
		}
	}

	var summary Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := seeder{tx: tx, now: opts.Now().UTC()}
		steps := []func(*seedFiles, *Summary) error{
			s.colleges,
			s.categories,
			s.users,
			s.papers,
			s.clicks,
		}
		for _, step := range steps {
			if err := step(&data, &summary); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	opts.Logger.Infow("bootstrap data imported",
		"colleges", summary.Colleges,
		"categories", summary.Categories,
		"users", summary.Users,
		"papers", summary.Papers,
		"clicks", summary.Clicks,
	)
	return summary, nil
}

// ResolveDataDir 解析预置数据所在目录。
func ResolveDataDir() string {
	raw := strings.TrimSpace(os.Getenv(envDataDir))
	if raw == "" {
		return defaultBootstrapDataDir
	}
	return raw
}

type collegeSeed struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type categorySeed struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type userSeed struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	RealName    string `json:"real_name"`
	Role        string `json:"role"`
	CollegeCode string `json:"college_code"`
}

type paperSeed struct {
	Title        string `json:"title"`
	ArxivID      string `json:"arxiv_id"`
	DOI          string `json:"doi"`
	CategoryCode string `json:"category_code"`
	Abstract     string `json:"abstract"`
	PDFURL       string `json:"pdf_url"`
	CreatedAt    string `json:"created_at"`
}

// clickSeed 使用相对时间，保证导入后的样例能落在「今日」统计中。
type clickSeed struct {
	Username   string `json:"username"`
	ArxivID    string `json:"arxiv_id"`
	MinutesAgo int    `json:"minutes_ago"`
}

type seedFiles struct {
	Colleges   []collegeSeed
	Categories []categorySeed
	Users      []userSeed
	Papers     []paperSeed
	Clicks     []clickSeed
}

func readSeed(path string, target any) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return true, nil
}

type seeder struct {
	tx  *gorm.DB
	now time.Time

	collegeIDs  map[string]uint
	categoryIDs map[string]uint
	usersByName map[string]user.User
	paperIDs    map[string]uint
}

func (s *seeder) colleges(data *seedFiles, summary *Summary) error {
	s.collegeIDs = make(map[string]uint, len(data.Colleges))
	for idx, item := range data.Colleges {
		code := strings.TrimSpace(item.Code)
		if code == "" {
			return fmt.Errorf("college seed missing code at index %d", idx)
		}
		entity := college.College{Code: code, Name: strings.TrimSpace(item.Name)}
		created, err := firstOrCreate(s.tx, &entity, "code = ?", code)
		if err != nil {
			return fmt.Errorf("seed college %s: %w", code, err)
		}
		if created {
			summary.Colleges++
		}
		s.collegeIDs[code] = entity.ID
	}
	return nil
}

func (s *seeder) categories(data *seedFiles, summary *Summary) error {
	s.categoryIDs = make(map[string]uint, len(data.Categories))
	for idx, item := range data.Categories {
		code := strings.TrimSpace(item.Code)
		if code == "" {
			return fmt.Errorf("category seed missing code at index %d", idx)
		}
		entity := paper.Category{Code: code, Name: strings.TrimSpace(item.Name)}
		created, err := firstOrCreate(s.tx, &entity, "code = ?", code)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", code, err)
		}
		if created {
			summary.Categories++
		}
		s.categoryIDs[code] = entity.ID
	}
	return nil
}

func (s *seeder) users(data *seedFiles, summary *Summary) error {
	s.usersByName = make(map[string]user.User, len(data.Users))
	for idx, item := range data.Users {
		username := strings.TrimSpace(item.Username)
		if username == "" {
			return fmt.Errorf("user seed missing username at index %d", idx)
		}
		role, err := user.ParseRole(item.Role)
		if err != nil {
			return fmt.Errorf("user seed %s: %w", username, err)
		}
		var collegeID uint
		if code := strings.TrimSpace(item.CollegeCode); code != "" {
			id, ok := s.collegeIDs[code]
			if !ok {
				return fmt.Errorf("user seed %s references unknown college %q", username, code)
			}
			collegeID = id
		}
		if role != user.RoleUniversityAdmin && collegeID == 0 {
			return fmt.Errorf("user seed %s: role %s requires college_code", username, role)
		}

		entity := user.User{
			Username:  username,
			RealName:  strings.TrimSpace(item.RealName),
			Role:      role,
			CollegeID: collegeID,
		}
		if item.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(item.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", username, err)
			}
			entity.PasswordHash = string(hash)
		}
		created, err := firstOrCreate(s.tx, &entity, "username = ?", username)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", username, err)
		}
		if created {
			summary.Users++
		}
		s.usersByName[username] = entity
	}
	return nil
}

func (s *seeder) papers(data *seedFiles, summary *Summary) error {
	s.paperIDs = make(map[string]uint, len(data.Papers))
	for idx, item := range data.Papers {
		arxivID := strings.TrimSpace(item.ArxivID)
		if arxivID == "" {
			return fmt.Errorf("paper seed missing arxiv_id at index %d", idx)
		}
		categoryID, ok := s.categoryIDs[strings.TrimSpace(item.CategoryCode)]
		if !ok {
			return fmt.Errorf("paper seed %s references unknown category %q", arxivID, item.CategoryCode)
		}
		entity := paper.Paper{
			Title:      strings.TrimSpace(item.Title),
			ArxivID:    arxivID,
			DOI:        strings.TrimSpace(item.DOI),
			CategoryID: categoryID,
			Abstract:   item.Abstract,
			PDFURL:     strings.TrimSpace(item.PDFURL),
		}
		if raw := strings.TrimSpace(item.CreatedAt); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("paper seed %s created_at: %w", arxivID, err)
			}
			entity.CreatedAt = ts.UTC()
			entity.UpdatedAt = ts.UTC()
		}
		created, err := firstOrCreate(s.tx, &entity, "arxiv_id = ?", arxivID)
		if err != nil {
			return fmt.Errorf("seed paper %s: %w", arxivID, err)
		}
		if created {
			summary.Papers++
		}
		s.paperIDs[arxivID] = entity.ID
	}
	return nil
}

func (s *seeder) clicks(data *seedFiles, summary *Summary) error {
	if len(data.Clicks) == 0 {
		return nil
	}
	var existing int64
	if err := s.tx.Model(&clickdomain.Event{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("count clicks: %w", err)
	}
	if existing > 0 {
		return nil
	}

	events := make([]clickdomain.Event, 0, len(data.Clicks))
	for idx, item := range data.Clicks {
		u, ok := s.usersByName[strings.TrimSpace(item.Username)]
		if !ok {
			return fmt.Errorf("click seed references unknown user %q at index %d", item.Username, idx)
		}
		paperID, ok := s.paperIDs[strings.TrimSpace(item.ArxivID)]
		if !ok {
			return fmt.Errorf("click seed references unknown paper %q at index %d", item.ArxivID, idx)
		}
		if item.MinutesAgo < 0 {
			return fmt.Errorf("click seed minutes_ago must be >= 0 at index %d", idx)
		}
		events = append(events, clickdomain.Event{
			UserID:    u.ID,
			PaperID:   paperID,
			CollegeID: u.CollegeID,
			ClickTime: s.now.Add(-time.Duration(item.MinutesAgo) * time.Minute),
		})
	}
	if err := s.tx.CreateInBatches(&events, 100).Error; err != nil {
		return fmt.Errorf("insert clicks: %w", err)
	}
	summary.Clicks = len(events)
	return nil
}

// firstOrCreate 按唯一键查找记录，不存在时插入 entity；返回是否新建。
func firstOrCreate[T any](tx *gorm.DB, entity *T, query string, args ...any) (bool, error) {
	var existing T
	err := tx.Where(query, args...).Take(&existing).Error
	switch {
	case err == nil:
		*entity = existing
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(entity).Error; err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}
