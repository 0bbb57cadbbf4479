package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"paper-portal/backend/internal/app"
	"paper-portal/backend/internal/bootstrapdata"
	"paper-portal/backend/internal/config"
	clickdomain "paper-portal/backend/internal/domain/click"
	"paper-portal/backend/internal/domain/college"
	"paper-portal/backend/internal/domain/paper"
	"paper-portal/backend/internal/domain/user"
	"paper-portal/backend/internal/infra/logger"
	"paper-portal/backend/internal/infra/token"
	"paper-portal/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	outputPath = flag.String("output", "", "指定生成的 SQLite 文件路径")
	dataDir    = flag.String("data-dir", "", "指定预置数据目录，默认读取 LOCAL_BOOTSTRAP_DATA_DIR")
	tokenUser  = flag.Uint("token-user", 0, "为指定用户签发开发用 JWT")
)

// main 生成带有预置数据的本地 SQLite 文件，可选地为某个用户签发调试令牌。
func main() {
	flag.Parse()

	ensureLocalMode()

	if *outputPath != "" {
		if err := os.Setenv("LOCAL_SQLITE_PATH", strings.TrimSpace(*outputPath)); err != nil {
			panic(fmt.Sprintf("set LOCAL_SQLITE_PATH failed: %v", err))
		}
	}
	if *dataDir != "" {
		if err := os.Setenv("LOCAL_BOOTSTRAP_DATA_DIR", strings.TrimSpace(*dataDir)); err != nil {
			panic(fmt.Sprintf("set LOCAL_BOOTSTRAP_DATA_DIR failed: %v", err))
		}
	}

	zapLogger, err := logger.Init()
	if err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()
	sugar := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := app.InitResources(ctx)
	if err != nil {
		sugar.Fatalw("initialise resources failed", "error", err)
	}
	defer func() {
		if closeErr := resources.Close(); closeErr != nil {
			sugar.Warnw("close resources failed", "error", closeErr)
		}
	}()

	if err := reportSeedSummary(ctx, resources.DBConn(), sugar); err != nil {
		sugar.Warnw("report seed summary failed", "error", err)
	}

	if *tokenUser != 0 {
		if err := issueDevToken(ctx, resources, uint(*tokenUser)); err != nil {
			sugar.Fatalw("issue token failed", "user_id", *tokenUser, "error", err)
		}
	}

	sugar.Infow(
		"offline database ready",
		"sqlite_path", resources.Config.Local.DBPath,
		"data_dir", bootstrapdata.ResolveDataDir(),
	)
}

// ensureLocalMode 确保命令在本地模式下运行，便于自动应用 SQLite 与预置数据逻辑。
func ensureLocalMode() {
	if mode := strings.TrimSpace(os.Getenv("APP_MODE")); !strings.EqualFold(mode, config.ModeLocal) {
		if err := os.Setenv("APP_MODE", config.ModeLocal); err != nil {
			panic(fmt.Sprintf("set APP_MODE failed: %v", err))
		}
	}
	if err := os.Setenv("LOCAL_SEED_ON_INIT", "true"); err != nil {
		panic(fmt.Sprintf("set LOCAL_SEED_ON_INIT failed: %v", err))
	}
}

// reportSeedSummary 统计关键表的记录数，便于调用者确认导入结果。
func reportSeedSummary(ctx context.Context, db *gorm.DB, sugar *zap.SugaredLogger) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	counts := make([]any, 0, 10)
	for _, t := range []struct {
		name  string
		model any
	}{
		{"colleges", &college.College{}},
		{"users", &user.User{}},
		{"categories", &paper.Category{}},
		{"papers", &paper.Paper{}},
		{"clicks", &clickdomain.Event{}},
	} {
		var n int64
		if err := db.WithContext(ctx).Model(t.model).Count(&n).Error; err != nil {
			return fmt.Errorf("count %s: %w", t.name, err)
		}
		counts = append(counts, t.name, n)
	}

	sugar.Infow("seed summary", counts...)
	return nil
}

// issueDevToken 按数据库中的用户信息签发 JWT，并打印到标准输出。
func issueDevToken(ctx context.Context, resources *app.Resources, userID uint) error {
	u, err := repository.NewUserRepository(resources.DBConn()).FindByID(ctx, userID)
	if err != nil {
		return err
	}
	principal := user.Principal{UserID: u.ID, Role: u.Role, CollegeID: u.CollegeID}
	if err := principal.Validate(); err != nil {
		return err
	}
	cfg := resources.Config.Server
	raw, expiresAt, err := token.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).Issue(principal)
	if err != nil {
		return err
	}
	fmt.Printf("user=%s role=%s expires_at=%s\n%s\n", u.Username, u.Role, expiresAt.Format("2006-01-02T15:04:05Z07:00"), raw)
	return nil
}
