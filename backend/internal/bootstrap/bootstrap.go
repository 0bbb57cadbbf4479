/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 20:51:28
 * @FilePath: \paper-portal\backend\internal\bootstrap\bootstrap.go
 * @LastEditTime: 2025-11-05 10:44:19
 */
package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"paper-portal/backend/internal/app"
	"paper-portal/backend/internal/config"
	"paper-portal/backend/internal/handler"
	"paper-portal/backend/internal/infra/clock"
	"paper-portal/backend/internal/infra/metrics"
	"paper-portal/backend/internal/infra/ratelimit"
	"paper-portal/backend/internal/infra/token"
	"paper-portal/backend/internal/middleware"
	"paper-portal/backend/internal/repository"
	"paper-portal/backend/internal/server"
	clicksvc "paper-portal/backend/internal/service/click"
	portalsvc "paper-portal/backend/internal/service/portal"
	statssvc "paper-portal/backend/internal/service/stats"

	"go.uber.org/zap"
)

// Application 汇总组装完成的服务与路由。
type Application struct {
	Resources *app.Resources
	Clicks    *clicksvc.Service
	Stats     *statssvc.Service
	Portal    *portalsvc.Service
	Tokens    *token.JWTManager
	Router    http.Handler
}

// Options 允许测试替换时钟。
type Options struct {
	Clock clock.Clock
}

// BuildApplication 按依赖顺序组装仓储、服务、Handler 与路由。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources, opts Options) (*Application, error) {
	if resources == nil || resources.DBConn() == nil {
		return nil, errors.New("bootstrap: database not initialised")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	cfg := resources.Config.Server
	db := resources.DBConn()

	metrics.MustRegister()

	clickRepo := repository.NewClickRepository(db)
	userRepo := repository.NewUserRepository(db)
	paperRepo := repository.NewPaperRepository(db)
	collegeRepo := repository.NewCollegeRepository(db)

	clickService := clicksvc.NewService(clicksvc.Config{
		DedupWindow:  cfg.DedupWindow,
		HistoryLimit: cfg.HistoryLimit,
	}, clickRepo, userRepo, paperRepo, collegeRepo, clk, logger.With("component", "service.click"))
	statsService := statssvc.NewService(clickRepo, userRepo, collegeRepo, paperRepo, clk, logger.With("component", "service.stats"))
	portalService := portalsvc.NewService(portalsvc.Config{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}, clickService, statsService, userRepo, paperRepo, collegeRepo, logger.With("component", "service.portal"))

	var limiter ratelimit.Limiter
	if resources.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(resources.Redis, resources.Config.Redis.KeyPrefix+":ratelimit")
	} else {
		limiter = ratelimit.NewMemoryLimiter(clk.Now)
		logger.Infow("using in-memory click rate limiter; counters won't be shared across instances")
	}

	tokens := token.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	var authMW middleware.Authenticator
	if resources.Config.Mode == config.ModeLocal {
		principal := resources.Config.Local.Principal()
		if err := principal.Validate(); err != nil {
			return nil, err
		}
		authMW = middleware.NewOfflineAuthMiddleware(principal)
		logger.Infow("offline auth enabled", "user_id", principal.UserID, "role", principal.Role, "college_id", principal.CollegeID)
	} else {
		authMW = middleware.NewAuthMiddleware(tokens, logger.With("component", "middleware.auth"))
	}

	router := server.NewRouter(server.RouterOptions{
		ClickHandler: handler.NewClickHandler(portalService, limiter, handler.ClickRateLimit{
			Limit:  cfg.ClickRateLimit,
			Window: cfg.ClickRateWindow,
		}, logger),
		StatsHandler: handler.NewStatsHandler(portalService, logger),
		AdminHandler: handler.NewAdminHandler(portalService, logger),
		AuthMW:       authMW,
		Health:       resources.Ping,
	})

	return &Application{
		Resources: resources,
		Clicks:    clickService,
		Stats:     statsService,
		Portal:    portalService,
		Tokens:    tokens,
		Router:    router,
	}, nil
}
