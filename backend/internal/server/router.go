/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 15:10:24
 * @FilePath: \paper-portal\backend\internal\server\router.go
 * @LastEditTime: 2025-11-05 10:02:11
 */
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"paper-portal/backend/internal/handler"
	response "paper-portal/backend/internal/infra/common"
	"paper-portal/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck 用于 /healthz 探测底层依赖是否可用。
type HealthCheck func(ctx context.Context) error

type RouterOptions struct {
	ClickHandler *handler.ClickHandler
	StatsHandler *handler.StatsHandler
	AdminHandler *handler.AdminHandler
	AuthMW       middleware.Authenticator
	Health       HealthCheck
}

// NewRouter 构建应用的 Gin Engine，汇总所有 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// gin 中间件配置
	r.Use(middleware.RequestID())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
		},
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(opts.Health))

	api := r.Group("/api")
	// 所有业务接口都依赖调用者身份，统一挂载鉴权中间件。
	if opts.AuthMW != nil {
		api.Use(opts.AuthMW.Handle())
	}

	if opts.ClickHandler != nil {
		clicks := api.Group("/clicks")
		clicks.POST("", opts.ClickHandler.Record)
		clicks.GET("", opts.ClickHandler.History)
		clicks.DELETE("/:id", opts.ClickHandler.Delete)
	}

	if opts.StatsHandler != nil {
		stats := api.Group("/stats")
		stats.GET("/categories", opts.StatsHandler.Categories)
		stats.GET("/years", opts.StatsHandler.Years)
		stats.GET("/colleges", opts.StatsHandler.Colleges)
		stats.GET("/colleges/:id/students", opts.StatsHandler.Students)
		api.GET("/dashboard", opts.StatsHandler.Dashboard)
	}

	if opts.AdminHandler != nil {
		api.GET("/colleges/:id/students", opts.AdminHandler.CollegeStudents)
		api.DELETE("/users/:id", opts.AdminHandler.RemoveUser)
		api.PUT("/papers/:id", opts.AdminHandler.UpdatePaper)
		api.DELETE("/papers/:id", opts.AdminHandler.RemovePaper)
	}

	return r
}

func healthz(check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "unhealthy", gin.H{"reason": err.Error()})
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, nil)
	}
}
