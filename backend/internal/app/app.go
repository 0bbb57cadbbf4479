/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 19:54:47
 * @FilePath: \paper-portal\backend\internal\app\app.go
 * @LastEditTime: 2025-11-04 21:17:30
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paper-portal/backend/internal/bootstrapdata"
	"paper-portal/backend/internal/config"
	"paper-portal/backend/internal/infra/client"
	"paper-portal/backend/internal/infra/logger"
	"paper-portal/backend/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// AppConfig 汇总启动阶段解析出的配置。
type AppConfig struct {
	Mode   string
	Local  config.LocalRuntime
	MySQL  client.MySQLConfig
	Redis  client.RedisOptions
	Server config.ServerConfig
}

// Resources 持有进程级的外部连接，由 Close 统一释放。
type Resources struct {
	Config AppConfig
	DB     *gorm.DB
	Redis  *redis.Client
}

// InitResources 读取环境变量并建立数据库连接：
// local 模式使用 SQLite 并按需导入预置数据，online 模式连接 MySQL，Redis 为可选依赖。
func InitResources(ctx context.Context) (*Resources, error) {
	config.LoadEnvFiles()
	log := logger.Component("app")

	flags := config.LoadRuntimeFlags()
	res := &Resources{
		Config: AppConfig{
			Mode:   flags.Mode,
			Local:  flags.Local,
			Server: config.LoadServerConfig(),
		},
	}

	gormCfg := &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
	}

	switch flags.Mode {
	case config.ModeLocal:
		db, err := client.NewGORMSQLite(flags.Local.DBPath, gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		res.DB = db
		if err := repository.AutoMigrate(db); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		if flags.Local.SeedOnInit {
			if err := bootstrapdata.SeedLocalDatabase(ctx, db, bootstrapdata.Options{Logger: log}); err != nil {
				_ = res.Close()
				return nil, fmt.Errorf("seed local database: %w", err)
			}
		}
		log.Infow("local mode ready", "sqlite_path", flags.Local.DBPath, "principal_role", flags.Local.Role)
	case config.ModeOnline:
		mysqlCfg, err := client.LoadMySQLConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("load mysql config: %w", err)
		}
		db, err := client.NewGORMMySQL(mysqlCfg, gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		res.Config.MySQL = mysqlCfg
		res.DB = db
		if err := repository.AutoMigrate(db); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Infow("mysql connected", "host", mysqlCfg.Host, "database", mysqlCfg.Database)
	default:
		return nil, fmt.Errorf("unknown APP_MODE %q", flags.Mode)
	}

	redisOpts, err := client.NewDefaultRedisOptions()
	switch {
	case errors.Is(err, client.ErrRedisNotConfigured):
		log.Infow("redis not configured, falling back to in-memory rate limiter")
	case err != nil:
		_ = res.Close()
		return nil, fmt.Errorf("load redis options: %w", err)
	default:
		rdb, err := client.NewRedisClient(ctx, redisOpts)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		res.Config.Redis = redisOpts
		res.Redis = rdb
		log.Infow("redis connected", "addr", redisOpts.Addr())
	}

	return res, nil
}

// Ping 检查数据库与 Redis 连接，供 /healthz 使用。
func (r *Resources) Ping(ctx context.Context) error {
	if r == nil || r.DB == nil {
		return errors.New("database not initialised")
	}
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if r.Redis != nil {
		if err := r.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}
	return nil
}

func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func (r *Resources) DBConn() *gorm.DB {
	if r == nil {
		return nil
	}
	return r.DB
}
