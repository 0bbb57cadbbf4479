/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 17:16:56
 * @FilePath: \paper-portal\backend\internal\infra\client\mysql_client.go
 * @LastEditTime: 2025-11-01 16:52:30
 */
package client

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"paper-portal/backend/internal/config"

	mysqlcfg "github.com/go-sql-driver/mysql"
	mysqlDriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	envMySQLDSN      = "MYSQL_DSN"
	envMySQLHost     = "MYSQL_HOST"
	envMySQLPort     = "MYSQL_PORT"
	envMySQLUser     = "MYSQL_USERNAME"
	envMySQLPassword = "MYSQL_PASSWORD"
	envMySQLDatabase = "MYSQL_DATABASE"
)

const (
	defaultMySQLPort     = 3306
	defaultMySQLDatabase = "paper_portal"
)

// MySQLConfig 描述数据库连接配置，DSN 非空时优先使用。
type MySQLConfig struct {
	DSN      string
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// LoadMySQLConfigFromEnv 从环境变量读取 MySQL 配置。
func LoadMySQLConfigFromEnv() (MySQLConfig, error) {
	config.LoadEnvFiles()

	cfg := MySQLConfig{
		DSN:      strings.TrimSpace(os.Getenv(envMySQLDSN)),
		Host:     strings.TrimSpace(os.Getenv(envMySQLHost)),
		Port:     defaultMySQLPort,
		Username: strings.TrimSpace(os.Getenv(envMySQLUser)),
		Password: os.Getenv(envMySQLPassword),
		Database: strings.TrimSpace(os.Getenv(envMySQLDatabase)),
	}
	if raw := strings.TrimSpace(os.Getenv(envMySQLPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 {
			return MySQLConfig{}, fmt.Errorf("invalid %s: %q", envMySQLPort, raw)
		}
		cfg.Port = port
	}
	if cfg.Database == "" {
		cfg.Database = defaultMySQLDatabase
	}
	return cfg, nil
}

// BuildMySQLDSN 生成 DSN：统一 parseTime=true 且 loc=UTC，保证点击时间与“今日”边界都按 UTC 解释。
// 未提供 MYSQL_DSN 时字符集固定为 utf8mb4。
func BuildMySQLDSN(cfg MySQLConfig) (string, error) {
	var driverCfg *mysqlcfg.Config
	if cfg.DSN != "" {
		parsed, err := mysqlcfg.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		driverCfg = parsed
	} else {
		if err := validateMySQLConfig(cfg); err != nil {
			return "", err
		}
		driverCfg = mysqlcfg.NewConfig()
		driverCfg.User = cfg.Username
		driverCfg.Passwd = cfg.Password
		driverCfg.Net = "tcp"
		driverCfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		driverCfg.DBName = cfg.Database
		driverCfg.Params = map[string]string{"charset": "utf8mb4"}
	}

	driverCfg.ParseTime = true
	driverCfg.Loc = time.UTC
	return driverCfg.FormatDSN(), nil
}

// NewGORMMySQL 创建 GORM 连接并设置连接池参数。
func NewGORMMySQL(cfg MySQLConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn, err := BuildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	if gormCfg == nil {
		gormCfg = &gorm.Config{}
	}

	gormDB, err := gorm.Open(mysqlDriver.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open gorm mysql: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetConnMaxLifetime(60 * time.Minute)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return gormDB, nil
}

// validateMySQLConfig 校验配置字段是否完整。
func validateMySQLConfig(cfg MySQLConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("mysql host is required")
	}
	if cfg.Username == "" {
		return fmt.Errorf("mysql username is required")
	}
	if cfg.Database == "" {
		return fmt.Errorf("mysql database is required")
	}
	return nil
}
