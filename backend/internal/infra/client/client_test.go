package client

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"paper-portal/backend/internal/config"

	miniredis "github.com/alicebob/miniredis/v2"
	mysqlcfg "github.com/go-sql-driver/mysql"
)

func TestNewDefaultRedisOptions_FromEnv(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	t.Setenv("REDIS_ENDPOINT", "127.0.0.1:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_KEY_PREFIX", "portal-test")

	opts, err := NewDefaultRedisOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Host != "127.0.0.1" || opts.Port != 6380 {
		t.Fatalf("unexpected host/port: %s:%d", opts.Host, opts.Port)
	}
	if opts.Password != "secret" || opts.DB != 2 || opts.KeyPrefix != "portal-test" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestNewDefaultRedisOptions_NotConfigured(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })
	t.Setenv("REDIS_ENDPOINT", "")

	if _, err := NewDefaultRedisOptions(); !errors.Is(err, ErrRedisNotConfigured) {
		t.Fatalf("expected ErrRedisNotConfigured, got %v", err)
	}
}

func TestNewDefaultRedisOptions_DefaultPort(t *testing.T) {
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })
	t.Setenv("REDIS_ENDPOINT", "10.0.0.2")
	t.Setenv("REDIS_DB", "")
	t.Setenv("REDIS_KEY_PREFIX", "")

	opts, err := NewDefaultRedisOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Port != 6379 || opts.KeyPrefix != "paper-portal" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestNewRedisClientPing(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())

	rdb, err := NewRedisClient(context.Background(), RedisOptions{Host: mr.Host(), Port: port})
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer rdb.Close()

	if err := rdb.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("expected value to reach miniredis, got %q", got)
	}
}

func TestBuildMySQLDSNFromFields(t *testing.T) {
	dsn, err := BuildMySQLDSN(MySQLConfig{
		Host:     "db.internal",
		Port:     3307,
		Username: "portal",
		Password: "p@ss",
		Database: "paper_portal",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	parsed, err := mysqlcfg.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("generated dsn does not parse: %v", err)
	}
	if parsed.Addr != "db.internal:3307" || parsed.User != "portal" || parsed.Passwd != "p@ss" || parsed.DBName != "paper_portal" {
		t.Fatalf("unexpected parsed config: %+v", parsed)
	}
	if !parsed.ParseTime {
		t.Fatalf("expected parseTime to be forced on")
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Fatalf("expected utf8mb4 charset in %q", dsn)
	}
}

func TestBuildMySQLDSNForcesParseTime(t *testing.T) {
	dsn, err := BuildMySQLDSN(MySQLConfig{DSN: "u:p@tcp(localhost:3306)/papers"})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}
	parsed, err := mysqlcfg.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.ParseTime || parsed.DBName != "papers" {
		t.Fatalf("unexpected parsed config: %+v", parsed)
	}

	if _, err := BuildMySQLDSN(MySQLConfig{Username: "u"}); err == nil {
		t.Fatalf("expected missing host to be rejected")
	}
}
