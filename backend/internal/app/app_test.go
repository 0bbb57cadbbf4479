package app

import (
	"context"
	"path/filepath"
	"testing"

	"paper-portal/backend/internal/config"
	"paper-portal/backend/internal/domain/user"
)

func setLocalEnv(t *testing.T) string {
	t.Helper()
	config.SetEnvFileLoadingForTest(false)
	t.Cleanup(func() { config.SetEnvFileLoadingForTest(true) })

	dbPath := filepath.Join(t.TempDir(), "portal.db")
	t.Setenv("LOG_FILE", "off")
	t.Setenv("APP_MODE", config.ModeLocal)
	t.Setenv("LOCAL_SQLITE_PATH", dbPath)
	t.Setenv("LOCAL_SEED_ON_INIT", "true")
	t.Setenv("LOCAL_BOOTSTRAP_DATA_DIR", filepath.Join("..", "..", "data", "bootstrap"))
	t.Setenv("REDIS_ENDPOINT", "")
	return dbPath
}

func TestInitResourcesLocalMode(t *testing.T) {
	setLocalEnv(t)
	ctx := context.Background()

	res, err := InitResources(ctx)
	if err != nil {
		t.Fatalf("init resources: %v", err)
	}
	t.Cleanup(func() { _ = res.Close() })

	if res.Config.Mode != config.ModeLocal {
		t.Fatalf("expected local mode, got %q", res.Config.Mode)
	}
	if res.Redis != nil {
		t.Fatalf("expected redis to stay disabled without REDIS_ENDPOINT")
	}
	if err := res.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	var students int64
	if err := res.DBConn().Model(&user.User{}).Where("role = ?", user.RoleStudent).Count(&students).Error; err != nil {
		t.Fatalf("count students: %v", err)
	}
	if students != 4 {
		t.Fatalf("expected 4 seeded students, got %d", students)
	}
}

func TestInitResourcesRejectsUnknownMode(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("APP_MODE", "hybrid")

	if _, err := InitResources(context.Background()); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestNilResources(t *testing.T) {
	var res *Resources
	if res.DBConn() != nil {
		t.Fatalf("expected nil db for nil resources")
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close nil resources: %v", err)
	}
	if err := res.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error for nil resources")
	}
}
