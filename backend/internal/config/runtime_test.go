package config

import (
	"path/filepath"
	"testing"
	"time"

	"paper-portal/backend/internal/domain/user"
)

func TestLoadRuntimeFlagsDefaults(t *testing.T) {
	t.Setenv("APP_MODE", "")
	t.Setenv("LOCAL_SQLITE_PATH", "")
	t.Setenv("LOCAL_USER_ID", "")
	t.Setenv("LOCAL_USER_ROLE", "")
	t.Setenv("LOCAL_USER_COLLEGE_ID", "")
	t.Setenv("LOCAL_SEED_ON_INIT", "")

	flags := LoadRuntimeFlags()
	if flags.Mode != ModeOnline {
		t.Fatalf("expected online mode by default, got %s", flags.Mode)
	}
	if flags.Local.Role != user.RoleUniversityAdmin || flags.Local.UserID != 1 || !flags.Local.SeedOnInit {
		t.Fatalf("unexpected local defaults: %+v", flags.Local)
	}
	if !filepath.IsAbs(flags.Local.DBPath) {
		t.Fatalf("expected absolute default db path, got %s", flags.Local.DBPath)
	}
}

func TestLoadRuntimeFlagsLocalPrincipal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "portal.db")
	t.Setenv("APP_MODE", "LOCAL")
	t.Setenv("LOCAL_SQLITE_PATH", dbPath)
	t.Setenv("LOCAL_USER_ID", "5")
	t.Setenv("LOCAL_USER_ROLE", "college_admin")
	t.Setenv("LOCAL_USER_COLLEGE_ID", "2")
	t.Setenv("LOCAL_SEED_ON_INIT", "false")

	flags := LoadRuntimeFlags()
	if flags.Mode != ModeLocal {
		t.Fatalf("expected local mode, got %s", flags.Mode)
	}
	if flags.Local.DBPath != dbPath || flags.Local.SeedOnInit {
		t.Fatalf("unexpected local config: %+v", flags.Local)
	}
	want := user.Principal{UserID: 5, Role: user.RoleCollegeAdmin, CollegeID: 2}
	if got := flags.Local.Principal(); got != want {
		t.Fatalf("principal = %+v, want %+v", got, want)
	}
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CLICK_DEDUP_WINDOW", "90")
	t.Setenv("CLICK_RATE_WINDOW", "2m")
	t.Setenv("PAGE_SIZE_MAX", "-3")
	t.Setenv("JWT_TOKEN_TTL", "")
	t.Setenv("CLICK_HISTORY_LIMIT", "")
	t.Setenv("PAGE_SIZE_DEFAULT", "")
	t.Setenv("CLICK_RATE_LIMIT", "")

	cfg := LoadServerConfig()
	if cfg.Port != "9090" || cfg.JWTSecret != defaultJWTSecret {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
	if cfg.DedupWindow != 90*time.Second {
		t.Fatalf("expected plain seconds to parse, got %s", cfg.DedupWindow)
	}
	if cfg.ClickRateWindow != 2*time.Minute {
		t.Fatalf("unexpected rate window %s", cfg.ClickRateWindow)
	}
	if cfg.MaxPageSize != defaultMaxPageSize {
		t.Fatalf("expected invalid page size to fall back, got %d", cfg.MaxPageSize)
	}
}

func TestLoadServerConfigHistoryLimit(t *testing.T) {
	t.Setenv("CLICK_HISTORY_LIMIT", "")
	if got := LoadServerConfig().HistoryLimit; got != 0 {
		t.Fatalf("expected unbounded history by default, got %d", got)
	}
	t.Setenv("CLICK_HISTORY_LIMIT", "0")
	if got := LoadServerConfig().HistoryLimit; got != 0 {
		t.Fatalf("expected explicit 0 to stay unbounded, got %d", got)
	}
	t.Setenv("CLICK_HISTORY_LIMIT", "50")
	if got := LoadServerConfig().HistoryLimit; got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	t.Setenv("CLICK_HISTORY_LIMIT", "-1")
	if got := LoadServerConfig().HistoryLimit; got != 0 {
		t.Fatalf("expected negative limit to fall back, got %d", got)
	}
}
