package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"paper-portal/backend/internal/domain/user"
)

const (
	// ModeLocal 表示当前运行在离线/本地模式，使用 SQLite。
	ModeLocal = "local"
	// ModeOnline 表示运行在默认的在线模式，使用 MySQL。
	ModeOnline = "online"

	defaultLocalUserID    = 1
	defaultLocalCollegeID = 0
	defaultLocalDBRelPath = "data/paper-portal-local.db"

	defaultPort            = "8080"
	defaultDedupWindow     = 60 * time.Second
	defaultPageSize        = 20
	defaultMaxPageSize     = 100
	defaultHistoryLimit    = 0
	defaultClickRateLimit  = 120
	defaultClickRateWindow = time.Minute
	defaultJWTSecret       = "paper-portal-dev-secret"
	defaultTokenTTL        = 12 * time.Hour
)

// RuntimeFlags 汇总运行期所需的模式与本地环境配置。
type RuntimeFlags struct {
	Mode  string
	Local LocalRuntime
}

// LocalRuntime 描述本地模式下需要的额外配置，UserID/Role/CollegeID 是离线鉴权注入的固定身份。
type LocalRuntime struct {
	DBPath     string
	UserID     uint
	Role       user.Role
	CollegeID  uint
	SeedOnInit bool
}

// LoadRuntimeFlags 读取环境变量，推导当前运行模式及本地模式参数。
func LoadRuntimeFlags() RuntimeFlags {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if mode == "" {
		mode = ModeOnline
	}

	local := LocalRuntime{
		DBPath:     defaultLocalDBPath(),
		UserID:     defaultLocalUserID,
		Role:       user.RoleUniversityAdmin,
		CollegeID:  defaultLocalCollegeID,
		SeedOnInit: true,
	}

	if rawPath := strings.TrimSpace(os.Getenv("LOCAL_SQLITE_PATH")); rawPath != "" {
		local.DBPath = normalisePath(rawPath)
	}
	if parsed, ok := uintEnv("LOCAL_USER_ID"); ok && parsed > 0 {
		local.UserID = parsed
	}
	if rawRole := strings.TrimSpace(os.Getenv("LOCAL_USER_ROLE")); rawRole != "" {
		if role, err := user.ParseRole(rawRole); err == nil {
			local.Role = role
		}
	}
	if parsed, ok := uintEnv("LOCAL_USER_COLLEGE_ID"); ok {
		local.CollegeID = parsed
	}
	if rawSeed := strings.TrimSpace(os.Getenv("LOCAL_SEED_ON_INIT")); rawSeed != "" {
		if parsed, err := strconv.ParseBool(rawSeed); err == nil {
			local.SeedOnInit = parsed
		}
	}

	return RuntimeFlags{
		Mode:  mode,
		Local: local,
	}
}

// Principal 返回本地模式注入的固定身份。
func (l LocalRuntime) Principal() user.Principal {
	return user.Principal{
		UserID:    l.UserID,
		Role:      l.Role,
		CollegeID: l.CollegeID,
	}
}

// ServerConfig 汇总 HTTP 服务与业务参数。
type ServerConfig struct {
	Port            string
	JWTSecret       string
	TokenTTL        time.Duration
	DedupWindow     time.Duration
	HistoryLimit    int
	DefaultPageSize int
	MaxPageSize     int
	ClickRateLimit  int
	ClickRateWindow time.Duration
}

// LoadServerConfig 从环境变量读取服务配置，非法值回退为默认值。
func LoadServerConfig() ServerConfig {
	cfg := ServerConfig{
		Port:            defaultPort,
		JWTSecret:       defaultJWTSecret,
		TokenTTL:        durationEnv("JWT_TOKEN_TTL", defaultTokenTTL),
		DedupWindow:     durationEnv("CLICK_DEDUP_WINDOW", defaultDedupWindow),
		HistoryLimit:    nonNegativeIntEnv("CLICK_HISTORY_LIMIT", defaultHistoryLimit),
		DefaultPageSize: intEnv("PAGE_SIZE_DEFAULT", defaultPageSize),
		MaxPageSize:     intEnv("PAGE_SIZE_MAX", defaultMaxPageSize),
		ClickRateLimit:  intEnv("CLICK_RATE_LIMIT", defaultClickRateLimit),
		ClickRateWindow: durationEnv("CLICK_RATE_WINDOW", defaultClickRateWindow),
	}
	if port := strings.TrimSpace(os.Getenv("SERVER_PORT")); port != "" {
		cfg.Port = port
	}
	if secret := strings.TrimSpace(os.Getenv("JWT_SECRET")); secret != "" {
		cfg.JWTSecret = secret
	}
	return cfg
}

// defaultLocalDBPath 计算默认的本地数据库路径并返回绝对路径。
func defaultLocalDBPath() string {
	return normalisePath(defaultLocalDBRelPath)
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}

func uintEnv(key string) (uint, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(parsed), true
}

// intEnv 读取正整数，0 与负数视为无效。
func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// nonNegativeIntEnv 与 intEnv 相同，但允许 0。
func nonNegativeIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

// durationEnv 支持 "90s"、"2m" 等 time.ParseDuration 格式，也接受纯数字秒数。
func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
