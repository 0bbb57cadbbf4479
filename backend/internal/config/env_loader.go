/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 17:58:06
 * @FilePath: \paper-portal\backend\internal\config\env_loader.go
 * @LastEditTime: 2025-10-08 17:58:11
 */
package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	envOnce     sync.Once
	envOnceLock sync.Mutex
	skipEnvLoad bool
)

// LoadEnvFiles loads .env.local and then .env exactly once, searching upward from the
// working directory. Values already exported in the process environment win.
func LoadEnvFiles() {
	if skipEnvLoad || os.Getenv("CONFIG_SKIP_ENV_LOAD") == "1" {
		return
	}

	envOnce.Do(func() {
		// godotenv.Load never overrides existing keys, so the first file wins.
		for _, name := range []string{".env.local", ".env"} {
			path, ok := findEnvFile(name)
			if !ok {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				log.Printf("[config] skip environment file %s: %v", path, err)
				continue
			}
			log.Printf("[config] loaded environment file: %s", path)
		}
	})
}

// SetEnvFileLoadingForTest toggles automatic env file loading. Intended for tests only.
func SetEnvFileLoadingForTest(enabled bool) {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	skipEnvLoad = !enabled
	envOnce = sync.Once{}
}

func findEnvFile(name string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
