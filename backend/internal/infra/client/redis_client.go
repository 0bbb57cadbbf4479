/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 16:34:40
 * @FilePath: \paper-portal\backend\internal\infra\client\redis_client.go
 * @LastEditTime: 2025-11-01 17:03:12
 */
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"paper-portal/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	envRedisEndpoint  = "REDIS_ENDPOINT"
	envRedisPassword  = "REDIS_PASSWORD"
	envRedisDB        = "REDIS_DB"
	envRedisKeyPrefix = "REDIS_KEY_PREFIX"
)

const (
	defaultRedisPort      = 6379
	defaultRedisTimeout   = 5 * time.Second
	defaultRedisKeyPrefix = "paper-portal"
)

// ErrRedisNotConfigured 表示未设置 REDIS_ENDPOINT，调用方可以据此回退到内存实现。
var ErrRedisNotConfigured = errors.New(envRedisEndpoint + " not set")

// RedisOptions 描述连接 Redis 所需的配置，KeyPrefix 用于隔离本服务写入的键。
type RedisOptions struct {
	Host      string
	Port      int
	Password  string
	DB        int
	Timeout   time.Duration
	KeyPrefix string
}

// Addr 返回 host:port 形式的地址。
func (o RedisOptions) Addr() string {
	port := o.Port
	if port == 0 {
		port = defaultRedisPort
	}
	return net.JoinHostPort(o.Host, strconv.Itoa(port))
}

// NewDefaultRedisOptions 从环境变量读取 Redis 连接信息，Redis 在本服务中只承担点击限流。
func NewDefaultRedisOptions() (RedisOptions, error) {
	config.LoadEnvFiles()

	endpoint := strings.TrimSpace(os.Getenv(envRedisEndpoint))
	if endpoint == "" {
		return RedisOptions{}, ErrRedisNotConfigured
	}
	host, port, err := splitEndpoint(endpoint, defaultRedisPort)
	if err != nil {
		return RedisOptions{}, fmt.Errorf("invalid redis endpoint: %w", err)
	}

	opts := RedisOptions{
		Host:      host,
		Port:      port,
		Password:  os.Getenv(envRedisPassword),
		Timeout:   defaultRedisTimeout,
		KeyPrefix: defaultRedisKeyPrefix,
	}
	if rawDB := strings.TrimSpace(os.Getenv(envRedisDB)); rawDB != "" {
		db, err := strconv.Atoi(rawDB)
		if err != nil || db < 0 {
			return RedisOptions{}, fmt.Errorf("invalid redis db %q", rawDB)
		}
		opts.DB = db
	}
	if prefix := strings.TrimSpace(os.Getenv(envRedisKeyPrefix)); prefix != "" {
		opts.KeyPrefix = prefix
	}
	return opts, nil
}

// NewRedisClient 创建 redis.Client 并在超时内 PING 一次，失败时关闭连接。
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("redis host is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRedisTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// splitEndpoint 解析 host[:port]，缺省端口时使用 defaultPort。
func splitEndpoint(endpoint string, defaultPort int) (string, int, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", 0, fmt.Errorf("endpoint is empty")
	}
	if !strings.Contains(endpoint, ":") {
		return endpoint, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
