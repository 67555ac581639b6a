package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storefront-next/internal/config"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

var (
	redisClient *redis.Client
	redisPrefix = "sf"
)

// InitRedis 初始化 Redis 客户端；未启用或连接失败时缓存、限流与幂等均降级为关闭
func InitRedis(cfg *config.RedisConfig) error {
	_ = Close()
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if prefix := strings.TrimSpace(cfg.Prefix); prefix != "" {
		redisPrefix = prefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr(cfg),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s: %w", redisAddr(cfg), err)
	}
	redisClient = client
	return nil
}

func redisAddr(cfg *config.RedisConfig) string {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Close 关闭客户端
func Close() error {
	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	return err
}

// Enabled 判断缓存是否可用
func Enabled() bool {
	return redisClient != nil
}

// Client 获取 Redis 客户端，未启用时返回 nil
func Client() *redis.Client {
	return redisClient
}

// GetJSON 读取 JSON 缓存，未启用或未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	raw, err := redisClient.Get(ctx, buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cache %s: %w", key, err)
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return redisClient.Set(ctx, buildKey(key), payload, ttl).Err()
}

func buildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return redisPrefix
	}
	return redisPrefix + ":" + trimmed
}
