package router

import (
	"fmt"
	"strings"

	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware Redis 频率限制中间件
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
		if err != nil {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}

		values, ok := result.([]interface{})
		if !ok || len(values) < 2 {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}
		count, ok := toInt64(values[0])
		if !ok {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}
		ttlSeconds, _ := toInt64(values[1])
		if count > int64(rule.MaxRequests) {
			waitSeconds := int(ttlSeconds)
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			if waitSeconds < 1 {
				waitSeconds = 1
			}
			msgKey := strings.TrimSpace(rule.MessageKey)
			if msgKey == "" {
				msgKey = "error.rate_limited"
			}
			msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
			response.Error(c, response.CodeTooManyRequests, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUser 已登录用户按 user_id 限流，否则回退到 IP
func KeyByUser(c *gin.Context) string {
	if value, ok := c.Get(handlershared.ContextUserIDKey); ok {
		if uid, ok := value.(uint); ok && uid > 0 {
			return fmt.Sprintf("user:%d", uid)
		}
	}
	return c.ClientIP()
}

// toInt64 Lua 整数回包为 int64，其余类型视为异常
func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
