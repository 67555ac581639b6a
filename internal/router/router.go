package router

import (
	"fmt"
	"strings"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/config"
	publichandlers "github.com/storefront-next/internal/http/handlers/public"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sf"
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
	}
	idempotent := IdempotencyMiddleware(c.IdempotencyStore, c.IdempotencyTTL())

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey))
		{
			user.GET("/cart", publicHandler.GetCart)
			user.POST("/cart/items", idempotent, publicHandler.AddCartItem)
			user.PATCH("/cart/items/:product_id", idempotent, publicHandler.ChangeCartItemQuantity)
			user.DELETE("/cart/items/:product_id", publicHandler.RemoveCartItem)
			user.DELETE("/cart", publicHandler.ClearCart)
			user.POST("/checkout", RateLimitMiddleware(cache.Client(), checkoutRule, KeyByUser), idempotent, publicHandler.Checkout)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:order_no", publicHandler.GetOrder)
		}
	}

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
