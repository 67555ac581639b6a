package provider

import (
	"time"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/queue"
	"github.com/storefront-next/internal/repository"
	"github.com/storefront-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config           *config.Config
	QueueClient      *queue.Client
	IdempotencyStore cache.IdempotencyStore

	// Repositories
	CartRepo  repository.CartRepository
	OrderRepo repository.OrderRepository

	// Services
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	if store := cache.NewIdempotencyStore(cache.Client()); store != nil {
		c.IdempotencyStore = store
	}

	c.initRepositories(models.DB)
	c.initServices()

	return c
}

// NewContainerWithDB 使用指定数据库构建容器（测试与工具使用，不初始化 Redis 与队列）
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	c := &Container{Config: cfg}
	c.initRepositories(db)
	c.initServices()
	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() {
	c.CartService = service.NewCartService(c.CartRepo)

	// 避免把 nil *queue.Client 装进接口
	var clearRetry service.CartClearEnqueuer
	if c.QueueClient.Enabled() {
		clearRetry = c.QueueClient
	}
	c.CheckoutService = service.NewCheckoutService(c.CartService, c.OrderRepo, clearRetry, service.CheckoutOptions{
		ClearRetryDelay:       time.Duration(c.Config.Checkout.ClearRetryDelaySeconds) * time.Second,
		ClearRetryMaxAttempts: c.Config.Checkout.ClearRetryMaxAttempts,
	})
}

// IdempotencyTTL 幂等记录保留时间
func (c *Container) IdempotencyTTL() time.Duration {
	seconds := c.Config.Cart.IdempotencyTTLSeconds
	if seconds <= 0 {
		seconds = 86400
	}
	return time.Duration(seconds) * time.Second
}
