package worker

import (
	"context"
	"fmt"

	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/provider"
	"github.com/storefront-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartClear, c.handleCartClear)
}

// handleCartClear 重试清空已下单用户的购物车；返回错误交给 asynq 按 MaxRetry 重试
func (c *Consumer) handleCartClear(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_cart_clear_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCartClearPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_cart_clear_invalid_payload", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if c.CheckoutService == nil {
		return fmt.Errorf("checkout service not initialized: %w", asynq.SkipRetry)
	}
	if err := c.CheckoutService.ClearCartForOrder(ctx, payload); err != nil {
		logger.Warnw("worker_cart_clear_failed",
			"user_id", payload.UserID,
			"order_no", payload.OrderNo,
			"error", err,
		)
		return err
	}
	return nil
}
