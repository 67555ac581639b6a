package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/queue"
	"github.com/storefront-next/internal/repository"
)

// CheckoutWarningCartNotCleared 订单已创建但购物车未清空
const CheckoutWarningCartNotCleared = "cart_not_cleared"

// 订单创建后不再变更，详情可直接缓存
const orderDetailCacheTTL = 10 * time.Minute

// CartClearEnqueuer 购物车清空重试任务投递
type CartClearEnqueuer interface {
	EnqueueCartClear(payload queue.CartClearPayload, delay time.Duration, maxRetry int) error
}

// CheckoutOptions 结算服务参数
type CheckoutOptions struct {
	ClearRetryDelay       time.Duration
	ClearRetryMaxAttempts int
	Now                   func() time.Time
}

// CheckoutInput 结算输入
type CheckoutInput struct {
	UserID   uint
	Shipping CheckoutShipping
	Payment  CheckoutPayment
}

// CheckoutResult 结算结果
type CheckoutResult struct {
	Order    *models.Order `json:"order"`
	Payment  MaskedPayment `json:"payment"`
	Warnings []string      `json:"warnings,omitempty"`
}

// CheckoutService 结算服务
type CheckoutService struct {
	cart       *CartService
	orderRepo  repository.OrderRepository
	validator  *CheckoutValidator
	clearRetry CartClearEnqueuer
	opts       CheckoutOptions
}

// NewCheckoutService 创建结算服务，clearRetry 可为空
func NewCheckoutService(cart *CartService, orderRepo repository.OrderRepository, clearRetry CartClearEnqueuer, opts CheckoutOptions) *CheckoutService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CheckoutService{
		cart:       cart,
		orderRepo:  orderRepo,
		validator:  NewCheckoutValidator(opts.Now),
		clearRetry: clearRetry,
		opts:       opts,
	}
}

// Checkout 下单：读取购物车快照、校验表单、创建订单，最后尽力清空购物车
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	items, err := s.cart.List(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	shipping, payment, err := s.validator.Validate(input.Shipping, input.Payment)
	if err != nil {
		return nil, err
	}
	masked := maskPayment(payment.Method, payment.CardNumber)

	order, orderItems := buildOrderSnapshot(input.UserID, items, s.opts.Now())
	order.ShippingName = shipping.FullName
	order.ShippingAddress = shipping.Address
	order.PaymentMethod = masked.Method
	order.CardBrand = masked.CardBrand
	order.CardLast4 = masked.CardLast4

	if err := s.orderRepo.Create(ctx, order, orderItems); err != nil {
		logger.Errorw("checkout_create_order_failed", "user_id", input.UserID, "error", err)
		return nil, wrapPersistence("create order", err)
	}
	logger.Infow("checkout_order_placed",
		"user_id", input.UserID,
		"order_no", order.OrderNo,
		"total_amount", order.TotalAmount.String(),
		"item_count", order.ItemCount,
	)

	result := &CheckoutResult{Order: order, Payment: masked}
	if err := s.cart.Clear(ctx, input.UserID); err != nil {
		logger.Warnw("checkout_cart_clear_failed",
			"user_id", input.UserID,
			"order_no", order.OrderNo,
			"error", err,
		)
		result.Warnings = append(result.Warnings, CheckoutWarningCartNotCleared)
		s.scheduleCartClear(input.UserID, order.OrderNo, items)
	}
	return result, nil
}

// GetOrder 获取用户订单
func (s *CheckoutService) GetOrder(ctx context.Context, userID uint, orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	verr := &ValidationError{}
	if userID == 0 {
		verr.Add("user_id", "required")
	}
	if orderNo == "" {
		verr.Add("order_no", "required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	cacheKey := orderDetailCacheKey(userID, orderNo)
	var cached models.Order
	if hit, err := cache.GetJSON(ctx, cacheKey, &cached); err != nil {
		logger.Warnw("order_detail_cache_get_failed", "order_no", orderNo, "error", err)
	} else if hit {
		return &cached, nil
	}

	order, err := s.orderRepo.GetByOrderNoAndUser(ctx, orderNo, userID)
	if err != nil {
		return nil, wrapPersistence("get order", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := cache.SetJSON(ctx, cacheKey, order, orderDetailCacheTTL); err != nil {
		logger.Warnw("order_detail_cache_set_failed", "order_no", orderNo, "error", err)
	}
	return order, nil
}

func orderDetailCacheKey(userID uint, orderNo string) string {
	return fmt.Sprintf("order:detail:%d:%s", userID, orderNo)
}

// ListOrders 分页获取用户订单
func (s *CheckoutService) ListOrders(ctx context.Context, userID uint, page, pageSize int, keyword string) ([]models.Order, int64, error) {
	if userID == 0 {
		return nil, 0, newValidationError("user_id", "required")
	}
	orders, total, err := s.orderRepo.ListByUser(ctx, repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Keyword:  keyword,
	})
	if err != nil {
		return nil, 0, wrapPersistence("list orders", err)
	}
	return orders, total, nil
}

// ClearCartForOrder 异步任务回调：按下单快照重试清空购物车
//
// 下单后新加入或再次修改过的行不会被删除。
func (s *CheckoutService) ClearCartForOrder(ctx context.Context, payload queue.CartClearPayload) error {
	lines := make([]repository.CartSnapshotLine, 0, len(payload.Lines))
	for _, line := range payload.Lines {
		lines = append(lines, repository.CartSnapshotLine{ProductID: line.ProductID, UpdatedAt: line.UpdatedAt})
	}
	removed, err := s.cart.ClearSnapshot(ctx, payload.UserID, lines)
	if err != nil {
		return err
	}
	logger.Infow("checkout_cart_clear_retried",
		"user_id", payload.UserID,
		"order_no", payload.OrderNo,
		"removed", removed,
		"snapshot_lines", len(lines),
	)
	return nil
}

func (s *CheckoutService) scheduleCartClear(userID uint, orderNo string, items []models.CartItem) {
	if s.clearRetry == nil {
		return
	}
	lines := make([]queue.CartClearLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, queue.CartClearLine{ProductID: item.ProductID, UpdatedAt: item.UpdatedAt})
	}
	err := s.clearRetry.EnqueueCartClear(queue.CartClearPayload{
		UserID:  userID,
		OrderNo: orderNo,
		Lines:   lines,
	}, s.opts.ClearRetryDelay, s.opts.ClearRetryMaxAttempts)
	if err != nil {
		logger.Warnw("checkout_enqueue_cart_clear_failed",
			"user_id", userID,
			"order_no", orderNo,
			"error", err,
		)
	}
}

// buildOrderSnapshot 按购物车快照生成订单，总额只取自快照
func buildOrderSnapshot(userID uint, items []models.CartItem, now time.Time) (*models.Order, []models.OrderItem) {
	orderItems := make([]models.OrderItem, 0, len(items))
	count := 0
	for _, item := range items {
		count += item.Quantity
		orderItems = append(orderItems, models.OrderItem{
			ProductID:  item.ProductID,
			Title:      item.Title,
			Image:      item.Image,
			UnitPrice:  item.Price,
			Quantity:   item.Quantity,
			TotalPrice: models.NewMoneyFromDecimal(item.Price.Times(item.Quantity)),
			CreatedAt:  now,
		})
	}
	order := &models.Order{
		OrderNo:     generateOrderNo(now),
		UserID:      userID,
		Status:      constants.OrderStatusPlaced,
		TotalAmount: cartTotal(items),
		ItemCount:   count,
		CreatedAt:   now,
	}
	return order, orderItems
}

func generateOrderNo(now time.Time) string {
	return fmt.Sprintf("SF%s%s", now.Format("20060102150405"), randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
