package service

import (
	"context"
	"strings"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"
)

// AddCartItemInput 加入购物车输入
type AddCartItemInput struct {
	UserID    uint
	ProductID uint
	Title     string
	Price     models.Money
	Image     string
	Quantity  int
}

// CartService 购物车服务
//
// 数量变更全部下推为单条原子 SQL，服务层不做读-改-写，
// 同一行的并发请求由数据库串行化。
type CartService struct {
	cartRepo repository.CartRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository) *CartService {
	return &CartService{cartRepo: cartRepo}
}

// Add 加入购物车，同一商品已存在时数量累加
func (s *CartService) Add(ctx context.Context, input AddCartItemInput) (*models.CartItem, error) {
	verr := &ValidationError{}
	if input.UserID == 0 {
		verr.Add("user_id", "required")
	}
	if input.ProductID == 0 {
		verr.Add("product_id", "required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		verr.Add("title", "required")
	}
	if input.Quantity < constants.CartQuantityFloor {
		verr.Add("quantity", "must be at least 1")
	}
	if input.Price.IsNegative() {
		verr.Add("price", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now()
	item, err := s.cartRepo.UpsertMerge(ctx, &models.CartItem{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Title:     title,
		Price:     models.NewMoneyFromDecimal(input.Price.Decimal),
		Image:     strings.TrimSpace(input.Image),
		Quantity:  input.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		logger.Errorw("cart_add_failed", "user_id", input.UserID, "product_id", input.ProductID, "error", err)
		return nil, wrapPersistence("cart add", err)
	}
	return item, nil
}

// ChangeQuantity 按 delta（仅 +1 / -1）调整数量
func (s *CartService) ChangeQuantity(ctx context.Context, userID, productID uint, delta int) (*models.CartItem, error) {
	switch delta {
	case 1:
		return s.Increment(ctx, userID, productID)
	case -1:
		return s.Decrement(ctx, userID, productID)
	default:
		return nil, newValidationError("delta", "must be 1 or -1")
	}
}

// Increment 数量加一
func (s *CartService) Increment(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	return s.adjust(ctx, userID, productID, 1)
}

// Decrement 数量减一，不允许低于 1；低于下限时返回 ErrInvalidQuantity 且状态不变
func (s *CartService) Decrement(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	return s.adjust(ctx, userID, productID, -1)
}

func (s *CartService) adjust(ctx context.Context, userID, productID uint, delta int) (*models.CartItem, error) {
	if err := validateCartKey(userID, productID); err != nil {
		return nil, err
	}
	affected, item, err := s.cartRepo.AdjustQuantity(ctx, userID, productID, delta, constants.CartQuantityFloor)
	if err != nil {
		logger.Errorw("cart_adjust_quantity_failed",
			"user_id", userID,
			"product_id", productID,
			"delta", delta,
			"error", err,
		)
		return nil, wrapPersistence("cart adjust quantity", err)
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if affected == 0 {
		return nil, ErrInvalidQuantity
	}
	return item, nil
}

// Remove 删除购物车项
func (s *CartService) Remove(ctx context.Context, userID, productID uint) error {
	if err := validateCartKey(userID, productID); err != nil {
		return err
	}
	affected, err := s.cartRepo.DeleteByUserAndProduct(ctx, userID, productID)
	if err != nil {
		logger.Errorw("cart_remove_failed", "user_id", userID, "product_id", productID, "error", err)
		return wrapPersistence("cart remove", err)
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// List 获取用户购物车
func (s *CartService) List(ctx context.Context, userID uint) ([]models.CartItem, error) {
	if userID == 0 {
		return nil, newValidationError("user_id", "required")
	}
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Errorw("cart_list_failed", "user_id", userID, "error", err)
		return nil, wrapPersistence("cart list", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// Clear 清空购物车，空购物车同样视为成功
func (s *CartService) Clear(ctx context.Context, userID uint) error {
	if userID == 0 {
		return newValidationError("user_id", "required")
	}
	if _, err := s.cartRepo.ClearByUser(ctx, userID); err != nil {
		logger.Errorw("cart_clear_failed", "user_id", userID, "error", err)
		return wrapPersistence("cart clear", err)
	}
	return nil
}

// ClearSnapshot 只删除快照中的行，快照之后被修改或新加入的行保留
func (s *CartService) ClearSnapshot(ctx context.Context, userID uint, lines []repository.CartSnapshotLine) (int64, error) {
	if userID == 0 {
		return 0, newValidationError("user_id", "required")
	}
	if len(lines) == 0 {
		return 0, nil
	}
	removed, err := s.cartRepo.ClearSnapshot(ctx, userID, lines)
	if err != nil {
		logger.Errorw("cart_clear_snapshot_failed", "user_id", userID, "error", err)
		return 0, wrapPersistence("cart clear snapshot", err)
	}
	return removed, nil
}

func validateCartKey(userID, productID uint) error {
	verr := &ValidationError{}
	if userID == 0 {
		verr.Add("user_id", "required")
	}
	if productID == 0 {
		verr.Add("product_id", "required")
	}
	return verr.OrNil()
}
