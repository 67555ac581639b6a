package repository

import (
	"context"
	"errors"
	"time"

	"github.com/storefront-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
//
// 所有写操作都是单条语句的原子更新（upsert / 条件更新 / 删除），
// 并返回影响行数，由上层区分“已更新”和“未命中”。
type CartRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error)
	UpsertMerge(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	AdjustQuantity(ctx context.Context, userID, productID uint, delta, floor int) (int64, *models.CartItem, error)
	DeleteByUserAndProduct(ctx context.Context, userID, productID uint) (int64, error)
	ClearByUser(ctx context.Context, userID uint) (int64, error)
	ClearSnapshot(ctx context.Context, userID uint, lines []CartSnapshotLine) (int64, error)
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// ListByUser 获取用户购物车项
func (r *GormCartRepository) ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").Order("id desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertMerge 插入购物车项；(user_id, product_id) 已存在时数量累加
func (r *GormCartRepository) UpsertMerge(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item == nil {
		return nil, errors.New("cart item is nil")
	}
	var stored *models.CartItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := *item
		row.ID = 0
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": row.UpdatedAt,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		// 冲突更新时 sqlite 返回的自增 ID 不可靠，按唯一键回读
		current, err := findCartItem(tx, item.UserID, item.ProductID)
		if err != nil {
			return err
		}
		if current == nil {
			return gorm.ErrRecordNotFound
		}
		stored = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// AdjustQuantity 条件更新数量：仅当 quantity + delta >= floor 时生效。
// 返回影响行数与更新后的当前行（行不存在时为 nil）。
func (r *GormCartRepository) AdjustQuantity(ctx context.Context, userID, productID uint, delta, floor int) (int64, *models.CartItem, error) {
	var affected int64
	var current *models.CartItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ? AND quantity + ? >= ?", userID, productID, delta, floor).
			Updates(map[string]interface{}{
				"quantity":   gorm.Expr("quantity + ?", delta),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		item, err := findCartItem(tx, userID, productID)
		if err != nil {
			return err
		}
		current = item
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return affected, current, nil
}

// DeleteByUserAndProduct 删除购物车项，返回影响行数
func (r *GormCartRepository) DeleteByUserAndProduct(ctx context.Context, userID, productID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// ClearByUser 清空购物车，返回删除行数
func (r *GormCartRepository) ClearByUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// ClearSnapshot 删除下单快照中的行；快照之后被修改或新加入的行保留
func (r *GormCartRepository) ClearSnapshot(ctx context.Context, userID uint, lines []CartSnapshotLine) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			result := tx.
				Where("user_id = ? AND product_id = ? AND updated_at <= ?", userID, line.ProductID, line.UpdatedAt).
				Delete(&models.CartItem{})
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// findCartItem 按唯一键读取，不存在返回 nil
func findCartItem(db *gorm.DB, userID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	result := db.Where("user_id = ? AND product_id = ?", userID, productID).Limit(1).Find(&item)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &item, nil
}
