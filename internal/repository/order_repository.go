package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/storefront-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口（订单创建后只读）
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetByOrderNoAndUser(ctx context.Context, orderNo string, userID uint) (*models.Order, error)
	ListByUser(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error)
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create 在同一事务中创建订单与订单项
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if order == nil {
		return errors.New("order is nil")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.OrderItem, len(items))
		copy(rows, items)
		for i := range rows {
			rows[i].ID = 0
			rows[i].OrderID = order.ID
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		order.Items = rows
		return nil
	})
}

// GetByOrderNoAndUser 根据订单号获取用户订单，不存在返回 nil
func (r *GormOrderRepository) GetByOrderNoAndUser(ctx context.Context, orderNo string, userID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("order_no = ? AND user_id = ?", orderNo, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser 获取用户订单列表
func (r *GormOrderRepository) ListByUser(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error) {
	keyword := strings.TrimSpace(filter.Keyword)
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", filter.UserID)
		if keyword != "" {
			condition, argCount := buildLikeCondition(r.db, []string{"order_no", "shipping_name"})
			query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := base().
		Scopes(paginate(filter.Page, filter.PageSize)).
		Preload("Items").
		Order("id desc").
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
