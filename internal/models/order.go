package models

import "time"

// Order 订单表（结算时的购物车快照，创建后不可变）
type Order struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo         string    `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	UserID          uint      `gorm:"index;not null" json:"user_id"`                             // 用户ID
	Status          string    `gorm:"index;not null" json:"status"`                              // 订单状态
	TotalAmount     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 订单总额（快照时计算）
	ItemCount       int       `gorm:"not null;default:0" json:"item_count"`                      // 商品件数
	ShippingName    string    `gorm:"type:varchar(120);not null" json:"shipping_name"`           // 收件人
	ShippingAddress string    `gorm:"type:varchar(500);not null" json:"shipping_address"`        // 收货地址
	PaymentMethod   string    `gorm:"type:varchar(20);not null" json:"payment_method"`           // 支付方式
	CardBrand       string    `gorm:"type:varchar(20)" json:"card_brand,omitempty"`              // 卡组织
	CardLast4       string    `gorm:"type:varchar(4)" json:"card_last4,omitempty"`               // 卡号后四位
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                   // 创建时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
