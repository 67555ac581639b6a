package constants

// 订单状态常量
const (
	OrderStatusPlaced = "placed"
)

// 支付方式常量
const (
	PaymentMethodCard   = "card"
	PaymentMethodPaypal = "paypal"
)

// 卡组织常量（仅保存标签与后四位）
const (
	CardBrandVisa       = "visa"
	CardBrandMastercard = "mastercard"
	CardBrandAmex       = "amex"
	CardBrandDiscover   = "discover"
	CardBrandUnknown    = "card"
)

// 购物车数量常量
const (
	CartQuantityFloor = 1
)

// 队列常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskCartClear = "cart:clear"
)
