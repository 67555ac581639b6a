package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Keyword  string
}

// CartSnapshotLine 下单时购物车中的一行，用于按快照清空
type CartSnapshotLine struct {
	ProductID uint
	UpdatedAt time.Time
}
