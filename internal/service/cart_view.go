package service

import (
	"github.com/storefront-next/internal/models"

	"github.com/shopspring/decimal"
)

// CartLine 购物车视图中的单行
type CartLine struct {
	ProductID uint         `json:"product_id"`
	Title     string       `json:"title"`
	Price     models.Money `json:"price"`
	Image     string       `json:"image"`
	Quantity  int          `json:"quantity"`
	Subtotal  models.Money `json:"subtotal"`
}

// CartView 购物车派生视图，只由引擎返回的数据计算，不做缓存
type CartView struct {
	Items       []CartLine   `json:"items"`
	ItemCount   int          `json:"item_count"`
	TotalAmount models.Money `json:"total_amount"`
}

// BuildCartView 根据购物车项计算件数与总额
func BuildCartView(items []models.CartItem) CartView {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, newCartLine(item))
	}
	return summarizeCartLines(lines)
}

// Reconcile 用引擎返回的权威数据替换（或追加）对应行并重算合计
func (v CartView) Reconcile(item models.CartItem) CartView {
	lines := make([]CartLine, 0, len(v.Items)+1)
	replaced := false
	for _, line := range v.Items {
		if line.ProductID == item.ProductID {
			lines = append(lines, newCartLine(item))
			replaced = true
			continue
		}
		lines = append(lines, line)
	}
	if !replaced {
		lines = append(lines, newCartLine(item))
	}
	return summarizeCartLines(lines)
}

// Without 移除指定商品行并重算合计
func (v CartView) Without(productID uint) CartView {
	lines := make([]CartLine, 0, len(v.Items))
	for _, line := range v.Items {
		if line.ProductID == productID {
			continue
		}
		lines = append(lines, line)
	}
	return summarizeCartLines(lines)
}

func newCartLine(item models.CartItem) CartLine {
	return CartLine{
		ProductID: item.ProductID,
		Title:     item.Title,
		Price:     item.Price,
		Image:     item.Image,
		Quantity:  item.Quantity,
		Subtotal:  models.NewMoneyFromDecimal(item.Price.Times(item.Quantity)),
	}
}

// summarizeCartLines 先累加未舍入的小计，最后统一保留 2 位
func summarizeCartLines(lines []CartLine) CartView {
	count := 0
	total := decimal.Zero
	for _, line := range lines {
		count += line.Quantity
		total = total.Add(line.Price.Times(line.Quantity))
	}
	return CartView{
		Items:       lines,
		ItemCount:   count,
		TotalAmount: models.NewMoneyFromDecimal(total),
	}
}

// cartTotal 计算购物车快照总额
func cartTotal(items []models.CartItem) models.Money {
	return BuildCartView(items).TotalAmount
}
