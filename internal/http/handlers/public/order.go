package public

import (
	"strings"

	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListOrders 用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)

	orders, total, err := h.CheckoutService.ListOrders(c.Request.Context(), uid, page, pageSize, strings.TrimSpace(c.Query("keyword")))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: handlershared.TotalPages(total, pageSize),
	})
}

// GetOrder 按订单号获取用户订单
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	order, err := h.CheckoutService.GetOrder(c.Request.Context(), uid, c.Param("order_no"))
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, order)
}
