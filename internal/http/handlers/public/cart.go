package public

import (
	"strconv"
	"strings"

	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	ProductID uint         `json:"product_id" binding:"required"`
	Title     string       `json:"title"`
	Price     models.Money `json:"price"`
	Image     string       `json:"image"`
	Quantity  *int         `json:"quantity"`
}

// ChangeQuantityRequest 数量调整请求，delta 只能为 1 或 -1
type ChangeQuantityRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

// CartMutationResponse 写操作响应：引擎返回的行与对齐后的购物车视图
//
// Item 在删除时为空；读取购物车失败时 Cart 为空，写操作本身仍算成功。
type CartMutationResponse struct {
	Item *models.CartItem  `json:"item"`
	Cart *service.CartView `json:"cart,omitempty"`
}

// GetCart 获取购物车及合计
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	items, err := h.CartService.List(c.Request.Context(), uid)
	if err != nil {
		respondCartError(c, err, "error.cart_fetch_failed")
		return
	}
	response.Success(c, service.BuildCartView(items))
}

// AddCartItem 加入购物车（同一商品数量累加）
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	item, err := h.CartService.Add(c.Request.Context(), service.AddCartItemInput{
		UserID:    uid,
		ProductID: req.ProductID,
		Title:     req.Title,
		Price:     req.Price,
		Image:     req.Image,
		Quantity:  quantity,
	})
	if err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	h.respondCartMutation(c, uid, item, req.ProductID)
}

// ChangeCartItemQuantity 数量加一或减一
func (h *Handler) ChangeCartItemQuantity(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	productID, ok := parseProductIDParam(c)
	if !ok {
		return
	}
	var req ChangeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	item, err := h.CartService.ChangeQuantity(c.Request.Context(), uid, productID, *req.Delta)
	if err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	h.respondCartMutation(c, uid, item, productID)
}

// RemoveCartItem 删除购物车项
func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	productID, ok := parseProductIDParam(c)
	if !ok {
		return
	}
	if err := h.CartService.Remove(c.Request.Context(), uid, productID); err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	h.respondCartMutation(c, uid, nil, productID)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.CartService.Clear(c.Request.Context(), uid); err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	response.Success(c, nil)
}

// respondCartMutation 以引擎返回的结果为准对齐购物车视图
//
// 列表读取与写操作不在同一事务，期间并发写入的行以本次返回值覆盖；
// item 为空表示该行已删除。
func (h *Handler) respondCartMutation(c *gin.Context, uid uint, item *models.CartItem, productID uint) {
	resp := CartMutationResponse{Item: item}
	items, err := h.CartService.List(c.Request.Context(), uid)
	if err != nil {
		logger.Warnw("cart_view_reload_failed", "user_id", uid, "product_id", productID, "error", err)
		response.Success(c, resp)
		return
	}
	view := service.BuildCartView(items)
	if item != nil {
		view = view.Reconcile(*item)
	} else {
		view = view.Without(productID)
	}
	resp.Cart = &view
	response.Success(c, resp)
}

func parseProductIDParam(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("product_id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.product_id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}
