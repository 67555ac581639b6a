package public

import (
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	Shipping service.CheckoutShipping `json:"shipping"`
	Payment  service.CheckoutPayment  `json:"payment"`
}

// Checkout 使用当前购物车下单
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.CheckoutService.Checkout(c.Request.Context(), service.CheckoutInput{
		UserID:   uid,
		Shipping: req.Shipping,
		Payment:  req.Payment,
	})
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	response.Success(c, result)
}
