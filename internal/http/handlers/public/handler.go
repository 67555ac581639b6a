package public

import (
	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 购物车、结算与订单接口处理器，所有接口都要求已登录用户
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.RequireUserID(c)
}
