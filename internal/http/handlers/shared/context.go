package shared

import (
	"github.com/storefront-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey 鉴权中间件写入已校验用户 ID 的上下文键
const ContextUserIDKey = "user_id"

// RequireUserID 读取已鉴权用户 ID，缺失或非法时直接写出 401 响应。
func RequireUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	uid, ok := value.(uint)
	if !ok || uid == 0 {
		RespondError(c, response.CodeUnauthorized, "error.user_id_invalid", nil)
		return 0, false
	}
	return uid, true
}
