package shared

import (
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/i18n"
	"github.com/storefront-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 按请求语言返回错误信息；err 非空时记录原始错误，不下发给客户端。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"message_key", key,
			"path", c.FullPath(),
			"error", err,
		)
	}
	response.Error(c, code, msg)
}
