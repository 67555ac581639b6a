package public

import (
	"errors"

	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/i18n"
	"github.com/storefront-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	if fields := service.ValidationFields(err); fields != nil {
		msg := i18n.T(i18n.ResolveLocale(c), "error.validation_failed")
		response.ErrorWithData(c, response.CodeBadRequest, msg, gin.H{"fields": fields})
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrValidation, code: response.CodeBadRequest, key: "error.validation_failed"},
	{target: service.ErrCartItemNotFound, code: response.CodeNotFound, key: "error.cart_item_not_found"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.invalid_quantity"},
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrValidation, code: response.CodeBadRequest, key: "error.validation_failed"},
	{target: service.ErrEmptyCart, code: response.CodeBadRequest, key: "error.cart_empty"},
}

var orderErrorRules = []mappedHandlerError{
	{target: service.ErrValidation, code: response.CodeBadRequest, key: "error.validation_failed"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
}

func respondCartError(c *gin.Context, err error, fallbackKey string) {
	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, fallbackKey)
}

func respondCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "error.checkout_failed")
}

func respondOrderError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "error.order_fetch_failed")
}
