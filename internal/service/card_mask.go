package service

import (
	"strconv"

	"github.com/storefront-next/internal/constants"
)

// MaskedPayment 脱敏后的支付信息，只保留卡组织与后四位
type MaskedPayment struct {
	Method    string `json:"method"`
	CardBrand string `json:"card_brand,omitempty"`
	CardLast4 string `json:"card_last4,omitempty"`
}

func maskPayment(method, cardDigits string) MaskedPayment {
	masked := MaskedPayment{Method: method}
	if method != constants.PaymentMethodCard || len(cardDigits) < 4 {
		return masked
	}
	masked.CardBrand = detectCardBrand(cardDigits)
	masked.CardLast4 = cardDigits[len(cardDigits)-4:]
	return masked
}

// detectCardBrand 按 IIN 前缀识别卡组织
func detectCardBrand(digits string) string {
	prefix := func(n int) int {
		if len(digits) < n {
			return -1
		}
		v, err := strconv.Atoi(digits[:n])
		if err != nil {
			return -1
		}
		return v
	}
	switch {
	case prefix(1) == 4:
		return constants.CardBrandVisa
	case prefix(2) >= 51 && prefix(2) <= 55, prefix(4) >= 2221 && prefix(4) <= 2720:
		return constants.CardBrandMastercard
	case prefix(2) == 34, prefix(2) == 37:
		return constants.CardBrandAmex
	case prefix(4) == 6011, prefix(2) == 65, prefix(3) >= 644 && prefix(3) <= 649:
		return constants.CardBrandDiscover
	default:
		return constants.CardBrandUnknown
	}
}
