package service

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/storefront-next/internal/constants"

	"github.com/go-playground/validator/v10"
)

var (
	cardNumberPattern = regexp.MustCompile(`^[0-9]{16}$`)
	cardExpiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)
	cardCVVPattern    = regexp.MustCompile(`^[0-9]{3,4}$`)
	cardSeparators    = strings.NewReplacer(" ", "", "-", "")
)

// CheckoutShipping 收货信息
type CheckoutShipping struct {
	FullName string `json:"full_name" validate:"required,max=128"`
	Address  string `json:"address" validate:"required,max=512"`
}

// CheckoutPayment 支付信息（模拟支付，仅校验与脱敏）
type CheckoutPayment struct {
	Method         string `json:"method" validate:"required,oneof=card paypal"`
	CardNumber     string `json:"card_number"`
	ExpirationDate string `json:"expiration_date"`
	CVV            string `json:"cvv"`
}

type checkoutForm struct {
	Shipping CheckoutShipping `json:"shipping"`
	Payment  CheckoutPayment  `json:"payment"`
}

type cardDetails struct {
	CardNumber     string `json:"card_number" validate:"required,card_number"`
	ExpirationDate string `json:"expiration_date" validate:"required,card_expiry_format,card_expiry_current"`
	CVV            string `json:"cvv" validate:"required,card_cvv"`
}

var checkoutReasons = map[string]string{
	"required":            "required",
	"max":                 "too long",
	"oneof":               "must be one of card, paypal",
	"card_number":         "must be exactly 16 digits",
	"card_expiry_format":  "must be in MM/YY format",
	"card_expiry_current": "card has expired",
	"card_cvv":            "must be 3 or 4 digits",
}

// CheckoutValidator 结算表单校验器，一次返回全部字段错误
type CheckoutValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewCheckoutValidator 创建结算校验器，now 为空时使用当前时间
func NewCheckoutValidator(now func() time.Time) *CheckoutValidator {
	if now == nil {
		now = time.Now
	}
	cv := &CheckoutValidator{validate: validator.New(), now: now}
	cv.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = cv.validate.RegisterValidation("card_number", func(fl validator.FieldLevel) bool {
		return cardNumberPattern.MatchString(fl.Field().String())
	})
	_ = cv.validate.RegisterValidation("card_expiry_format", func(fl validator.FieldLevel) bool {
		return cardExpiryPattern.MatchString(fl.Field().String())
	})
	_ = cv.validate.RegisterValidation("card_expiry_current", func(fl validator.FieldLevel) bool {
		return cv.expiryNotPast(fl.Field().String())
	})
	_ = cv.validate.RegisterValidation("card_cvv", func(fl validator.FieldLevel) bool {
		return cardCVVPattern.MatchString(fl.Field().String())
	})
	return cv
}

// Validate 规范化并校验结算表单，返回规范化后的收货与支付信息
func (cv *CheckoutValidator) Validate(shipping CheckoutShipping, payment CheckoutPayment) (CheckoutShipping, CheckoutPayment, error) {
	form := normalizeCheckoutForm(checkoutForm{Shipping: shipping, Payment: payment})
	verr := &ValidationError{}
	cv.collect(verr, "", form)
	if form.Payment.Method == constants.PaymentMethodCard {
		cv.collect(verr, "payment.", cardDetails{
			CardNumber:     form.Payment.CardNumber,
			ExpirationDate: form.Payment.ExpirationDate,
			CVV:            form.Payment.CVV,
		})
	}
	if err := verr.OrNil(); err != nil {
		return CheckoutShipping{}, CheckoutPayment{}, err
	}
	return form.Shipping, form.Payment, nil
}

func (cv *CheckoutValidator) collect(verr *ValidationError, prefix string, value interface{}) {
	err := cv.validate.Struct(value)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add(strings.TrimSuffix(prefix, "."), err.Error())
		return
	}
	for _, fe := range fieldErrs {
		reason, ok := checkoutReasons[fe.Tag()]
		if !ok {
			reason = "invalid"
		}
		verr.Add(prefix+trimNamespaceRoot(fe.Namespace()), reason)
	}
}

// expiryNotPast 有效期 MM/YY 在当月最后一天之前都有效
func (cv *CheckoutValidator) expiryNotPast(raw string) bool {
	matches := cardExpiryPattern.FindStringSubmatch(raw)
	if len(matches) != 3 {
		return false
	}
	month, _ := strconv.Atoi(matches[1])
	year, _ := strconv.Atoi(matches[2])
	now := cv.now()
	expiry := (2000+year)*12 + month
	current := now.Year()*12 + int(now.Month())
	return expiry >= current
}

func normalizeCheckoutForm(form checkoutForm) checkoutForm {
	form.Shipping.FullName = strings.TrimSpace(form.Shipping.FullName)
	form.Shipping.Address = strings.TrimSpace(form.Shipping.Address)
	form.Payment.Method = strings.ToLower(strings.TrimSpace(form.Payment.Method))
	if form.Payment.Method != constants.PaymentMethodCard {
		// 非银行卡支付不保留任何卡信息
		form.Payment.CardNumber = ""
		form.Payment.ExpirationDate = ""
		form.Payment.CVV = ""
		return form
	}
	form.Payment.CardNumber = cardSeparators.Replace(strings.TrimSpace(form.Payment.CardNumber))
	form.Payment.ExpirationDate = strings.ReplaceAll(form.Payment.ExpirationDate, " ", "")
	form.Payment.CVV = strings.TrimSpace(form.Payment.CVV)
	return form
}

func trimNamespaceRoot(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
