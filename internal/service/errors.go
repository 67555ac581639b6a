package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity cannot be less than 1")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrPersistence      = errors.New("persistence failure")
	ErrOrderNotFound    = errors.New("order not found")
)

// FieldError 单个字段的校验失败
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError 携带全部失败字段，errors.Is(err, ErrValidation) 成立
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is 让 *ValidationError 与 ErrValidation 匹配
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add 追加字段错误
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// HasFields 是否存在字段错误
func (e *ValidationError) HasFields() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil 没有字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if !e.HasFields() {
		return nil
	}
	return e
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

// ValidationFields 提取校验失败字段，非校验错误返回 nil
func ValidationFields(err error) []FieldError {
	var verr *ValidationError
	if errors.As(err, &verr) && verr != nil {
		return verr.Fields
	}
	return nil
}

// wrapPersistence 将存储层错误统一包装为 ErrPersistence
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
