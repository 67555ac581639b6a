package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// moneyScale 金额保留位数
const moneyScale = 2

// Money 统一金额类型（保留 2 位小数，四舍五入）
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(moneyScale)}
}

// NewMoneyFromString 从字符串创建金额
func NewMoneyFromString(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, err
	}
	return NewMoneyFromDecimal(d), nil
}

// MustMoney 从字符串创建金额，解析失败直接 panic（仅用于常量与测试）
func MustMoney(raw string) Money {
	m, err := NewMoneyFromString(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Times 计算单价 × 数量
func (m Money) Times(quantity int) decimal.Decimal {
	return m.Decimal.Mul(decimal.NewFromInt(int64(quantity)))
}

// MarshalJSON 统一输出 2 位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 解析金额（字符串或数字）
//
// 保留原始精度，符号校验在舍入之前进行；入库与输出时再统一保留 2 位。
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var raw string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	} else {
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return err
		}
		raw = num.String()
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.New("invalid money value")
	}
	m.Decimal = d
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(moneyScale).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(moneyScale)
	return nil
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return m.Decimal.Round(moneyScale).StringFixed(moneyScale)
}
