package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/storefront-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartClear 结算后购物车清空重试任务
	TaskCartClear = constants.TaskCartClear
)

// CartClearLine 下单时购物车快照中的一行
type CartClearLine struct {
	ProductID uint      `json:"product_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartClearPayload 购物车清空任务载荷
//
// Lines 为下单快照，重试只删除快照内且此后未被修改过的行。
type CartClearPayload struct {
	UserID  uint            `json:"user_id"`
	OrderNo string          `json:"order_no"`
	Lines   []CartClearLine `json:"lines"`
}

// NewCartClearTask 创建购物车清空任务
func NewCartClearTask(payload CartClearPayload) (*asynq.Task, error) {
	if payload.UserID == 0 {
		return nil, errors.New("cart clear task requires user_id")
	}
	if len(payload.Lines) == 0 {
		return nil, errors.New("cart clear task requires lines")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartClear, body), nil
}

// ParseCartClearPayload 解析购物车清空任务载荷
func ParseCartClearPayload(body []byte) (CartClearPayload, error) {
	var payload CartClearPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return CartClearPayload{}, err
	}
	if payload.UserID == 0 {
		return CartClearPayload{}, errors.New("cart clear payload missing user_id")
	}
	if len(payload.Lines) == 0 {
		return CartClearPayload{}, errors.New("cart clear payload missing lines")
	}
	return payload, nil
}
