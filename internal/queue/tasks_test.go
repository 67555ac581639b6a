package queue

import (
	"testing"
	"time"

	"github.com/storefront-next/internal/config"
)

func TestCartClearTaskRoundTrip(t *testing.T) {
	updatedAt := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	task, err := NewCartClearTask(CartClearPayload{
		UserID:  7,
		OrderNo: "SF1",
		Lines:   []CartClearLine{{ProductID: 4, UpdatedAt: updatedAt}},
	})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskCartClear {
		t.Fatalf("task type want %s got %s", TaskCartClear, task.Type())
	}
	payload, err := ParseCartClearPayload(task.Payload())
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.UserID != 7 || payload.OrderNo != "SF1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Lines) != 1 || payload.Lines[0].ProductID != 4 || !payload.Lines[0].UpdatedAt.Equal(updatedAt) {
		t.Fatalf("unexpected lines: %+v", payload.Lines)
	}
}

func TestCartClearTaskRequiresUser(t *testing.T) {
	if _, err := NewCartClearTask(CartClearPayload{OrderNo: "SF1"}); err == nil {
		t.Fatalf("expected error for missing user id")
	}
	if _, err := ParseCartClearPayload([]byte(`{"order_no":"SF1"}`)); err == nil {
		t.Fatalf("expected error for payload without user id")
	}
}

func TestCartClearTaskRequiresLines(t *testing.T) {
	if _, err := NewCartClearTask(CartClearPayload{UserID: 7, OrderNo: "SF1"}); err == nil {
		t.Fatalf("expected error for payload without lines")
	}
	if _, err := ParseCartClearPayload([]byte(`{"user_id":7,"order_no":"SF1","lines":[]}`)); err == nil {
		t.Fatalf("expected error for payload with empty lines")
	}
}

func TestDisabledClientRejectsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueCartClear(CartClearPayload{UserID: 1}, time.Second, 3); err != ErrQueueDisabled {
		t.Fatalf("want ErrQueueDisabled got %v", err)
	}
	var nilClient *Client
	if err := nilClient.EnqueueCartClear(CartClearPayload{UserID: 1}, 0, 0); err != ErrQueueDisabled {
		t.Fatalf("nil client want ErrQueueDisabled got %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
