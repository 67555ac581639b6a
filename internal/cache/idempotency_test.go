package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/storefront-next/internal/config"
)

func TestIdempotencyKey(t *testing.T) {
	got := IdempotencyKey(7, "post", "/api/v1/cart/items", " abc ")
	want := "idem:7:POST:/api/v1/cart/items:abc"
	if got != want {
		t.Fatalf("key want %s got %s", want, got)
	}
}

func TestNewIdempotencyStoreWithoutClient(t *testing.T) {
	if store := NewIdempotencyStore(nil); store != nil {
		t.Fatalf("store should be nil without redis client")
	}
}

func TestDecodeIdempotencyRecord(t *testing.T) {
	fp := IdempotencyFingerprint([]byte(`{"quantity":1}`))
	pending, _ := json.Marshal(idempotencyRecord{State: idempotencyStatePending, Fingerprint: fp})
	if _, err := decodeIdempotencyRecord(pending, fp); !errors.Is(err, ErrIdempotencyInFlight) {
		t.Fatalf("pending record want ErrIdempotencyInFlight got %v", err)
	}

	done, _ := json.Marshal(idempotencyRecord{
		State:       idempotencyStateDone,
		Fingerprint: fp,
		Response:    IdempotentResponse{Status: 200, Body: []byte(`{"status_code":0}`)},
	})
	resp, err := decodeIdempotencyRecord(done, fp)
	if err != nil {
		t.Fatalf("decode done record failed: %v", err)
	}
	if resp.Status != 200 || string(resp.Body) != `{"status_code":0}` {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if _, err := decodeIdempotencyRecord([]byte("garbage"), fp); err == nil {
		t.Fatalf("garbage record should fail to decode")
	}
}

func TestDecodeIdempotencyRecordRejectsDifferentBody(t *testing.T) {
	first := IdempotencyFingerprint([]byte(`{"quantity":1}`))
	second := IdempotencyFingerprint([]byte(`{"quantity":5}`))
	if first == second {
		t.Fatalf("different bodies must have different fingerprints")
	}
	done, _ := json.Marshal(idempotencyRecord{
		State:       idempotencyStateDone,
		Fingerprint: first,
		Response:    IdempotentResponse{Status: 200, Body: []byte(`{"status_code":0}`)},
	})
	if _, err := decodeIdempotencyRecord(done, second); !errors.Is(err, ErrIdempotencyKeyReused) {
		t.Fatalf("want ErrIdempotencyKeyReused got %v", err)
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	old := redisPrefix
	redisPrefix = "sf"
	defer func() { redisPrefix = old }()
	if got := buildKey(" cart "); got != "sf:cart" {
		t.Fatalf("key want sf:cart got %s", got)
	}
	if got := buildKey(""); got != "sf" {
		t.Fatalf("empty key want sf got %s", got)
	}
}

func TestRedisHelpersDisabled(t *testing.T) {
	if err := InitRedis(nil); err != nil {
		t.Fatalf("init with nil config failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("redis should be disabled")
	}
	var dest map[string]string
	found, err := GetJSON(context.Background(), "k", &dest)
	if err != nil || found {
		t.Fatalf("disabled GetJSON want (false,nil) got (%v,%v)", found, err)
	}
}

func TestInitRedisUnreachableStaysDisabled(t *testing.T) {
	err := InitRedis(&config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1})
	if err == nil {
		t.Fatalf("expected ping error for unreachable redis")
	}
	if Enabled() || Client() != nil {
		t.Fatalf("redis should stay disabled after failed ping")
	}
}
