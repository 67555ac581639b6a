package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrIdempotencyInFlight 相同幂等键的请求仍在处理中
var ErrIdempotencyInFlight = errors.New("request with the same idempotency key is in progress")

// ErrIdempotencyKeyReused 相同幂等键携带了不同的请求体
var ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")

const (
	idempotencyStatePending = "pending"
	idempotencyStateDone    = "done"
)

// IdempotentResponse 已完成请求的响应快照
type IdempotentResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

type idempotencyRecord struct {
	State       string             `json:"state"`
	Fingerprint string             `json:"fingerprint"`
	Response    IdempotentResponse `json:"response"`
}

// IdempotencyStore 幂等键存储
//
// Reserve 返回 (nil, nil) 表示首次请求，调用方处理后必须 Complete 或 Release；
// 返回非空响应表示重复请求，直接回放。fingerprint 为请求体摘要，
// 与已占用记录不一致时返回 ErrIdempotencyKeyReused。
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*IdempotentResponse, error)
	Complete(ctx context.Context, key, fingerprint string, resp IdempotentResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// RedisIdempotencyStore 基于 SET NX 的幂等键存储
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore 创建幂等存储，client 为空时返回 nil
func NewIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	if client == nil {
		return nil
	}
	return &RedisIdempotencyStore{client: client}
}

// IdempotencyKey 生成用户维度的幂等键
func IdempotencyKey(userID uint, method, path, key string) string {
	return fmt.Sprintf("idem:%d:%s:%s:%s", userID, strings.ToUpper(method), path, strings.TrimSpace(key))
}

// IdempotencyFingerprint 计算请求体摘要
func IdempotencyFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Reserve 占用幂等键
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*IdempotentResponse, error) {
	pending, err := json.Marshal(idempotencyRecord{State: idempotencyStatePending, Fingerprint: fingerprint})
	if err != nil {
		return nil, err
	}
	fullKey := buildKey(key)
	ok, err := s.client.SetNX(ctx, fullKey, pending, ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, fullKey).Bytes()
	if err == redis.Nil {
		// 占用记录刚好过期，按首次请求处理
		ok, err = s.client.SetNX(ctx, fullKey, pending, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
		return nil, ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, err
	}
	return decodeIdempotencyRecord(raw, fingerprint)
}

// Complete 保存响应供重复请求回放
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, fingerprint string, resp IdempotentResponse, ttl time.Duration) error {
	payload, err := json.Marshal(idempotencyRecord{State: idempotencyStateDone, Fingerprint: fingerprint, Response: resp})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, buildKey(key), payload, ttl).Err()
}

// Release 处理失败时释放幂等键，允许客户端重试
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, buildKey(key)).Err()
}

func decodeIdempotencyRecord(raw []byte, fingerprint string) (*IdempotentResponse, error) {
	var record idempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	if record.Fingerprint != fingerprint {
		return nil, ErrIdempotencyKeyReused
	}
	if record.State != idempotencyStateDone {
		return nil, ErrIdempotencyInFlight
	}
	resp := record.Response
	return &resp, nil
}
