package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storefront-next/internal/cache"
	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/i18n"
	"github.com/storefront-next/internal/logger"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"
const idempotencyReplayHeader = "Idempotency-Replayed"

// bodyCaptureWriter 复制写出的响应体
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware 按 Idempotency-Key 回放已完成请求的响应
//
// 未携带请求头或未配置存储时直接放行；只缓存业务成功（status_code=0）的响应，
// 失败时释放幂等键以便客户端重试。键按实际请求路径区分，并记录请求体摘要，
// 同一键携带不同请求体时返回冲突而不是回放。
func IdempotencyMiddleware(store cache.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if store == nil || rawKey == "" {
			c.Next()
			return
		}
		userID, _ := c.Get(handlershared.ContextUserIDKey)
		uid, _ := userID.(uint)
		key := cache.IdempotencyKey(uid, c.Request.Method, c.Request.URL.Path, rawKey)

		body, err := readRequestBody(c)
		if err != nil {
			msg := i18n.T(i18n.ResolveLocale(c), "error.bad_request")
			response.Error(c, response.CodeBadRequest, msg)
			c.Abort()
			return
		}
		fingerprint := cache.IdempotencyFingerprint(body)

		ctx := c.Request.Context()
		stored, err := store.Reserve(ctx, key, fingerprint, ttl)
		switch {
		case errors.Is(err, cache.ErrIdempotencyInFlight):
			msg := i18n.T(i18n.ResolveLocale(c), "error.idempotency_in_flight")
			response.Error(c, response.CodeConflict, msg)
			c.Abort()
			return
		case errors.Is(err, cache.ErrIdempotencyKeyReused):
			msg := i18n.T(i18n.ResolveLocale(c), "error.idempotency_key_reused")
			response.Error(c, response.CodeConflict, msg)
			c.Abort()
			return
		case err != nil:
			logger.Warnw("idempotency_reserve_failed", "request_id", getRequestID(c), "error", err)
			msg := i18n.T(i18n.ResolveLocale(c), "error.idempotency_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		case stored != nil:
			c.Header(idempotencyReplayHeader, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		// 请求可能已被取消，落库使用独立上下文
		saveCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if c.Writer.Status() == http.StatusOK && isSuccessEnvelope(writer.body.Bytes()) {
			if err := store.Complete(saveCtx, key, fingerprint, cache.IdempotentResponse{
				Status: c.Writer.Status(),
				Body:   writer.body.Bytes(),
			}, ttl); err != nil {
				logger.Warnw("idempotency_complete_failed", "request_id", getRequestID(c), "error", err)
			}
			return
		}
		if err := store.Release(saveCtx, key); err != nil {
			logger.Warnw("idempotency_release_failed", "request_id", getRequestID(c), "error", err)
		}
	}
}

// readRequestBody 读取请求体并放回，供后续绑定使用
func readRequestBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func isSuccessEnvelope(body []byte) bool {
	var envelope struct {
		StatusCode *int `json:"status_code"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.StatusCode == nil {
		return false
	}
	return *envelope.StatusCode == response.CodeOK
}
