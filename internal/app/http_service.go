package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/storefront-next/internal/config"
)

// HTTPService HTTP 服务封装
type HTTPService struct {
	name   string
	server *http.Server
}

// NewHTTPService 按服务配置创建 HTTP 服务，未配置的超时取默认值
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		name: "http",
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       secondsOr(cfg.ReadTimeoutSeconds, 15),
			WriteTimeout:      secondsOr(cfg.WriteTimeoutSeconds, 30),
			IdleTimeout:       secondsOr(cfg.IdleTimeoutSeconds, 60),
		},
	}
}

func secondsOr(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

// Name 服务名称
func (s *HTTPService) Name() string {
	if s == nil || s.name == "" {
		return "http"
	}
	return s.name
}

// Addr 监听地址
func (s *HTTPService) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start 阻塞监听，Stop 引起的关闭不视为错误
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭，等待进行中的请求完成
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
