package worker

import (
	"context"
	"errors"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
type Service struct {
	name   string
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:   "worker",
		server: server,
		mux:    mux,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动消费者并阻塞到 ctx 结束；信号由上层 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止拉取新任务并等待处理中的任务结束
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}
