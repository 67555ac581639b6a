package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errServiceExited 某个服务正常退出，同样触发整体关闭
var errServiceExited = errors.New("service exited")

// Service 服务接口
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器：任一服务退出或收到信号时停止全部服务
type Runner struct {
	services []Service
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务并阻塞到退出
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, logger *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	for i, svc := range r.services {
		if svc == nil {
			return fmt.Errorf("service %d is nil", i)
		}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if stopTimeout <= 0 {
		stopTimeout = defaultShutdownTimeout
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, svc := range r.services {
		group.Go(func() error {
			logger.Infow("service_start", "service", svc.Name())
			err := svc.Start(groupCtx)
			logger.Infow("service_exit", "service", svc.Name(), "error", err)
			if err == nil && groupCtx.Err() == nil {
				return errServiceExited
			}
			return err
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		r.stopAll(stopTimeout, logger)
		return nil
	})

	err := group.Wait()
	if errors.Is(err, errServiceExited) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) stopAll(timeout time.Duration, logger *zap.SugaredLogger) {
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, svc := range r.services {
		if err := svc.Stop(stopCtx); err != nil {
			logger.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}
}
