package app

import (
	"errors"
	"fmt"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/provider"
	"github.com/storefront-next/internal/router"
	"github.com/storefront-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !isValidMode(mode) {
		return nil, fmt.Errorf("unknown mode: %q", mode)
	}
	return buildRunnerWithContainer(cfg, provider.NewContainer(cfg), mode)
}

func buildRunnerWithContainer(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	if !isValidMode(mode) {
		return nil, fmt.Errorf("unknown mode: %q", mode)
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	// 初始化 Worker 服务，all 模式下队列未启用时仅跳过
	if mode == ModeAll || mode == ModeWorker {
		if !cfg.Queue.Enabled {
			if mode == ModeWorker {
				return nil, errors.New("worker mode requires queue.enabled")
			}
			logger.Warnw("app_worker_skipped", "reason", "queue_disabled")
		} else {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode, "worker", opts.Config.Queue.Enabled)
	return RunWithOptions(runner, opts)
}
