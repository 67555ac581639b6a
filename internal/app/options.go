package app

import (
	"os"
	"strings"
	"time"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：all 同时运行 HTTP 与 Worker，api / worker 只运行其一
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func isValidMode(mode string) bool {
	return mode == ModeAll || mode == ModeAPI || mode == ModeWorker
}

// normalizeOptions 补齐默认参数，模式名不区分大小写
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	opts.Mode = strings.ToLower(strings.TrimSpace(opts.Mode))
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
