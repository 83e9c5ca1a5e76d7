package app

import (
	"os"
	"time"

	"github.com/devqr/internal/config"
	"github.com/devqr/internal/logger"
	"github.com/devqr/internal/provider"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

// Options serve 启动选项
type Options struct {
	Config          *config.Config
	Container       *provider.Container
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	// Addr 覆盖配置中的监听地址
	Addr string
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Addr == "" && opts.Config != nil {
		opts.Addr = opts.Config.Server.Addr()
	}
	return opts
}
