package app

import (
	"errors"

	"github.com/devqr/internal/router"
)

// BuildRunner 构建 serve 模式的服务运行器
func BuildRunner(opts Options) (*Runner, *HTTPService, error) {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return nil, nil, errors.New("config is nil")
	}
	if opts.Container == nil {
		return nil, nil, errors.New("container is nil")
	}

	engine := router.SetupRouter(opts.Config, opts.Container)
	httpService := NewHTTPService(opts.Addr, engine)
	if err := httpService.Listen(); err != nil {
		return nil, nil, err
	}
	return NewRunner(opts.Logger, httpService), httpService, nil
}

// Run serve 启动入口：先对齐表格镜像，再启动 HTTP 服务
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	if opts.Container == nil {
		return errors.New("container is nil")
	}

	if path, err := opts.Container.RecordService.Export(); err != nil {
		opts.Logger.Warnw("app_initial_export_failed", "error", err)
	} else {
		opts.Logger.Infow("app_initial_export_synced", "path", path)
	}

	runner, httpService, err := BuildRunner(opts)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start", "addr", httpService.Addr())
	return runner.RunWithSignals(opts)
}
