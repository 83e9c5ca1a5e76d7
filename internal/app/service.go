package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可启停的后台服务
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器：任一服务退出或 ctx 结束即统一停止
type Runner struct {
	services []Service
	log      *zap.SugaredLogger
}

// NewRunner 创建服务运行器
func NewRunner(log *zap.SugaredLogger, services ...Service) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{services: services, log: log}
}

// RunWithSignals 运行服务，收到信号后优雅退出
func (r *Runner) RunWithSignals(opts Options) error {
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, opts.Signals...)
		defer stop()
	}
	return r.Run(ctx, opts.ShutdownTimeout)
}

// Run 启动全部服务并阻塞到结束
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	for _, svc := range r.services {
		if svc == nil {
			return errors.New("service is nil")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exited := make(chan error, len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			r.log.Infow("service_start", "service", svc.Name())
			err := svc.Start(runCtx)
			r.log.Infow("service_exit", "service", svc.Name(), "error", err)
			exited <- err
		}(svc)
	}

	var runErr error
	select {
	case <-runCtx.Done():
		runErr = runCtx.Err()
	case runErr = <-exited:
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = defaultShutdownTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if err := svc.Stop(stopCtx); err != nil {
			r.log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
