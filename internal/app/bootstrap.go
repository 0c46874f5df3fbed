package app

import (
	"context"
	"errors"

	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/provider"
	"github.com/crm-next/internal/router"
	"github.com/crm-next/internal/tracing"
	"github.com/crm-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !isValidMode(mode) {
		return nil, errors.New("unknown mode: " + mode)
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, err
	}

	var services []Service

	// API 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 异步任务消费（邮件通知等）
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	// 共享连接排在最前，按逆序停止时最后关闭
	services = append([]Service{newResourceService(container.QueueClient)}, services...)
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	cfg := opts.Config
	if err := tracing.Init(cfg.Tracing.ToTracingOptions(cfg.Server.Mode)); err != nil {
		// 追踪不可用不影响主流程
		opts.Logger.Warnw("app_tracing_init_failed", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			opts.Logger.Warnw("app_tracing_shutdown_failed", "error", err)
		}
	}()

	runner, err := BuildRunner(cfg, opts.Mode)
	if err != nil {
		return err
	}

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
