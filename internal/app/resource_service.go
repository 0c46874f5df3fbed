package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/crm-next/internal/cache"
	"github.com/crm-next/internal/queue"
)

// resourceService 持有进程级共享连接，停止时统一释放
type resourceService struct {
	queueClient *queue.Client
	closeCache  func() error
}

func newResourceService(queueClient *queue.Client) *resourceService {
	return &resourceService{queueClient: queueClient, closeCache: cache.Close}
}

// Name 服务名称
func (s *resourceService) Name() string {
	return "resources"
}

// Start 仅等待退出信号
func (s *resourceService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop 关闭队列客户端与 Redis 缓存连接
func (s *resourceService) Stop(ctx context.Context) error {
	var errs []error
	if err := s.queueClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close queue client: %w", err))
	}
	if s.closeCache != nil {
		if err := s.closeCache(); err != nil {
			errs = append(errs, fmt.Errorf("close redis cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
