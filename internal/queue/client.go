package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// NotificationQueue 通知类任务队列
	NotificationQueue = constants.QueueNotifications

	notifyMaxRetry = 5
	notifyTimeout  = 30 * time.Second
)

// Client 队列客户端封装
type Client struct {
	client      *asynq.Client
	enabled     bool
	notifyQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, notifyQueue: NotificationQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:      client,
		enabled:     true,
		notifyQueue: resolveNotifyQueue(cfg),
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePurchaseReceipt 推送购买回执任务
func (c *Client) EnqueuePurchaseReceipt(payload PurchaseReceiptPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPurchaseReceiptTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, c.notifyOptions(opts)...)
	return err
}

// EnqueueTicketReplyNotify 推送工单回复通知任务
func (c *Client) EnqueueTicketReplyNotify(payload TicketReplyNotifyPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewTicketReplyNotifyTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, c.notifyOptions(opts)...)
	return err
}

func (c *Client) notifyOptions(opts []asynq.Option) []asynq.Option {
	base := []asynq.Option{
		asynq.Queue(c.notifyQueue),
		asynq.MaxRetry(notifyMaxRetry),
		asynq.Timeout(notifyTimeout),
	}
	return append(base, opts...)
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1, NotificationQueue: 2}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func resolveNotifyQueue(cfg *config.QueueConfig) string {
	if cfg != nil {
		if _, ok := cfg.Queues[NotificationQueue]; !ok && len(cfg.Queues) > 0 {
			return DefaultQueue
		}
	}
	return NotificationQueue
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
