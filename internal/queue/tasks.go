package queue

import (
	"encoding/json"

	"github.com/crm-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPurchaseReceipt 购买回执邮件任务
	TaskPurchaseReceipt = constants.TaskPurchaseReceipt
	// TaskTicketReplyNotify 工单回复通知任务
	TaskTicketReplyNotify = constants.TaskTicketReplyNotify
)

// PurchaseReceiptPayload 购买回执任务载荷
type PurchaseReceiptPayload struct {
	PurchaseID uint `json:"purchase_id"`
}

// TicketReplyNotifyPayload 工单回复通知任务载荷
type TicketReplyNotifyPayload struct {
	TicketID  uint `json:"ticket_id"`
	MessageID uint `json:"message_id"`
}

// NewPurchaseReceiptTask 创建购买回执任务
func NewPurchaseReceiptTask(payload PurchaseReceiptPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurchaseReceipt, body), nil
}

// NewTicketReplyNotifyTask 创建工单回复通知任务
func NewTicketReplyNotifyTask(payload TicketReplyNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTicketReplyNotify, body), nil
}
