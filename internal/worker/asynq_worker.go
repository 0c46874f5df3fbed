package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/provider"
	"github.com/crm-next/internal/queue"
	"github.com/crm-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPurchaseReceipt, c.handlePurchaseReceipt)
	mux.HandleFunc(queue.TaskTicketReplyNotify, c.handleTicketReplyNotify)
}

func (c *Consumer) handlePurchaseReceipt(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_purchase_receipt_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PurchaseReceiptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_purchase_receipt_unmarshal_failed", "error", err)
		return err
	}
	if payload.PurchaseID == 0 {
		logger.Debugw("worker_purchase_receipt_skip_invalid_payload", "purchase_id", payload.PurchaseID)
		return nil
	}
	if !c.EmailService.Enabled() {
		logger.Debugw("worker_purchase_receipt_skip_email_disabled", "purchase_id", payload.PurchaseID)
		return nil
	}
	purchase, err := c.PurchaseRepo.GetByID(payload.PurchaseID)
	if err != nil {
		logger.Ctx(ctx).Warnw("worker_purchase_receipt_fetch_failed", "purchase_id", payload.PurchaseID, "error", err)
		return err
	}
	if purchase == nil {
		logger.Debugw("worker_purchase_receipt_skip_not_found", "purchase_id", payload.PurchaseID)
		return nil
	}
	if purchase.Customer == nil || purchase.Customer.DeletedAt.Valid {
		logger.Debugw("worker_purchase_receipt_skip_customer_missing", "purchase_id", purchase.ID, "customer_id", purchase.CustomerID)
		return nil
	}
	if err := c.EmailService.SendPurchaseReceipt(purchase); err != nil {
		return handleSendError(ctx, "worker_purchase_receipt_send_failed", err,
			"purchase_id", purchase.ID,
			"customer_id", purchase.CustomerID,
		)
	}
	logger.Ctx(ctx).Infow("worker_purchase_receipt_sent", "purchase_id", purchase.ID, "customer_id", purchase.CustomerID)
	return nil
}

func (c *Consumer) handleTicketReplyNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_ticket_reply_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TicketReplyNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_ticket_reply_unmarshal_failed", "error", err)
		return err
	}
	if payload.TicketID == 0 || payload.MessageID == 0 {
		logger.Debugw("worker_ticket_reply_skip_invalid_payload", "ticket_id", payload.TicketID, "message_id", payload.MessageID)
		return nil
	}
	if !c.EmailService.Enabled() {
		logger.Debugw("worker_ticket_reply_skip_email_disabled", "ticket_id", payload.TicketID)
		return nil
	}
	ticket, err := c.TicketRepo.GetByID(payload.TicketID, false)
	if err != nil {
		logger.Ctx(ctx).Warnw("worker_ticket_reply_fetch_ticket_failed", "ticket_id", payload.TicketID, "error", err)
		return err
	}
	if ticket == nil || ticket.Customer == nil || ticket.Customer.DeletedAt.Valid {
		logger.Debugw("worker_ticket_reply_skip_ticket_missing", "ticket_id", payload.TicketID)
		return nil
	}
	message, err := c.TicketService.GetMessage(ticket.ID, payload.MessageID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_ticket_reply_skip_message_missing", "ticket_id", ticket.ID, "message_id", payload.MessageID)
			return nil
		}
		logger.Ctx(ctx).Warnw("worker_ticket_reply_fetch_message_failed", "ticket_id", ticket.ID, "error", err)
		return err
	}
	// 只通知员工回复
	if message.SenderType != constants.SenderTypeAdmin {
		return nil
	}
	if err := c.EmailService.SendTicketReply(ticket, message); err != nil {
		return handleSendError(ctx, "worker_ticket_reply_send_failed", err,
			"ticket_id", ticket.ID,
			"ticket_no", ticket.TicketNo,
			"message_id", message.ID,
		)
	}
	logger.Ctx(ctx).Infow("worker_ticket_reply_sent", "ticket_id", ticket.ID, "message_id", message.ID)
	return nil
}

// handleSendError 收件人无效时不再重试，其余错误交给 asynq 重试
func handleSendError(ctx context.Context, event string, err error, kv ...interface{}) error {
	fields := append(append([]interface{}{}, kv...), "error", err)
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrEmailRecipientRejected):
		logger.Ctx(ctx).Warnw(event, append(fields, "retry", false)...)
		return nil
	case errors.Is(err, service.ErrEmailServiceDisabled),
		errors.Is(err, service.ErrEmailServiceNotConfigured):
		logger.Ctx(ctx).Debugw(event, append(fields, "retry", false)...)
		return nil
	default:
		logger.Ctx(ctx).Warnw(event, fields...)
		return err
	}
}
