package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/queue"
	"github.com/crm-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketService 客服工单服务
type TicketService struct {
	repo         repository.TicketRepository
	customerRepo repository.CustomerRepository
	adminRepo    repository.AdminRepository
	queueClient  *queue.Client
}

// NewTicketService 创建工单服务
func NewTicketService(repo repository.TicketRepository, customerRepo repository.CustomerRepository, adminRepo repository.AdminRepository, queueClient *queue.Client) *TicketService {
	return &TicketService{
		repo:         repo,
		customerRepo: customerRepo,
		adminRepo:    adminRepo,
		queueClient:  queueClient,
	}
}

// CreateTicketInput 客户提交工单参数
type CreateTicketInput struct {
	Subject     string
	Description string
	Priority    string
}

// UpdateTicketInput 员工处理工单参数，nil 表示不修改
type UpdateTicketInput struct {
	Status   *string
	Priority *string
	// AssignedAdminID 为 0 表示取消指派
	AssignedAdminID *uint
}

// List 工单列表
func (s *TicketService) List(filter repository.TicketListFilter) ([]models.Ticket, int64, error) {
	return s.repo.List(filter)
}

// Get 获取工单（含会话）
func (s *TicketService) Get(id uint) (*models.Ticket, error) {
	ticket, err := s.repo.GetByID(id, true)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// GetForCustomer 获取客户自己的工单
func (s *TicketService) GetForCustomer(customerID, id uint) (*models.Ticket, error) {
	ticket, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if ticket.CustomerID != customerID {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// ListForCustomer 客户自己的工单列表
func (s *TicketService) ListForCustomer(customerID uint, filter repository.TicketListFilter) ([]models.Ticket, int64, error) {
	filter.CustomerID = customerID
	filter.AssignedAdminID = 0
	return s.repo.List(filter)
}

// CreateForCustomer 客户提交工单
func (s *TicketService) CreateForCustomer(customerID uint, input CreateTicketInput) (*models.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, ErrTicketInvalid
	}
	priority, ok := normalizePriority(input.Priority)
	if !ok {
		return nil, ErrPriorityInvalid
	}
	if priority == "" {
		priority = constants.PriorityMedium
	}
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	ticket := &models.Ticket{
		TicketNo:    generateTicketNo(time.Now()),
		CustomerID:  customerID,
		Subject:     subject,
		Description: strings.TrimSpace(input.Description),
		Status:      constants.TicketStatusOpen,
		Priority:    priority,
	}
	if err := s.repo.Create(ticket); err != nil {
		return nil, err
	}
	logger.Infow("ticket_created", "ticket_id", ticket.ID, "ticket_no", ticket.TicketNo, "customer_id", customerID)
	return s.Get(ticket.ID)
}

// Update 员工修改工单状态、优先级与处理人
func (s *TicketService) Update(id uint, input UpdateTicketInput) (*models.Ticket, error) {
	ticket, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if input.Priority != nil {
		priority, ok := normalizePriority(*input.Priority)
		if !ok || priority == "" {
			return nil, ErrPriorityInvalid
		}
		ticket.Priority = priority
	}
	if input.AssignedAdminID != nil {
		if *input.AssignedAdminID == 0 {
			ticket.AssignedAdminID = nil
		} else {
			admin, err := s.adminRepo.GetByID(*input.AssignedAdminID)
			if err != nil {
				return nil, err
			}
			if admin == nil {
				return nil, ErrAssigneeNotFound
			}
			assignee := admin.ID
			ticket.AssignedAdminID = &assignee
		}
	}
	if input.Status != nil {
		status, ok := normalizeTicketStatus(*input.Status)
		if !ok {
			return nil, ErrTicketStatusInvalid
		}
		setTicketStatus(ticket, status, time.Now())
	}

	ticket.Customer = nil
	ticket.Messages = nil
	if err := s.repo.Update(ticket); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// ReplyAsAdmin 员工回复工单，并通知客户
func (s *TicketService) ReplyAsAdmin(ctx context.Context, adminID, ticketID uint, message string) (*models.TicketMessage, error) {
	ticket, err := s.Get(ticketID)
	if err != nil {
		return nil, err
	}
	msg, err := s.reply(ticket, constants.SenderTypeAdmin, adminID, message)
	if err != nil {
		return nil, err
	}
	if err := s.queueClient.EnqueueTicketReplyNotify(queue.TicketReplyNotifyPayload{
		TicketID:  ticket.ID,
		MessageID: msg.ID,
	}); err != nil {
		logger.Ctx(ctx).Warnw("ticket_reply_notify_enqueue_failed", "ticket_id", ticket.ID, "message_id", msg.ID, "error", err)
	}
	return msg, nil
}

// ReplyAsCustomer 客户回复自己的工单
func (s *TicketService) ReplyAsCustomer(customerID, ticketID uint, message string) (*models.TicketMessage, error) {
	ticket, err := s.GetForCustomer(customerID, ticketID)
	if err != nil {
		return nil, err
	}
	return s.reply(ticket, constants.SenderTypeCustomer, customerID, message)
}

// ListMessages 工单会话
func (s *TicketService) ListMessages(ticketID uint) ([]models.TicketMessage, error) {
	return s.repo.ListMessages(ticketID)
}

// GetMessage 查找工单内的指定消息
func (s *TicketService) GetMessage(ticketID, messageID uint) (*models.TicketMessage, error) {
	messages, err := s.repo.ListMessages(ticketID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].ID == messageID {
			return &messages[i], nil
		}
	}
	return nil, ErrNotFound
}

// reply 员工回复把 open 推进到 in_progress，客户回复把 resolved 重新打开
func (s *TicketService) reply(ticket *models.Ticket, senderType string, senderID uint, message string) (*models.TicketMessage, error) {
	content := strings.TrimSpace(message)
	if content == "" {
		return nil, ErrTicketMessageEmpty
	}
	if ticket.Status == constants.TicketStatusClosed {
		return nil, ErrTicketClosed
	}

	msg := &models.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: senderType,
		SenderID:   senderID,
		Message:    content,
	}
	nextStatus := ticket.Status
	switch {
	case senderType == constants.SenderTypeAdmin && ticket.Status == constants.TicketStatusOpen:
		nextStatus = constants.TicketStatusInProgress
	case senderType == constants.SenderTypeCustomer && ticket.Status == constants.TicketStatusResolved:
		nextStatus = constants.TicketStatusOpen
	}

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateMessage(msg); err != nil {
			return err
		}
		setTicketStatus(ticket, nextStatus, time.Now())
		ticket.Customer = nil
		ticket.Messages = nil
		return repo.Update(ticket)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func setTicketStatus(ticket *models.Ticket, status string, now time.Time) {
	switch status {
	case constants.TicketStatusResolved:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
		ticket.ClosedAt = nil
	case constants.TicketStatusClosed:
		if ticket.ClosedAt == nil {
			ticket.ClosedAt = &now
		}
	default:
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
	}
	ticket.Status = status
}

func normalizeTicketStatus(status string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case constants.TicketStatusOpen, constants.TicketStatusInProgress,
		constants.TicketStatusResolved, constants.TicketStatusClosed:
		return normalized, true
	default:
		return "", false
	}
}

// generateTicketNo 形如 TK20260102-1A2B3C4D
func generateTicketNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TK%s-%s", now.Format("20060102"), suffix)
}
