package repository

import (
	"errors"
	"strings"

	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

// TicketRepository 工单数据访问接口
type TicketRepository interface {
	GetByID(id uint, withMessages bool) (*models.Ticket, error)
	List(filter TicketListFilter) ([]models.Ticket, int64, error)
	Create(ticket *models.Ticket) error
	Update(ticket *models.Ticket) error
	CreateMessage(message *models.TicketMessage) error
	ListMessages(ticketID uint) ([]models.TicketMessage, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormTicketRepository
}

// GormTicketRepository GORM 实现
type GormTicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建工单仓库
func NewTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTicketRepository) WithTx(tx *gorm.DB) *GormTicketRepository {
	if tx == nil {
		return r
	}
	return &GormTicketRepository{db: tx}
}

// Transaction 执行事务
func (r *GormTicketRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 获取工单
func (r *GormTicketRepository) GetByID(id uint, withMessages bool) (*models.Ticket, error) {
	query := r.db.Preload("Customer", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
	if withMessages {
		query = query.Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
	}
	var ticket models.Ticket
	if err := query.First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// List 工单列表
func (r *GormTicketRepository) List(filter TicketListFilter) ([]models.Ticket, int64, error) {
	query := r.db.Model(&models.Ticket{})
	query = applySearch(query, filter.Search, "ticket_no", "subject")
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.AssignedAdminID != 0 {
		query = query.Where("assigned_admin_id = ?", filter.AssignedAdminID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	tickets := make([]models.Ticket, 0)
	err := query.Preload("Customer", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("updated_at DESC, id DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// Create 创建工单
func (r *GormTicketRepository) Create(ticket *models.Ticket) error {
	return r.db.Omit("Customer").Create(ticket).Error
}

// Update 更新工单
func (r *GormTicketRepository) Update(ticket *models.Ticket) error {
	return r.db.Omit("Customer", "Messages").Save(ticket).Error
}

// CreateMessage 追加会话消息
func (r *GormTicketRepository) CreateMessage(message *models.TicketMessage) error {
	return r.db.Create(message).Error
}

// ListMessages 工单会话消息
func (r *GormTicketRepository) ListMessages(ticketID uint) ([]models.TicketMessage, error) {
	messages := make([]models.TicketMessage, 0)
	if err := r.db.Where("ticket_id = ?", ticketID).Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
