package models

import (
	"time"

	"gorm.io/gorm"
)

// Ticket 客服工单
type Ticket struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                             // 主键
	TicketNo        string         `gorm:"uniqueIndex;not null" json:"ticketNo"`                             // 工单编号
	CustomerID      uint           `gorm:"not null;index" json:"customerId"`                                 // 客户ID
	Subject         string         `gorm:"not null" json:"subject"`                                          // 主题
	Description     string         `gorm:"type:text" json:"description"`                                     // 问题描述
	Status          string         `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`     // 状态
	Priority        string         `gorm:"type:varchar(20);not null;default:'medium';index" json:"priority"` // 优先级
	AssignedAdminID *uint          `gorm:"index" json:"assignedAdminId"`                                     // 处理人
	ResolvedAt      *time.Time     `json:"resolvedAt"`                                                       // 解决时间
	ClosedAt        *time.Time     `json:"closedAt"`                                                         // 关闭时间
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`                                           // 创建时间
	UpdatedAt       time.Time      `json:"updatedAt"`                                                        // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	Customer *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 客户
	Messages []TicketMessage `gorm:"foreignKey:TicketID" json:"messages,omitempty"`   // 会话消息
}

// TableName 指定表名
func (Ticket) TableName() string {
	return "tickets"
}
