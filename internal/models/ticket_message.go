package models

import "time"

// TicketMessage 工单会话消息
type TicketMessage struct {
	ID         uint      `gorm:"primarykey" json:"id"`                               // 主键
	TicketID   uint      `gorm:"not null;index" json:"ticketId"`                     // 工单ID
	SenderType string    `gorm:"type:varchar(20);not null" json:"senderType"`        // 发送方类型（admin/customer）
	SenderID   uint      `gorm:"not null" json:"senderId"`                           // 发送方ID
	Message    string    `gorm:"type:text;not null" json:"message"`                  // 内容
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`                             // 发送时间
}

// TableName 指定表名
func (TicketMessage) TableName() string {
	return "ticket_messages"
}
