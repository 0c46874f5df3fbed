package models

import (
	"time"

	"gorm.io/gorm"
)

// Task 跟进任务
type Task struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                             // 主键
	Title            string         `gorm:"not null" json:"title"`                                            // 标题
	Description      string         `gorm:"type:text" json:"description"`                                     // 描述
	Status           string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`  // 状态
	Priority         string         `gorm:"type:varchar(20);not null;default:'medium';index" json:"priority"` // 优先级
	DueDate          *time.Time     `gorm:"index" json:"dueDate"`                                             // 截止时间
	CustomerID       *uint          `gorm:"index" json:"customerId"`                                          // 关联客户
	AssignedAdminID  *uint          `gorm:"index" json:"assignedAdminId"`                                     // 负责人
	CreatedByAdminID uint           `gorm:"index" json:"createdByAdminId"`                                    // 创建人
	CompletedAt      *time.Time     `json:"completedAt"`                                                      // 完成时间
	CreatedAt        time.Time      `gorm:"index" json:"createdAt"`                                           // 创建时间
	UpdatedAt        time.Time      `json:"updatedAt"`                                                        // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	Customer      *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`         // 关联客户
	AssignedAdmin *Admin    `gorm:"foreignKey:AssignedAdminID" json:"assignedAdmin,omitempty"` // 负责人
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}
