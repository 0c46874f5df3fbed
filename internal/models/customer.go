package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer 客户表
type Customer struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                       // 主键
	FirstName          string         `gorm:"not null" json:"firstName"`                                  // 名
	LastName           string         `gorm:"default:''" json:"lastName"`                                 // 姓
	Email              string         `gorm:"uniqueIndex;not null" json:"email"`                          // 邮箱（唯一）
	Phone              string         `gorm:"index;default:''" json:"phone"`                              // 电话
	Address            string         `gorm:"type:text" json:"address"`                                   // 地址
	Company            string         `gorm:"default:''" json:"company"`                                  // 公司
	Notes              string         `gorm:"type:text" json:"notes"`                                     // 备注
	PasswordHash       string         `gorm:"default:''" json:"-"`                                        // 密码哈希（为空表示未开通登录）
	Status             string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // 状态
	TotalSpent         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"totalSpent"`    // 累计消费（冗余）
	PurchaseCount      int            `gorm:"not null;default:0" json:"purchaseCount"`                    // 购买次数（冗余）
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                                // Token 版本
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                                             // 该时间点前签发的 Token 失效
	LastLoginAt        *time.Time     `json:"lastLoginAt"`                                                // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"createdAt"`                                     // 创建时间
	UpdatedAt          time.Time      `json:"updatedAt"`                                                  // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// FullName 拼接客户姓名
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// CanLogin 是否已开通客户端登录
func (c Customer) CanLogin() bool {
	return strings.TrimSpace(c.PasswordHash) != ""
}
