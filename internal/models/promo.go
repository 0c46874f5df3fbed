package models

import (
	"time"

	"gorm.io/gorm"
)

// Promo 优惠活动（按客户定向发放）
type Promo struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`                   // 名称（同时作为优惠码）
	Description string         `gorm:"type:text" json:"description"`                       // 描述
	Type        string         `gorm:"type:varchar(20);not null" json:"type"`              // 类型（percentage/fixed_amount）
	Value       Money          `gorm:"type:decimal(20,2);not null" json:"value"`           // 数值（百分比或固定金额）
	StartDate   *time.Time     `gorm:"index" json:"startDate"`                             // 生效时间（空表示不限）
	EndDate     *time.Time     `gorm:"index" json:"endDate"`                               // 失效时间（空表示不限）
	IsActive    bool           `gorm:"not null;default:true;index" json:"isActive"`        // 是否启用
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`                             // 创建时间
	UpdatedAt   time.Time      `json:"updatedAt"`                                          // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Promo) TableName() string {
	return "promos"
}

// InWindow 判断时间点是否落在活动有效期内
func (p Promo) InWindow(now time.Time) bool {
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	return true
}
