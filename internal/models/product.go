package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	Name        string         `gorm:"not null;index" json:"name"`                         // 名称
	SKU         *string        `gorm:"uniqueIndex" json:"sku"`                             // 商品编码（可选，唯一）
	Description string         `gorm:"type:text" json:"description"`                       // 描述
	Category    string         `gorm:"index;default:''" json:"category"`                   // 分类
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 单价
	Stock       int            `gorm:"not null;default:0" json:"stock"`                    // 库存（不小于 0）
	IsActive    bool           `gorm:"not null;default:true;index" json:"isActive"`        // 是否上架
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`                             // 创建时间
	UpdatedAt   time.Time      `json:"updatedAt"`                                          // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
