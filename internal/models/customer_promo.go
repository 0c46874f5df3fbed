package models

import "time"

// CustomerPromo 客户优惠发放记录（一客一券，一次性使用）
type CustomerPromo struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                              // 主键
	CustomerID uint       `gorm:"not null;uniqueIndex:idx_customer_promo_pair;index" json:"customerId"` // 客户ID
	PromoID    uint       `gorm:"not null;uniqueIndex:idx_customer_promo_pair;index" json:"promoId"`    // 优惠ID
	IsUsed     bool       `gorm:"not null;default:false;index" json:"isUsed"`                        // 是否已使用
	UsedAt     *time.Time `json:"usedAt"`                                                            // 使用时间
	PurchaseID *uint      `gorm:"index" json:"purchaseId"`                                           // 核销的购买记录
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`                                            // 发放时间
	UpdatedAt  time.Time  `json:"updatedAt"`                                                         // 更新时间

	Promo    *Promo    `gorm:"foreignKey:PromoID" json:"promo,omitempty"`       // 优惠信息
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 客户信息
}

// TableName 指定表名
func (CustomerPromo) TableName() string {
	return "customer_promos"
}
