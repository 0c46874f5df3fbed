package models

import "time"

// Purchase 购买记录（客户-商品）
type Purchase struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	CustomerID     uint      `gorm:"not null;index" json:"customerId"`                             // 客户ID
	ProductID      uint      `gorm:"not null;index" json:"productId"`                              // 商品ID
	Quantity       int       `gorm:"not null" json:"quantity"`                                     // 数量
	Price          Money     `gorm:"type:decimal(20,2);not null" json:"price"`                     // 下单时单价快照
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discountAmount"` // 优惠金额
	TotalAmount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"totalAmount"`    // 实付金额
	PromoID        *uint     `gorm:"index" json:"promoId"`                                         // 使用的优惠ID
	PurchaseDate   time.Time `gorm:"not null;index" json:"purchaseDate"`                           // 购买时间
	Notes          string    `gorm:"type:text" json:"notes"`                                       // 备注
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`                                       // 创建时间
	UpdatedAt      time.Time `json:"updatedAt"`                                                    // 更新时间

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 客户
	Product  *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`   // 商品
	Promo    *Promo    `gorm:"foreignKey:PromoID" json:"promo,omitempty"`       // 优惠
}

// TableName 指定表名
func (Purchase) TableName() string {
	return "customer_products"
}
