package repository

import (
	"errors"
	"time"

	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

// PurchaseRepository 购买记录数据访问接口
type PurchaseRepository interface {
	Create(purchase *models.Purchase) error
	GetByID(id uint) (*models.Purchase, error)
	List(filter PurchaseListFilter) ([]models.Purchase, int64, error)
	ListRecentByCustomer(customerID uint, limit int) ([]models.Purchase, error)
	UpdateDetails(id uint, notes *string, purchaseDate *time.Time) error
	Delete(id uint) (int64, error)
	WithTx(tx *gorm.DB) *GormPurchaseRepository
}

// GormPurchaseRepository GORM 实现
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建购买记录仓库
func NewPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPurchaseRepository) WithTx(tx *gorm.DB) *GormPurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPurchaseRepository{db: tx}
}

// Create 创建购买记录
func (r *GormPurchaseRepository) Create(purchase *models.Purchase) error {
	return r.db.Omit("Customer", "Product", "Promo").Create(purchase).Error
}

// GetByID 获取购买记录（含客户、商品、优惠）
func (r *GormPurchaseRepository) GetByID(id uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.
		Preload("Customer", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Promo", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&purchase, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// List 购买记录列表
func (r *GormPurchaseRepository) List(filter PurchaseListFilter) ([]models.Purchase, int64, error) {
	query := r.db.Model(&models.Purchase{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.PromoID != 0 {
		query = query.Where("promo_id = ?", filter.PromoID)
	}
	if filter.DateFrom != nil {
		query = query.Where("purchase_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("purchase_date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	purchases := make([]models.Purchase, 0)
	err := query.
		Preload("Customer", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Promo", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("purchase_date DESC, id DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// ListRecentByCustomer 客户最近的购买记录
func (r *GormPurchaseRepository) ListRecentByCustomer(customerID uint, limit int) ([]models.Purchase, error) {
	if limit <= 0 {
		limit = 5
	}
	purchases := make([]models.Purchase, 0)
	err := r.db.Where("customer_id = ?", customerID).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("purchase_date DESC, id DESC").
		Limit(limit).
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}

// UpdateDetails 更新备注与购买时间，金额与数量不可修改
func (r *GormPurchaseRepository) UpdateDetails(id uint, notes *string, purchaseDate *time.Time) error {
	updates := map[string]interface{}{}
	if notes != nil {
		updates["notes"] = *notes
	}
	if purchaseDate != nil {
		updates["purchase_date"] = *purchaseDate
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Purchase{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 删除购买记录，返回实际删除的行数
func (r *GormPurchaseRepository) Delete(id uint) (int64, error) {
	result := r.db.Delete(&models.Purchase{}, id)
	return result.RowsAffected, result.Error
}
