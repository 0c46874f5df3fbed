package repository

import (
	"errors"
	"time"

	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerPromoRepository 优惠发放记录数据访问接口
type CustomerPromoRepository interface {
	GetByPair(customerID, promoID uint) (*models.CustomerPromo, error)
	List(filter CustomerPromoListFilter) ([]models.CustomerPromo, int64, error)
	Assign(promoID uint, customerIDs []uint) (int64, error)
	Unassign(promoID, customerID uint) (int64, error)
	MarkUsed(id, purchaseID uint, usedAt time.Time) (int64, error)
	ReopenByPurchase(purchaseID uint) (int64, error)
	DeleteByPromo(promoID uint) error
	WithTx(tx *gorm.DB) *GormCustomerPromoRepository
}

// GormCustomerPromoRepository GORM 实现
type GormCustomerPromoRepository struct {
	db *gorm.DB
}

// NewCustomerPromoRepository 创建优惠发放仓库
func NewCustomerPromoRepository(db *gorm.DB) *GormCustomerPromoRepository {
	return &GormCustomerPromoRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerPromoRepository) WithTx(tx *gorm.DB) *GormCustomerPromoRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerPromoRepository{db: tx}
}

// GetByPair 根据客户与优惠获取发放记录
func (r *GormCustomerPromoRepository) GetByPair(customerID, promoID uint) (*models.CustomerPromo, error) {
	var link models.CustomerPromo
	if err := r.db.Where("customer_id = ? AND promo_id = ?", customerID, promoID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// List 发放记录列表
func (r *GormCustomerPromoRepository) List(filter CustomerPromoListFilter) ([]models.CustomerPromo, int64, error) {
	query := r.db.Model(&models.CustomerPromo{})
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.PromoID != 0 {
		query = query.Where("promo_id = ?", filter.PromoID)
	}
	if filter.IsUsed != nil {
		query = query.Where("is_used = ?", *filter.IsUsed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	links := make([]models.CustomerPromo, 0)
	if err := query.Preload("Promo").Preload("Customer").Order("id DESC").Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// Assign 批量发放，已存在的客户-优惠组合跳过，返回新增数量
func (r *GormCustomerPromoRepository) Assign(promoID uint, customerIDs []uint) (int64, error) {
	if promoID == 0 || len(customerIDs) == 0 {
		return 0, nil
	}
	links := make([]models.CustomerPromo, 0, len(customerIDs))
	for _, customerID := range customerIDs {
		links = append(links, models.CustomerPromo{CustomerID: customerID, PromoID: promoID})
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "promo_id"}},
		DoNothing: true,
	}).Create(&links)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Unassign 撤销发放（仅未使用的记录）
func (r *GormCustomerPromoRepository) Unassign(promoID, customerID uint) (int64, error) {
	result := r.db.Where("promo_id = ? AND customer_id = ? AND is_used = ?", promoID, customerID, false).
		Delete(&models.CustomerPromo{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkUsed 核销发放记录，仅当尚未使用时生效，返回影响行数
func (r *GormCustomerPromoRepository) MarkUsed(id, purchaseID uint, usedAt time.Time) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid customer promo id")
	}
	result := r.db.Model(&models.CustomerPromo{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{
			"is_used":     true,
			"used_at":     usedAt,
			"purchase_id": purchaseID,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReopenByPurchase 撤销某次购买的核销
func (r *GormCustomerPromoRepository) ReopenByPurchase(purchaseID uint) (int64, error) {
	if purchaseID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CustomerPromo{}).
		Where("purchase_id = ?", purchaseID).
		Updates(map[string]interface{}{
			"is_used":     false,
			"used_at":     nil,
			"purchase_id": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteByPromo 删除优惠的全部未使用发放记录
func (r *GormCustomerPromoRepository) DeleteByPromo(promoID uint) error {
	return r.db.Where("promo_id = ? AND is_used = ?", promoID, false).Delete(&models.CustomerPromo{}).Error
}
