package repository

import (
	"errors"
	"strings"

	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

// PromoRepository 优惠数据访问接口
type PromoRepository interface {
	GetByID(id uint) (*models.Promo, error)
	GetByCode(code string) (*models.Promo, error)
	List(filter PromoListFilter) ([]models.Promo, int64, error)
	CountByName(name string, excludeID uint) (int64, error)
	Create(promo *models.Promo) error
	Update(promo *models.Promo) error
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormPromoRepository
}

// GormPromoRepository GORM 实现
type GormPromoRepository struct {
	db *gorm.DB
}

// NewPromoRepository 创建优惠仓库
func NewPromoRepository(db *gorm.DB) *GormPromoRepository {
	return &GormPromoRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoRepository) WithTx(tx *gorm.DB) *GormPromoRepository {
	if tx == nil {
		return r
	}
	return &GormPromoRepository{db: tx}
}

// GetByID 根据 ID 获取优惠
func (r *GormPromoRepository) GetByID(id uint) (*models.Promo, error) {
	var promo models.Promo
	if err := r.db.First(&promo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// GetByCode 根据优惠码（名称，忽略大小写）获取优惠
func (r *GormPromoRepository) GetByCode(code string) (*models.Promo, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var promo models.Promo
	if err := r.db.Where("LOWER(name) = ?", normalized).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// List 优惠列表
func (r *GormPromoRepository) List(filter PromoListFilter) ([]models.Promo, int64, error) {
	query := r.db.Model(&models.Promo{})
	query = applySearch(query, filter.Search, "name", "description")
	if promoType := strings.TrimSpace(filter.Type); promoType != "" {
		query = query.Where("type = ?", promoType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.ValidAt != nil {
		query = query.
			Where("start_date IS NULL OR start_date <= ?", *filter.ValidAt).
			Where("end_date IS NULL OR end_date >= ?", *filter.ValidAt)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	promos := make([]models.Promo, 0)
	if err := query.Order("created_at DESC, id DESC").Find(&promos).Error; err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

// CountByName 统计名称占用（忽略大小写）
func (r *GormPromoRepository) CountByName(name string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Promo{}).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建优惠
func (r *GormPromoRepository) Create(promo *models.Promo) error {
	if err := r.db.Create(promo).Error; err != nil {
		return err
	}
	// is_active 带默认值，零值 false 需要单独写回
	if !promo.IsActive {
		return r.db.Model(promo).UpdateColumn("is_active", false).Error
	}
	return nil
}

// Update 更新优惠
func (r *GormPromoRepository) Update(promo *models.Promo) error {
	return r.db.Save(promo).Error
}

// Delete 删除优惠（软删除）
func (r *GormPromoRepository) Delete(id uint) error {
	return r.db.Delete(&models.Promo{}, id).Error
}
