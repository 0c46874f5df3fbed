package repository

import (
	"errors"
	"strings"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

var productEditableColumns = []string{
	"name", "sku", "description", "category", "price", "stock", "is_active",
}

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetByID(id uint) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
	CountBySKU(sku string, excludeID uint) (int64, error)
	DecrementStock(productID uint, quantity int) (int64, error)
	IncrementStock(productID uint, quantity int) (int64, error)
	AdjustStock(productID uint, delta int) (int64, error)
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	query = applySearch(query, filter.Search, "name", "sku", "description")
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.LowStock {
		threshold := filter.StockBelow
		if threshold <= 0 {
			threshold = constants.LowStockThreshold
		}
		query = query.Where("stock <= ?", threshold)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	products := make([]models.Product, 0)
	if err := query.Order("created_at DESC, id DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	if err := r.db.Create(product).Error; err != nil {
		return err
	}
	// is_active 带默认值，零值 false 需要单独写回
	if !product.IsActive {
		return r.db.Model(product).UpdateColumn("is_active", false).Error
	}
	return nil
}

// Update 更新商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Model(product).Select(productEditableColumns).Updates(product).Error
}

// Delete 删除商品（软删除）
func (r *GormProductRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

// CountBySKU 统计 SKU 占用
func (r *GormProductRepository) CountBySKU(sku string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Product{}).Where("sku = ?", strings.TrimSpace(sku))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DecrementStock 扣减库存，仅当库存充足时生效，返回影响行数
func (r *GormProductRepository) DecrementStock(productID uint, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock decrement params")
	}
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// IncrementStock 回补库存
func (r *GormProductRepository) IncrementStock(productID uint, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock increment params")
	}
	result := r.db.Unscoped().Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AdjustStock 按增量调整库存，结果不低于 0
func (r *GormProductRepository) AdjustStock(productID uint, delta int) (int64, error) {
	if productID == 0 {
		return 0, errors.New("invalid stock adjust params")
	}
	result := r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr(flooredDeltaExpr("stock"), delta, delta))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
