package repository

import (
	"errors"
	"strings"

	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

// customerEditableColumns 资料更新允许写入的列，累计字段只由购买流程维护
var customerEditableColumns = []string{
	"first_name", "last_name", "email", "phone", "address", "company", "notes", "status",
}

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	GetByID(id uint) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	List(filter CustomerListFilter) ([]models.Customer, int64, error)
	CountByEmail(email string, excludeID uint) (int64, error)
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
	UpdateCredentials(customer *models.Customer) error
	ApplyPurchaseTotals(customerID uint, amountDelta models.Money, countDelta int) (int64, error)
	Delete(id uint) error
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// GetByID 根据 ID 获取客户
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByEmail 根据邮箱获取客户（忽略大小写）
func (r *GormCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// List 客户列表
func (r *GormCustomerRepository) List(filter CustomerListFilter) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})
	query = applySearch(query, filter.Search, "first_name", "last_name", "email", "phone")
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if company := strings.TrimSpace(filter.Company); company != "" {
		query = query.Where("company = ?", company)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	customers := make([]models.Customer, 0)
	if err := query.Order("created_at DESC, id DESC").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// CountByEmail 统计邮箱占用（排除自身）
func (r *GormCustomerRepository) CountByEmail(email string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Customer{}).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建客户
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// Update 更新客户资料，不覆盖累计字段与凭证
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Model(customer).Select(customerEditableColumns).Updates(customer).Error
}

// UpdateCredentials 更新密码与 Token 失效信息
func (r *GormCustomerRepository) UpdateCredentials(customer *models.Customer) error {
	return r.db.Model(customer).
		Select("password_hash", "token_version", "token_invalid_before", "last_login_at").
		Updates(customer).Error
}

// ApplyPurchaseTotals 原子调整累计消费与购买次数，结果不低于 0
func (r *GormCustomerRepository) ApplyPurchaseTotals(customerID uint, amountDelta models.Money, countDelta int) (int64, error) {
	if customerID == 0 {
		return 0, errors.New("invalid customer id")
	}
	result := r.db.Model(&models.Customer{}).
		Where("id = ?", customerID).
		UpdateColumns(map[string]interface{}{
			"total_spent":    gorm.Expr(flooredDeltaExpr("total_spent"), amountDelta, amountDelta),
			"purchase_count": gorm.Expr(flooredDeltaExpr("purchase_count"), countDelta, countDelta),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete 删除客户（软删除）
func (r *GormCustomerRepository) Delete(id uint) error {
	return r.db.Delete(&models.Customer{}, id).Error
}
