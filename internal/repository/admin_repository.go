package repository

import (
	"errors"
	"strings"

	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 员工数据访问接口
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	List(filter AdminListFilter) ([]models.Admin, int64, error)
	CountByUsername(username string, excludeID uint) (int64, error)
	CountActiveByRole(role string) (int64, error)
	Create(admin *models.Admin) error
	Update(admin *models.Admin) error
	Delete(id uint) error
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建员工仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// GetByUsername 根据用户名获取员工
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.Where("username = ?", strings.TrimSpace(username)).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// GetByID 根据 ID 获取员工
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// List 获取员工列表
func (r *GormAdminRepository) List(filter AdminListFilter) ([]models.Admin, int64, error) {
	query := r.db.Model(&models.Admin{})
	query = applySearch(query, filter.Search, "username", "name", "email")
	if role := strings.TrimSpace(filter.Role); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	admins := make([]models.Admin, 0)
	if err := query.Order("id ASC").Find(&admins).Error; err != nil {
		return nil, 0, err
	}
	return admins, total, nil
}

// CountByUsername 统计用户名占用（排除自身）
func (r *GormAdminRepository) CountByUsername(username string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Admin{}).Where("username = ?", strings.TrimSpace(username))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountActiveByRole 统计某角色的启用账号数
func (r *GormAdminRepository) CountActiveByRole(role string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Admin{}).
		Where("role = ? AND is_active = ?", role, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建员工
func (r *GormAdminRepository) Create(admin *models.Admin) error {
	if err := r.db.Create(admin).Error; err != nil {
		return err
	}
	// is_active 带默认值，零值 false 需要单独写回
	if !admin.IsActive {
		return r.db.Model(admin).UpdateColumn("is_active", false).Error
	}
	return nil
}

// Update 更新员工
func (r *GormAdminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}

// Delete 删除员工（软删除）
func (r *GormAdminRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Admin{}, id).Error
}
