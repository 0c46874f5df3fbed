package repository

import (
	"errors"
	"strings"

	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

// TaskRepository 任务数据访问接口
type TaskRepository interface {
	GetByID(id uint) (*models.Task, error)
	List(filter TaskListFilter) ([]models.Task, int64, error)
	Create(task *models.Task) error
	Update(task *models.Task) error
	Delete(id uint) error
}

// GormTaskRepository GORM 实现
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// GetByID 获取任务
func (r *GormTaskRepository) GetByID(id uint) (*models.Task, error) {
	var task models.Task
	if err := r.db.Preload("Customer").Preload("AssignedAdmin").First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// List 任务列表，按截止时间升序（空截止时间排最后）
func (r *GormTaskRepository) List(filter TaskListFilter) ([]models.Task, int64, error) {
	query := r.db.Model(&models.Task{})
	query = applySearch(query, filter.Search, "title", "description")
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if filter.AssignedAdminID != 0 {
		query = query.Where("assigned_admin_id = ?", filter.AssignedAdminID)
	}
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date IS NOT NULL AND due_date <= ?", *filter.DueBefore)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	tasks := make([]models.Task, 0)
	err := query.Preload("Customer").Preload("AssignedAdmin").
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Create 创建任务
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Omit("Customer", "AssignedAdmin").Create(task).Error
}

// Update 更新任务
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Omit("Customer", "AssignedAdmin").Save(task).Error
}

// Delete 删除任务（软删除）
func (r *GormTaskRepository) Delete(id uint) error {
	return r.db.Delete(&models.Task{}, id).Error
}
