package service

import (
	"strings"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"
)

// TaskService 跟进任务服务
type TaskService struct {
	repo         repository.TaskRepository
	customerRepo repository.CustomerRepository
	adminRepo    repository.AdminRepository
}

// NewTaskService 创建任务服务
func NewTaskService(repo repository.TaskRepository, customerRepo repository.CustomerRepository, adminRepo repository.AdminRepository) *TaskService {
	return &TaskService{
		repo:         repo,
		customerRepo: customerRepo,
		adminRepo:    adminRepo,
	}
}

// TaskInput 创建/更新任务输入
type TaskInput struct {
	Title           string
	Description     string
	Status          string
	Priority        string
	DueDate         *time.Time
	CustomerID      *uint
	AssignedAdminID *uint
}

// List 任务列表
func (s *TaskService) List(filter repository.TaskListFilter) ([]models.Task, int64, error) {
	return s.repo.List(filter)
}

// Get 获取任务
func (s *TaskService) Get(id uint) (*models.Task, error) {
	task, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Create 创建任务
func (s *TaskService) Create(createdBy uint, input TaskInput) (*models.Task, error) {
	task := &models.Task{
		Status:           constants.TaskStatusPending,
		Priority:         constants.PriorityMedium,
		CreatedByAdminID: createdBy,
	}
	if err := s.apply(task, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(task); err != nil {
		return nil, err
	}
	return s.Get(task.ID)
}

// Update 更新任务
func (s *TaskService) Update(id uint, input TaskInput) (*models.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(task, input); err != nil {
		return nil, err
	}
	task.Customer = nil
	task.AssignedAdmin = nil
	if err := s.repo.Update(task); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// ChangeStatus 修改任务状态
func (s *TaskService) ChangeStatus(id uint, status string) (*models.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	normalized, ok := normalizeTaskStatus(status)
	if !ok || normalized == "" {
		return nil, ErrTaskStatusInvalid
	}
	setTaskStatus(task, normalized, time.Now())
	task.Customer = nil
	task.AssignedAdmin = nil
	if err := s.repo.Update(task); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete 删除任务
func (s *TaskService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

func (s *TaskService) apply(task *models.Task, input TaskInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ErrTaskInvalid
	}
	status, ok := normalizeTaskStatus(input.Status)
	if !ok {
		return ErrTaskStatusInvalid
	}
	priority, ok := normalizePriority(input.Priority)
	if !ok {
		return ErrPriorityInvalid
	}

	customerID := nonZeroID(input.CustomerID)
	if customerID != nil {
		customer, err := s.customerRepo.GetByID(*customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
	}
	assigneeID := nonZeroID(input.AssignedAdminID)
	if assigneeID != nil {
		admin, err := s.adminRepo.GetByID(*assigneeID)
		if err != nil {
			return err
		}
		if admin == nil {
			return ErrAssigneeNotFound
		}
	}

	task.Title = title
	task.Description = strings.TrimSpace(input.Description)
	task.DueDate = input.DueDate
	task.CustomerID = customerID
	task.AssignedAdminID = assigneeID
	if priority != "" {
		task.Priority = priority
	}
	if status != "" {
		setTaskStatus(task, status, time.Now())
	}
	return nil
}

func setTaskStatus(task *models.Task, status string, now time.Time) {
	if status == constants.TaskStatusCompleted {
		if task.Status != constants.TaskStatusCompleted || task.CompletedAt == nil {
			task.CompletedAt = &now
		}
	} else {
		task.CompletedAt = nil
	}
	task.Status = status
}

// normalizeTaskStatus 空字符串视为未指定
func normalizeTaskStatus(status string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case "", constants.TaskStatusPending, constants.TaskStatusInProgress,
		constants.TaskStatusCompleted, constants.TaskStatusCanceled:
		return normalized, true
	default:
		return "", false
	}
}

func normalizePriority(priority string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(priority))
	switch normalized {
	case "", constants.PriorityLow, constants.PriorityMedium, constants.PriorityHigh:
		return normalized, true
	default:
		return "", false
	}
}

func nonZeroID(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	value := *id
	return &value
}
