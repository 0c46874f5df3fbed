package service

import (
	"context"
	"strings"

	"github.com/crm-next/internal/cache"
	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"
)

const customerRecentPurchaseLimit = 10

// CustomerService 客户管理服务
type CustomerService struct {
	repo          repository.CustomerRepository
	purchaseRepo  repository.PurchaseRepository
	assignRepo    repository.CustomerPromoRepository
	passwordCheck func(string) error
}

// NewCustomerService 创建客户服务
func NewCustomerService(repo repository.CustomerRepository, purchaseRepo repository.PurchaseRepository, assignRepo repository.CustomerPromoRepository, authService *AuthService) *CustomerService {
	return &CustomerService{
		repo:          repo,
		purchaseRepo:  purchaseRepo,
		assignRepo:    assignRepo,
		passwordCheck: authService.ValidatePassword,
	}
}

// CustomerInput 创建/更新客户输入
type CustomerInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Company   string
	Notes     string
	Status    string
	Password  string
}

// CustomerDetail 客户详情（含最近购买与优惠）
type CustomerDetail struct {
	Customer        *models.Customer       `json:"customer"`
	RecentPurchases []models.Purchase      `json:"recentPurchases"`
	Promos          []models.CustomerPromo `json:"promos"`
}

// List 客户列表
func (s *CustomerService) List(filter repository.CustomerListFilter) ([]models.Customer, int64, error) {
	return s.repo.List(filter)
}

// Get 获取客户
func (s *CustomerService) Get(id uint) (*models.Customer, error) {
	customer, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// GetDetail 获取客户详情
func (s *CustomerService) GetDetail(id uint) (*CustomerDetail, error) {
	customer, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	purchases, err := s.purchaseRepo.ListRecentByCustomer(id, customerRecentPurchaseLimit)
	if err != nil {
		return nil, err
	}
	promos, _, err := s.assignRepo.List(repository.CustomerPromoListFilter{CustomerID: id})
	if err != nil {
		return nil, err
	}
	return &CustomerDetail{
		Customer:        customer,
		RecentPurchases: purchases,
		Promos:          promos,
	}, nil
}

// Create 创建客户
func (s *CustomerService) Create(input CustomerInput) (*models.Customer, error) {
	customer := &models.Customer{}
	if err := s.apply(customer, input, 0); err != nil {
		return nil, err
	}
	if customer.Status == "" {
		customer.Status = constants.CustomerStatusActive
	}
	if strings.TrimSpace(input.Password) != "" {
		if err := s.passwordCheck(input.Password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		customer.PasswordHash = hash
	}
	if err := s.repo.Create(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Update 更新客户资料，消费统计不受影响
func (s *CustomerService) Update(id uint, input CustomerInput) (*models.Customer, error) {
	customer, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	previousStatus := customer.Status
	if err := s.apply(customer, input, id); err != nil {
		return nil, err
	}
	if customer.Status == "" {
		customer.Status = previousStatus
	}
	if err := s.repo.Update(customer); err != nil {
		return nil, err
	}
	if customer.Status != previousStatus {
		_ = cache.DelAuthState(context.Background(), cache.SubjectCustomer, customer.ID)
	}
	return customer, nil
}

// Delete 删除客户（软删除）
func (s *CustomerService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	_ = cache.DelAuthState(context.Background(), cache.SubjectCustomer, id)
	return nil
}

// ListPurchases 客户购买记录
func (s *CustomerService) ListPurchases(id uint, page, pageSize int) ([]models.Purchase, int64, error) {
	if _, err := s.Get(id); err != nil {
		return nil, 0, err
	}
	return s.purchaseRepo.List(repository.PurchaseListFilter{
		CustomerID: id,
		Page:       page,
		PageSize:   pageSize,
	})
}

// ListPromos 客户优惠
func (s *CustomerService) ListPromos(id uint, isUsed *bool, page, pageSize int) ([]models.CustomerPromo, int64, error) {
	if _, err := s.Get(id); err != nil {
		return nil, 0, err
	}
	return s.assignRepo.List(repository.CustomerPromoListFilter{
		CustomerID: id,
		IsUsed:     isUsed,
		Page:       page,
		PageSize:   pageSize,
	})
}

func (s *CustomerService) apply(customer *models.Customer, input CustomerInput, excludeID uint) error {
	firstName := strings.TrimSpace(input.FirstName)
	if firstName == "" {
		return ErrCustomerInvalid
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return ErrCustomerInvalid
	}
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status != "" && status != constants.CustomerStatusActive && status != constants.CustomerStatusInactive {
		return ErrCustomerStatusBad
	}

	count, err := s.repo.CountByEmail(email, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCustomerEmailTaken
	}

	customer.FirstName = firstName
	customer.LastName = strings.TrimSpace(input.LastName)
	customer.Email = email
	customer.Phone = strings.TrimSpace(input.Phone)
	customer.Address = strings.TrimSpace(input.Address)
	customer.Company = strings.TrimSpace(input.Company)
	customer.Notes = strings.TrimSpace(input.Notes)
	customer.Status = status
	return nil
}
