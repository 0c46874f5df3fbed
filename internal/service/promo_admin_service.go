package service

import (
	"strings"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PromoAdminService 优惠管理服务
type PromoAdminService struct {
	promoRepo    repository.PromoRepository
	assignRepo   repository.CustomerPromoRepository
	customerRepo repository.CustomerRepository
}

// NewPromoAdminService 创建优惠管理服务
func NewPromoAdminService(promoRepo repository.PromoRepository, assignRepo repository.CustomerPromoRepository, customerRepo repository.CustomerRepository) *PromoAdminService {
	return &PromoAdminService{
		promoRepo:    promoRepo,
		assignRepo:   assignRepo,
		customerRepo: customerRepo,
	}
}

// PromoInput 创建/更新优惠输入
type PromoInput struct {
	Name        string
	Description string
	Type        string
	Value       models.Money
	StartDate   *time.Time
	EndDate     *time.Time
	IsActive    *bool
}

// AssignResult 发放结果
type AssignResult struct {
	Requested int   `json:"requested"`
	Created   int64 `json:"created"`
	Skipped   int64 `json:"skipped"`
}

// List 优惠列表
func (s *PromoAdminService) List(filter repository.PromoListFilter) ([]models.Promo, int64, error) {
	return s.promoRepo.List(filter)
}

// Get 获取优惠
func (s *PromoAdminService) Get(id uint) (*models.Promo, error) {
	promo, err := s.promoRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrPromoNotFound
	}
	return promo, nil
}

// Create 创建优惠
func (s *PromoAdminService) Create(input PromoInput) (*models.Promo, error) {
	promo := &models.Promo{IsActive: true}
	if err := s.apply(promo, input, 0); err != nil {
		return nil, err
	}
	if err := s.promoRepo.Create(promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// Update 更新优惠，已使用的发放记录保持不变
func (s *PromoAdminService) Update(id uint, input PromoInput) (*models.Promo, error) {
	promo, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(promo, input, id); err != nil {
		return nil, err
	}
	if err := s.promoRepo.Update(promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// Delete 删除优惠及其未使用的发放记录
func (s *PromoAdminService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.assignRepo.WithTx(tx).DeleteByPromo(id); err != nil {
			return err
		}
		return s.promoRepo.WithTx(tx).Delete(id)
	})
}

// Assign 发放优惠给客户，同一客户重复发放会被忽略
func (s *PromoAdminService) Assign(promoID uint, customerIDs []uint) (*AssignResult, error) {
	if _, err := s.Get(promoID); err != nil {
		return nil, err
	}
	ids := uniqueIDs(customerIDs)
	if len(ids) == 0 {
		return nil, ErrInvalidInput
	}
	for _, id := range ids {
		customer, err := s.customerRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, ErrCustomerNotFound
		}
	}

	created, err := s.assignRepo.Assign(promoID, ids)
	if err != nil {
		return nil, err
	}
	logger.Infow("promo_assigned", "promo_id", promoID, "requested", len(ids), "created", created)
	return &AssignResult{
		Requested: len(ids),
		Created:   created,
		Skipped:   int64(len(ids)) - created,
	}, nil
}

// Unassign 取消发放，已使用的记录不会被删除
func (s *PromoAdminService) Unassign(promoID, customerID uint) error {
	link, err := s.assignRepo.GetByPair(customerID, promoID)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrPromoNotAssigned
	}
	if link.IsUsed {
		return ErrPromoAlreadyUsed
	}
	_, err = s.assignRepo.Unassign(promoID, customerID)
	return err
}

// ListAssignments 优惠发放记录
func (s *PromoAdminService) ListAssignments(filter repository.CustomerPromoListFilter) ([]models.CustomerPromo, int64, error) {
	if filter.PromoID != 0 {
		if _, err := s.Get(filter.PromoID); err != nil {
			return nil, 0, err
		}
	}
	return s.assignRepo.List(filter)
}

func (s *PromoAdminService) apply(promo *models.Promo, input PromoInput, excludeID uint) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrInvalidInput
	}
	promoType := strings.ToLower(strings.TrimSpace(input.Type))
	value := input.Value.Decimal.Round(2)
	switch promoType {
	case constants.PromoTypePercentage:
		if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(hundred) {
			return ErrPromoInvalid
		}
	case constants.PromoTypeFixedAmount:
		if value.LessThanOrEqual(decimal.Zero) {
			return ErrPromoInvalid
		}
	default:
		return ErrPromoInvalid
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return ErrPromoDateRange
	}

	count, err := s.promoRepo.CountByName(name, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrPromoNameTaken
	}

	promo.Name = name
	promo.Description = strings.TrimSpace(input.Description)
	promo.Type = promoType
	promo.Value = models.NewMoneyFromDecimal(value)
	promo.StartDate = input.StartDate
	promo.EndDate = input.EndDate
	if input.IsActive != nil {
		promo.IsActive = *input.IsActive
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
