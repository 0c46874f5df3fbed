package service

import (
	"errors"
	"strings"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// PromoService 优惠校验与折扣计算
type PromoService struct {
	promoRepo   repository.PromoRepository
	assignRepo  repository.CustomerPromoRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

// NewPromoService 创建优惠校验服务
func NewPromoService(promoRepo repository.PromoRepository, assignRepo repository.CustomerPromoRepository, productRepo repository.ProductRepository) *PromoService {
	return &PromoService{
		promoRepo:   promoRepo,
		assignRepo:  assignRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

// WithTx 返回绑定事务的副本
func (s *PromoService) WithTx(tx *gorm.DB) *PromoService {
	if tx == nil {
		return s
	}
	return &PromoService{
		promoRepo:   s.promoRepo.WithTx(tx),
		assignRepo:  s.assignRepo.WithTx(tx),
		productRepo: s.productRepo.WithTx(tx),
		now:         s.now,
	}
}

// PromoValidation 校验结果，Promo 为空表示未使用优惠
type PromoValidation struct {
	Promo          *models.Promo
	CustomerPromo  *models.CustomerPromo
	DiscountAmount models.Money
}

// ValidateAndCalculate 校验客户能否使用优惠并计算折扣
func (s *PromoService) ValidateAndCalculate(promoID *uint, promoCode string, customerID uint, basePrice models.Money) (*PromoValidation, error) {
	code := strings.TrimSpace(promoCode)
	if (promoID == nil || *promoID == 0) && code == "" {
		return &PromoValidation{DiscountAmount: models.ZeroMoney()}, nil
	}

	var (
		promo *models.Promo
		err   error
	)
	if promoID != nil && *promoID != 0 {
		promo, err = s.promoRepo.GetByID(*promoID)
	} else {
		promo, err = s.promoRepo.GetByCode(code)
	}
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrPromoNotFound
	}

	if !promo.IsActive {
		return nil, ErrPromoInactive
	}
	now := s.now()
	if promo.StartDate != nil && now.Before(*promo.StartDate) {
		return nil, ErrPromoNotStarted
	}
	if promo.EndDate != nil && now.After(*promo.EndDate) {
		return nil, ErrPromoExpired
	}

	link, err := s.assignRepo.GetByPair(customerID, promo.ID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrPromoNotAssigned
	}
	if link.IsUsed {
		return nil, ErrPromoAlreadyUsed
	}

	discount, err := calculatePromoDiscount(promo, basePrice)
	if err != nil {
		return nil, err
	}
	return &PromoValidation{
		Promo:          promo,
		CustomerPromo:  link,
		DiscountAmount: discount,
	}, nil
}

// calculatePromoDiscount 折扣保留两位小数，范围 [0, base]
func calculatePromoDiscount(promo *models.Promo, base models.Money) (models.Money, error) {
	value := promo.Value.Decimal
	if value.LessThanOrEqual(decimal.Zero) {
		return models.Money{}, ErrPromoInvalid
	}

	var discount decimal.Decimal
	switch strings.ToLower(strings.TrimSpace(promo.Type)) {
	case constants.PromoTypePercentage:
		discount = base.Decimal.Mul(value).Div(hundred)
	case constants.PromoTypeFixedAmount:
		discount = value
	default:
		return models.Money{}, ErrPromoInvalid
	}

	discount = discount.Round(2)
	if discount.GreaterThan(base.Decimal) {
		discount = base.Decimal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return models.NewMoneyFromDecimal(discount), nil
}

// PromoPreviewInput 优惠预览参数，Amount 为空时按商品单价乘数量计算
type PromoPreviewInput struct {
	CustomerID uint
	PromoID    *uint
	PromoCode  string
	ProductID  uint
	Quantity   int
	Amount     *models.Money
}

// PromoPreview 优惠预览结果
type PromoPreview struct {
	Valid          bool          `json:"valid"`
	Message        string        `json:"message"`
	Promo          *models.Promo `json:"promo,omitempty"`
	BasePrice      models.Money  `json:"basePrice"`
	DiscountAmount models.Money  `json:"discountAmount"`
	FinalTotal     models.Money  `json:"finalTotal"`
}

// Preview 只读预览折扣，不修改任何数据
// 规则不满足时返回 Valid=false 和原因，参数或查询错误才返回 error
func (s *PromoService) Preview(input PromoPreviewInput) (*PromoPreview, error) {
	if input.CustomerID == 0 {
		return nil, ErrInvalidInput
	}

	var base models.Money
	switch {
	case input.Amount != nil:
		if input.Amount.Decimal.IsNegative() {
			return nil, ErrInvalidInput
		}
		base = models.NewMoneyFromDecimal(input.Amount.Decimal.Round(2))
	case input.ProductID != 0:
		if input.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
		product, err := s.productRepo.GetByID(input.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		base = models.NewMoneyFromDecimal(product.Price.Decimal.Mul(decimal.NewFromInt(int64(input.Quantity))))
	default:
		return nil, ErrInvalidInput
	}

	result := &PromoPreview{
		BasePrice:      base,
		DiscountAmount: models.ZeroMoney(),
		FinalTotal:     base,
	}
	validation, err := s.ValidateAndCalculate(input.PromoID, input.PromoCode, input.CustomerID, base)
	if err != nil {
		if isPromoRuleError(err) {
			result.Message = err.Error()
			return result, nil
		}
		return nil, err
	}

	result.Valid = true
	result.Message = "promo applied"
	if validation.Promo == nil {
		result.Message = "no promo supplied"
	}
	result.Promo = validation.Promo
	result.DiscountAmount = validation.DiscountAmount
	result.FinalTotal = models.NewMoneyFromDecimal(base.Decimal.Sub(validation.DiscountAmount.Decimal))
	return result, nil
}

func isPromoRuleError(err error) bool {
	for _, target := range []error{
		ErrPromoNotFound, ErrPromoInactive, ErrPromoNotStarted, ErrPromoExpired,
		ErrPromoNotAssigned, ErrPromoAlreadyUsed, ErrPromoInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
