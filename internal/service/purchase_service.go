package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/queue"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/tracing"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// PurchaseService 购买记录服务
type PurchaseService struct {
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	purchaseRepo repository.PurchaseRepository
	assignRepo   repository.CustomerPromoRepository
	promoService *PromoService
	queueClient  *queue.Client
	now          func() time.Time
}

// PurchaseServiceOptions 购买服务依赖
type PurchaseServiceOptions struct {
	CustomerRepo repository.CustomerRepository
	ProductRepo  repository.ProductRepository
	PurchaseRepo repository.PurchaseRepository
	AssignRepo   repository.CustomerPromoRepository
	PromoService *PromoService
	QueueClient  *queue.Client
}

// NewPurchaseService 创建购买服务
func NewPurchaseService(opts PurchaseServiceOptions) *PurchaseService {
	return &PurchaseService{
		customerRepo: opts.CustomerRepo,
		productRepo:  opts.ProductRepo,
		purchaseRepo: opts.PurchaseRepo,
		assignRepo:   opts.AssignRepo,
		promoService: opts.PromoService,
		queueClient:  opts.QueueClient,
		now:          time.Now,
	}
}

// CreatePurchaseInput 创建购买参数
type CreatePurchaseInput struct {
	CustomerID uint
	ProductID  uint
	Quantity   int
	PromoID    *uint
	PromoCode  string
	Notes      string
	// RequireActiveProduct 客户自助下单时只允许购买上架商品
	RequireActiveProduct bool
}

// AppliedPromo 已使用的优惠摘要
type AppliedPromo struct {
	ID             uint         `json:"id"`
	Name           string       `json:"name"`
	Type           string       `json:"type"`
	Value          models.Money `json:"value"`
	DiscountAmount models.Money `json:"discountAmount"`
}

// PurchaseResult 创建购买的返回结果
type PurchaseResult struct {
	Purchase     *models.Purchase `json:"purchase"`
	Customer     *models.Customer `json:"customer"`
	Product      *models.Product  `json:"product"`
	AppliedPromo *AppliedPromo    `json:"appliedPromo,omitempty"`
}

// UpdatePurchaseInput 购买记录可修改字段
type UpdatePurchaseInput struct {
	Notes        *string
	PurchaseDate *time.Time
}

// CreatePurchase 在单个事务内完成下单、扣库存、累计消费与优惠核销
func (s *PurchaseService) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (*PurchaseResult, error) {
	if input.CustomerID == 0 || input.ProductID == 0 || input.Quantity <= 0 {
		return nil, ErrPurchaseInvalid
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(ctx, "purchase.create", trace.WithAttributes(
		attribute.Int64("crm.customer_id", int64(input.CustomerID)),
		attribute.Int64("crm.product_id", int64(input.ProductID)),
		attribute.Int("crm.quantity", input.Quantity),
		attribute.Bool("crm.promo_requested", hasPromoRequest(input)),
	))
	defer span.End()

	var result *PurchaseResult
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customerRepo := s.customerRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		purchaseRepo := s.purchaseRepo.WithTx(tx)
		assignRepo := s.assignRepo.WithTx(tx)

		customer, err := customerRepo.GetByID(input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		product, err := productRepo.GetByID(input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if input.RequireActiveProduct && !product.IsActive {
			return ErrProductInactive
		}
		if product.Stock < input.Quantity {
			return &StockShortageError{Requested: input.Quantity, Available: product.Stock}
		}

		base := product.Price.Decimal.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2)
		validation, err := s.promoService.WithTx(tx).ValidateAndCalculate(
			input.PromoID, input.PromoCode, customer.ID, models.NewMoneyFromDecimal(base),
		)
		if err != nil {
			return err
		}
		discount := validation.DiscountAmount.Decimal
		final := base.Sub(discount)

		now := s.now()
		purchase := &models.Purchase{
			CustomerID:     customer.ID,
			ProductID:      product.ID,
			Quantity:       input.Quantity,
			Price:          product.Price,
			DiscountAmount: models.NewMoneyFromDecimal(discount),
			TotalAmount:    models.NewMoneyFromDecimal(final),
			PurchaseDate:   now,
			Notes:          strings.TrimSpace(input.Notes),
		}
		if validation.Promo != nil {
			promoID := validation.Promo.ID
			purchase.PromoID = &promoID
		}
		if err := purchaseRepo.Create(purchase); err != nil {
			return err
		}

		affected, err := productRepo.DecrementStock(product.ID, input.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			available := 0
			if current, getErr := productRepo.GetByID(product.ID); getErr == nil && current != nil {
				available = current.Stock
			}
			return &StockShortageError{Requested: input.Quantity, Available: available}
		}

		affected, err = customerRepo.ApplyPurchaseTotals(customer.ID, purchase.TotalAmount, 1)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCustomerNotFound
		}

		var applied *AppliedPromo
		if validation.CustomerPromo != nil {
			affected, err = assignRepo.MarkUsed(validation.CustomerPromo.ID, purchase.ID, now)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrPromoAlreadyUsed
			}
			applied = &AppliedPromo{
				ID:             validation.Promo.ID,
				Name:           validation.Promo.Name,
				Type:           validation.Promo.Type,
				Value:          validation.Promo.Value,
				DiscountAmount: validation.DiscountAmount,
			}
		}

		updatedCustomer, err := customerRepo.GetByID(customer.ID)
		if err != nil {
			return err
		}
		updatedProduct, err := productRepo.GetByID(product.ID)
		if err != nil {
			return err
		}
		result = &PurchaseResult{
			Purchase:     purchase,
			Customer:     updatedCustomer,
			Product:      updatedProduct,
			AppliedPromo: applied,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isPurchaseBusinessError(err) {
			logger.Ctx(ctx).Infow("purchase_create_rejected",
				"customer_id", input.CustomerID,
				"product_id", input.ProductID,
				"quantity", input.Quantity,
				"reason", err.Error(),
			)
			return nil, err
		}
		logger.Ctx(ctx).Errorw("purchase_create_failed",
			"customer_id", input.CustomerID,
			"product_id", input.ProductID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrPurchaseCreateFailed, err)
	}

	span.SetAttributes(
		attribute.Int64("crm.purchase_id", int64(result.Purchase.ID)),
		attribute.String("crm.total_amount", result.Purchase.TotalAmount.String()),
	)
	logger.Ctx(ctx).Infow("purchase_created",
		"purchase_id", result.Purchase.ID,
		"customer_id", result.Purchase.CustomerID,
		"product_id", result.Purchase.ProductID,
		"quantity", result.Purchase.Quantity,
		"discount_amount", result.Purchase.DiscountAmount.String(),
		"total_amount", result.Purchase.TotalAmount.String(),
	)
	if err := s.queueClient.EnqueuePurchaseReceipt(queue.PurchaseReceiptPayload{PurchaseID: result.Purchase.ID}); err != nil {
		logger.Ctx(ctx).Warnw("purchase_receipt_enqueue_failed", "purchase_id", result.Purchase.ID, "error", err)
	}
	return result, nil
}

// List 购买记录列表
func (s *PurchaseService) List(filter repository.PurchaseListFilter) ([]models.Purchase, int64, error) {
	return s.purchaseRepo.List(filter)
}

// Get 获取购买记录
func (s *PurchaseService) Get(id uint) (*models.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	return purchase, nil
}

// GetForCustomer 获取客户自己的购买记录
func (s *PurchaseService) GetForCustomer(customerID, id uint) (*models.Purchase, error) {
	purchase, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if purchase.CustomerID != customerID {
		return nil, ErrPurchaseNotFound
	}
	return purchase, nil
}

// Update 修改购买备注与购买日期，金额与数量不可修改
func (s *PurchaseService) Update(id uint, input UpdatePurchaseInput) (*models.Purchase, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	if input.Notes == nil && input.PurchaseDate == nil {
		return nil, ErrInvalidInput
	}
	if input.Notes != nil {
		trimmed := strings.TrimSpace(*input.Notes)
		input.Notes = &trimmed
	}
	if err := s.purchaseRepo.UpdateDetails(id, input.Notes, input.PurchaseDate); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete 删除购买记录并回滚库存、消费统计与优惠核销
func (s *PurchaseService) Delete(ctx context.Context, id uint) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var purchase *models.Purchase
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchaseRepo := s.purchaseRepo.WithTx(tx)
		loaded, err := purchaseRepo.GetByID(id)
		if err != nil {
			return err
		}
		if loaded == nil {
			return ErrPurchaseNotFound
		}
		// 先删除再回滚副作用，并发删除时只有删除成功的一方会继续
		deleted, err := purchaseRepo.Delete(loaded.ID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrPurchaseNotFound
		}
		if _, err := s.productRepo.WithTx(tx).IncrementStock(loaded.ProductID, loaded.Quantity); err != nil {
			return err
		}
		negative := models.NewMoneyFromDecimal(loaded.TotalAmount.Decimal.Neg())
		if _, err := s.customerRepo.WithTx(tx).ApplyPurchaseTotals(loaded.CustomerID, negative, -1); err != nil {
			return err
		}
		if loaded.PromoID != nil {
			if _, err := s.assignRepo.WithTx(tx).ReopenByPurchase(loaded.ID); err != nil {
				return err
			}
		}
		purchase = loaded
		return nil
	})
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Infow("purchase_deleted",
		"purchase_id", purchase.ID,
		"customer_id", purchase.CustomerID,
		"product_id", purchase.ProductID,
		"quantity", purchase.Quantity,
		"total_amount", purchase.TotalAmount.String(),
	)
	return nil
}

func hasPromoRequest(input CreatePurchaseInput) bool {
	return (input.PromoID != nil && *input.PromoID != 0) || strings.TrimSpace(input.PromoCode) != ""
}

func isPurchaseBusinessError(err error) bool {
	for _, target := range []error{
		ErrCustomerNotFound,
		ErrProductNotFound,
		ErrProductInactive,
		ErrInsufficientStock,
		ErrPromoNotFound,
		ErrPromoInactive,
		ErrPromoNotStarted,
		ErrPromoExpired,
		ErrPromoNotAssigned,
		ErrPromoAlreadyUsed,
		ErrPromoInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
