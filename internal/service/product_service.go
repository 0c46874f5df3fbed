package service

import (
	"strings"

	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	Name        string
	SKU         string
	Description string
	Category    string
	Price       models.Money
	Stock       int
	IsActive    *bool
}

// List 商品列表
func (s *ProductService) List(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.repo.List(filter)
}

// Get 获取商品
func (s *ProductService) Get(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	product := &models.Product{IsActive: true}
	if err := s.apply(product, input, 0); err != nil {
		return nil, err
	}
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(product, input, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// AdjustStock 按增量调整库存，结果不低于 0
func (s *ProductService) AdjustStock(id uint, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, ErrInvalidInput
	}
	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.AdjustStock(id, delta); err != nil {
		return nil, err
	}
	updated, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	logger.Infow("product_stock_adjusted",
		"product_id", id,
		"delta", delta,
		"before", product.Stock,
		"after", updated.Stock,
	)
	return updated, nil
}

// Delete 删除商品（软删除），历史购买记录保留商品快照
func (s *ProductService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

func (s *ProductService) apply(product *models.Product, input ProductInput, excludeID uint) error {
	name := strings.TrimSpace(input.Name)
	price := input.Price.Decimal.Round(2)
	if name == "" || price.IsNegative() || input.Stock < 0 {
		return ErrProductInvalid
	}

	var sku *string
	if trimmed := strings.TrimSpace(input.SKU); trimmed != "" {
		count, err := s.repo.CountBySKU(trimmed, excludeID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrProductSKUTaken
		}
		sku = &trimmed
	}

	product.Name = name
	product.SKU = sku
	product.Description = strings.TrimSpace(input.Description)
	product.Category = strings.TrimSpace(input.Category)
	product.Price = models.NewMoneyFromDecimal(price)
	product.Stock = input.Stock
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	return nil
}
