package admin

import (
	"strings"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Name        string       `json:"name"`
	SKU         string       `json:"sku"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Price       models.Money `json:"price"`
	Stock       int          `json:"stock"`
	IsActive    *bool        `json:"isActive"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		SKU:         r.SKU,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Stock:       r.Stock,
		IsActive:    r.IsActive,
	}
}

// GetProducts 商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, pageSize := parsePagination(c)
	isActive, ok := handlershared.QueryBool(c, "isActive")
	if !ok {
		return
	}
	lowStock, ok := handlershared.QueryBool(c, "lowStock")
	if !ok {
		return
	}
	stockBelow, ok := handlershared.QueryInt(c, "stockBelow")
	if !ok {
		return
	}
	products, total, err := h.ProductService.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     strings.TrimSpace(c.Query("search")),
		Category:   strings.TrimSpace(c.Query("category")),
		IsActive:   isActive,
		LowStock:   lowStock != nil && *lowStock,
		StockBelow: stockBelow,
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch products")
		return
	}
	respondPage(c, products, page, pageSize, total)
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.ProductService.Get(id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch product")
		return
	}
	response.Success(c, product)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	product, err := h.ProductService.Create(req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to create product")
		return
	}
	response.Created(c, "product created", product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	product, err := h.ProductService.Update(id, req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to update product")
		return
	}
	response.SuccessWithMsg(c, "product updated", product)
}

// AdjustStockRequest 库存调整请求
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

// AdjustProductStock 调整商品库存（结果不低于 0）
func (h *Handler) AdjustProductStock(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "delta must be an integer", nil)
		return
	}
	product, err := h.ProductService.AdjustStock(id, req.Delta)
	if err != nil {
		respondServiceError(c, err, "failed to adjust stock")
		return
	}
	requestLog(c).Infow("admin_product_stock_adjusted", "product_id", id, "delta", req.Delta, "stock", product.Stock)
	response.SuccessWithMsg(c, "stock updated", product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.ProductService.Delete(id); err != nil {
		respondServiceError(c, err, "failed to delete product")
		return
	}
	response.SuccessWithMsg(c, "product deleted", nil)
}
