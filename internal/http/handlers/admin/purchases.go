package admin

import (
	"time"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePurchaseRequest 员工代客下单请求
// /purchases 与 /purchases/add-to-customer 共用
type CreatePurchaseRequest struct {
	CustomerID uint   `json:"customerId"`
	ProductID  uint   `json:"productId"`
	Quantity   int    `json:"quantity"`
	PromoID    *uint  `json:"promoId"`
	PromoCode  string `json:"promoCode"`
	Notes      string `json:"notes"`
}

// CreatePurchase 创建购买记录
func (h *Handler) CreatePurchase(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, service.ErrPurchaseInvalid.Error(), nil)
		return
	}
	result, err := h.PurchaseService.CreatePurchase(c.Request.Context(), service.CreatePurchaseInput{
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		PromoID:    req.PromoID,
		PromoCode:  req.PromoCode,
		Notes:      req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrPurchaseCreateFailed.Error())
		return
	}
	response.Created(c, "purchase created", result)
}

// GetPurchases 购买记录列表
func (h *Handler) GetPurchases(c *gin.Context) {
	page, pageSize := parsePagination(c)
	customerID, ok := handlershared.QueryUint(c, "customerId")
	if !ok {
		return
	}
	productID, ok := handlershared.QueryUint(c, "productId")
	if !ok {
		return
	}
	promoID, ok := handlershared.QueryUint(c, "promoId")
	if !ok {
		return
	}
	dateFrom, ok := handlershared.QueryTime(c, "dateFrom")
	if !ok {
		return
	}
	dateTo, ok := handlershared.QueryTime(c, "dateTo")
	if !ok {
		return
	}
	purchases, total, err := h.PurchaseService.List(repository.PurchaseListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
		ProductID:  productID,
		PromoID:    promoID,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch purchases")
		return
	}
	respondPage(c, purchases, page, pageSize, total)
}

// GetPurchase 购买记录详情
func (h *Handler) GetPurchase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	purchase, err := h.PurchaseService.Get(id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch purchase")
		return
	}
	response.Success(c, purchase)
}

// UpdatePurchaseRequest 更新购买记录请求，仅允许修改备注与购买时间
type UpdatePurchaseRequest struct {
	Notes        *string    `json:"notes"`
	PurchaseDate *time.Time `json:"purchaseDate"`
}

// UpdatePurchase 更新购买记录
func (h *Handler) UpdatePurchase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	purchase, err := h.PurchaseService.Update(id, service.UpdatePurchaseInput{
		Notes:        req.Notes,
		PurchaseDate: req.PurchaseDate,
	})
	if err != nil {
		respondServiceError(c, err, "failed to update purchase")
		return
	}
	response.SuccessWithMsg(c, "purchase updated", purchase)
}

// DeletePurchase 删除购买记录并回滚库存、客户统计与优惠核销
func (h *Handler) DeletePurchase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.PurchaseService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "failed to delete purchase")
		return
	}
	response.SuccessWithMsg(c, "purchase deleted", nil)
}
