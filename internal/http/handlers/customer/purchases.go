package customer

import (
	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 客户自助下单请求，客户 ID 取自登录态
type CheckoutRequest struct {
	ProductID uint   `json:"productId"`
	Quantity  int    `json:"quantity"`
	PromoID   *uint  `json:"promoId"`
	PromoCode string `json:"promoCode"`
	Notes     string `json:"notes"`
}

// CreatePurchase 客户自助下单
func (h *Handler) CreatePurchase(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, service.ErrPurchaseInvalid.Error(), nil)
		return
	}
	result, err := h.PurchaseService.CreatePurchase(c.Request.Context(), service.CreatePurchaseInput{
		CustomerID:           customerID,
		ProductID:            req.ProductID,
		Quantity:             req.Quantity,
		PromoID:              req.PromoID,
		PromoCode:            req.PromoCode,
		Notes:                req.Notes,
		RequireActiveProduct: true,
	})
	if err != nil {
		respondServiceError(c, err, service.ErrPurchaseCreateFailed.Error())
		return
	}
	response.Created(c, "purchase created", result)
}

// GetPurchases 当前客户的购买记录
func (h *Handler) GetPurchases(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	purchases, total, err := h.CustomerService.ListPurchases(customerID, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "failed to fetch purchases")
		return
	}
	handlershared.RespondPage(c, purchases, page, pageSize, total)
}

// GetPurchase 当前客户的购买记录详情
func (h *Handler) GetPurchase(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	purchase, err := h.PurchaseService.GetForCustomer(customerID, id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch purchase")
		return
	}
	response.Success(c, purchase)
}

// GetPromos 当前客户可用及已用的优惠
func (h *Handler) GetPromos(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	isUsed, ok := handlershared.QueryBool(c, "isUsed")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	promos, total, err := h.CustomerService.ListPromos(customerID, isUsed, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "failed to fetch promos")
		return
	}
	handlershared.RespondPage(c, promos, page, pageSize, total)
}

// ValidatePromoRequest 优惠预览请求
type ValidatePromoRequest struct {
	PromoID   *uint         `json:"promoId"`
	PromoCode string        `json:"promoCode"`
	ProductID uint          `json:"productId"`
	Quantity  int           `json:"quantity"`
	Amount    *models.Money `json:"amount"`
}

// ValidatePromo 只读预览当前客户的优惠折扣
func (h *Handler) ValidatePromo(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	preview, err := h.PromoService.Preview(service.PromoPreviewInput{
		CustomerID: customerID,
		PromoID:    req.PromoID,
		PromoCode:  req.PromoCode,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		Amount:     req.Amount,
	})
	if err != nil {
		respondServiceError(c, err, "failed to validate promo")
		return
	}
	response.SuccessWithMsg(c, preview.Message, preview)
}
