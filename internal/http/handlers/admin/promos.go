package admin

import (
	"strings"
	"time"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PromoRequest 创建/更新优惠请求
type PromoRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	Value       models.Money `json:"value"`
	StartDate   *time.Time   `json:"startDate"`
	EndDate     *time.Time   `json:"endDate"`
	IsActive    *bool        `json:"isActive"`
}

func (r PromoRequest) toInput() service.PromoInput {
	return service.PromoInput{
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Value:       r.Value,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		IsActive:    r.IsActive,
	}
}

// GetPromos 优惠列表
func (h *Handler) GetPromos(c *gin.Context) {
	page, pageSize := parsePagination(c)
	isActive, ok := handlershared.QueryBool(c, "isActive")
	if !ok {
		return
	}
	validAt, ok := handlershared.QueryTime(c, "validAt")
	if !ok {
		return
	}
	promos, total, err := h.PromoAdminService.List(repository.PromoListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Type:     strings.TrimSpace(c.Query("type")),
		IsActive: isActive,
		ValidAt:  validAt,
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch promos")
		return
	}
	respondPage(c, promos, page, pageSize, total)
}

// GetPromo 优惠详情
func (h *Handler) GetPromo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	promo, err := h.PromoAdminService.Get(id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch promo")
		return
	}
	response.Success(c, promo)
}

// CreatePromo 创建优惠
func (h *Handler) CreatePromo(c *gin.Context) {
	var req PromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	promo, err := h.PromoAdminService.Create(req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to create promo")
		return
	}
	requestLog(c).Infow("admin_promo_created", "promo_id", promo.ID, "name", promo.Name)
	response.Created(c, "promo created", promo)
}

// UpdatePromo 更新优惠
func (h *Handler) UpdatePromo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req PromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	promo, err := h.PromoAdminService.Update(id, req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to update promo")
		return
	}
	response.SuccessWithMsg(c, "promo updated", promo)
}

// DeletePromo 删除优惠
func (h *Handler) DeletePromo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.PromoAdminService.Delete(id); err != nil {
		respondServiceError(c, err, "failed to delete promo")
		return
	}
	response.SuccessWithMsg(c, "promo deleted", nil)
}

// AssignPromoRequest 发放优惠请求
type AssignPromoRequest struct {
	CustomerIDs []uint `json:"customerIds" binding:"required"`
}

// AssignPromo 发放优惠给客户
func (h *Handler) AssignPromo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AssignPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "customerIds is required", nil)
		return
	}
	result, err := h.PromoAdminService.Assign(id, req.CustomerIDs)
	if err != nil {
		respondServiceError(c, err, "failed to assign promo")
		return
	}
	response.SuccessWithMsg(c, "promo assigned", result)
}

// UnassignPromo 取消发放
func (h *Handler) UnassignPromo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	customerID, ok := handlershared.ParseIDParam(c, "customerId")
	if !ok {
		return
	}
	if err := h.PromoAdminService.Unassign(id, customerID); err != nil {
		respondServiceError(c, err, "failed to unassign promo")
		return
	}
	response.SuccessWithMsg(c, "promo unassigned", nil)
}

// GetPromoAssignments 优惠发放记录
func (h *Handler) GetPromoAssignments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	isUsed, ok := handlershared.QueryBool(c, "isUsed")
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	items, total, err := h.PromoAdminService.ListAssignments(repository.CustomerPromoListFilter{
		Page:     page,
		PageSize: pageSize,
		PromoID:  id,
		IsUsed:   isUsed,
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch assignments")
		return
	}
	respondPage(c, items, page, pageSize, total)
}

// ValidatePromoRequest 优惠预览请求
type ValidatePromoRequest struct {
	CustomerID uint          `json:"customerId"`
	PromoID    *uint         `json:"promoId"`
	PromoCode  string        `json:"promoCode"`
	ProductID  uint          `json:"productId"`
	Quantity   int           `json:"quantity"`
	Amount     *models.Money `json:"amount"`
}

// ValidatePromo 只读预览优惠折扣
func (h *Handler) ValidatePromo(c *gin.Context) {
	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	preview, err := h.PromoService.Preview(service.PromoPreviewInput{
		CustomerID: req.CustomerID,
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
