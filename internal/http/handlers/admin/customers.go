package admin

import (
	"strings"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CustomerRequest 创建/更新客户请求
type CustomerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Company   string `json:"company"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
	Password  string `json:"password"`
}

func (r CustomerRequest) toInput() service.CustomerInput {
	return service.CustomerInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		Company:   r.Company,
		Notes:     r.Notes,
		Status:    r.Status,
		Password:  r.Password,
	}
}

// GetCustomers 客户列表
func (h *Handler) GetCustomers(c *gin.Context) {
	page, pageSize := parsePagination(c)
	customers, total, err := h.CustomerService.List(repository.CustomerListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   strings.TrimSpace(c.Query("status")),
		Company:  strings.TrimSpace(c.Query("company")),
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch customers")
		return
	}
	respondPage(c, customers, page, pageSize, total)
}

// GetCustomer 客户详情（含最近购买与优惠）
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.CustomerService.GetDetail(id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch customer")
		return
	}
	response.Success(c, detail)
}

// CreateCustomer 创建客户
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	customer, err := h.CustomerService.Create(req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to create customer")
		return
	}
	requestLog(c).Infow("admin_customer_created", "customer_id", customer.ID)
	response.Created(c, "customer created", customer)
}

// UpdateCustomer 更新客户
func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	customer, err := h.CustomerService.Update(id, req.toInput())
	if err != nil {
		respondServiceError(c, err, "failed to update customer")
		return
	}
	response.SuccessWithMsg(c, "customer updated", customer)
}

// DeleteCustomer 删除客户（软删除）
func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.CustomerService.Delete(id); err != nil {
		respondServiceError(c, err, "failed to delete customer")
		return
	}
	requestLog(c).Infow("admin_customer_deleted", "customer_id", id)
	response.SuccessWithMsg(c, "customer deleted", nil)
}

// GetCustomerPurchases 客户购买记录
func (h *Handler) GetCustomerPurchases(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	purchases, total, err := h.CustomerService.ListPurchases(id, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "failed to fetch purchases")
		return
	}
	respondPage(c, purchases, page, pageSize, total)
}

// GetCustomerPromos 客户已发放优惠
func (h *Handler) GetCustomerPromos(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	isUsed, ok := handlershared.QueryBool(c, "isUsed")
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	promos, total, err := h.CustomerService.ListPromos(id, isUsed, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "failed to fetch promos")
		return
	}
	respondPage(c, promos, page, pageSize, total)
}
