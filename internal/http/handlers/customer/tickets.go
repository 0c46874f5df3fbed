package customer

import (
	"strings"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateTicketRequest 提交工单请求
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// CreateTicket 提交工单
func (h *Handler) CreateTicket(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	ticket, err := h.TicketService.CreateForCustomer(customerID, service.CreateTicketInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		respondServiceError(c, err, "failed to create ticket")
		return
	}
	response.Created(c, "ticket created", ticket)
}

// GetTickets 当前客户的工单
func (h *Handler) GetTickets(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	tickets, total, err := h.TicketService.ListForCustomer(customerID, repository.TicketListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch tickets")
		return
	}
	handlershared.RespondPage(c, tickets, page, pageSize, total)
}

// GetTicket 当前客户的工单详情
func (h *Handler) GetTicket(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	ticket, err := h.TicketService.GetForCustomer(customerID, id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch ticket")
		return
	}
	response.Success(c, ticket)
}

// ReplyTicketRequest 客户回复请求
type ReplyTicketRequest struct {
	Message string `json:"message"`
}

// ReplyTicket 客户回复自己的工单
func (h *Handler) ReplyTicket(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReplyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	msg, err := h.TicketService.ReplyAsCustomer(customerID, id, req.Message)
	if err != nil {
		respondServiceError(c, err, "failed to reply ticket")
		return
	}
	response.Created(c, "reply sent", msg)
}
