package admin

import (
	"strings"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetTickets 工单列表
func (h *Handler) GetTickets(c *gin.Context) {
	page, pageSize := parsePagination(c)
	customerID, ok := handlershared.QueryUint(c, "customerId")
	if !ok {
		return
	}
	assignee, ok := handlershared.QueryUint(c, "assignedAdminId")
	if !ok {
		return
	}
	tickets, total, err := h.TicketService.List(repository.TicketListFilter{
		Page:            page,
		PageSize:        pageSize,
		Search:          strings.TrimSpace(c.Query("search")),
		Status:          strings.TrimSpace(c.Query("status")),
		Priority:        strings.TrimSpace(c.Query("priority")),
		CustomerID:      customerID,
		AssignedAdminID: assignee,
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch tickets")
		return
	}
	respondPage(c, tickets, page, pageSize, total)
}

// GetTicket 工单详情（含会话）
func (h *Handler) GetTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ticket, err := h.TicketService.Get(id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch ticket")
		return
	}
	response.Success(c, ticket)
}

// UpdateTicketRequest 工单处理请求
type UpdateTicketRequest struct {
	Status          *string `json:"status"`
	Priority        *string `json:"priority"`
	AssignedAdminID *uint   `json:"assignedAdminId"`
}

// UpdateTicket 修改工单状态、优先级与处理人
func (h *Handler) UpdateTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	ticket, err := h.TicketService.Update(id, service.UpdateTicketInput{
		Status:          req.Status,
		Priority:        req.Priority,
		AssignedAdminID: req.AssignedAdminID,
	})
	if err != nil {
		respondServiceError(c, err, "failed to update ticket")
		return
	}
	response.SuccessWithMsg(c, "ticket updated", ticket)
}

// TicketReplyRequest 工单回复请求
type TicketReplyRequest struct {
	Message string `json:"message"`
}

// ReplyTicket 员工回复工单
func (h *Handler) ReplyTicket(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req TicketReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	msg, err := h.TicketService.ReplyAsAdmin(c.Request.Context(), adminID, id, req.Message)
	if err != nil {
		respondServiceError(c, err, "failed to reply ticket")
		return
	}
	response.Created(c, "reply sent", msg)
}
