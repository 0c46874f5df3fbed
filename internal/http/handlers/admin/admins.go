package admin

import (
	"strings"

	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdmins 员工列表（仅 super_admin）
func (h *Handler) GetAdmins(c *gin.Context) {
	page, pageSize := parsePagination(c)
	admins, total, err := h.AdminService.List(repository.AdminListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Role:     strings.TrimSpace(c.Query("role")),
	})
	if err != nil {
		respondServiceError(c, err, "failed to fetch admins")
		return
	}
	respondPage(c, admins, page, pageSize, total)
}

// GetAdmin 员工详情
func (h *Handler) GetAdmin(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	admin, err := h.AdminService.Get(id)
	if err != nil {
		respondServiceError(c, err, "failed to fetch admin")
		return
	}
	response.Success(c, admin)
}

// CreateAdminRequest 创建员工请求
type CreateAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive *bool  `json:"isActive"`
}

// CreateAdmin 创建员工
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	admin, err := h.AdminService.Create(service.CreateAdminInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err, "failed to create admin")
		return
	}
	requestLog(c).Infow("admin_account_created", "admin_id", admin.ID, "role", admin.Role)
	response.Created(c, "admin created", admin)
}

// UpdateAdminRequest 更新员工请求
type UpdateAdminRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password"`
}

// UpdateAdmin 更新员工
func (h *Handler) UpdateAdmin(c *gin.Context) {
	operatorID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	admin, err := h.AdminService.Update(operatorID, id, service.UpdateAdminInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: req.IsActive,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err, "failed to update admin")
		return
	}
	response.SuccessWithMsg(c, "admin updated", admin)
}

// DeleteAdmin 删除员工
func (h *Handler) DeleteAdmin(c *gin.Context) {
	operatorID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.AdminService.Delete(operatorID, id); err != nil {
		respondServiceError(c, err, "failed to delete admin")
		return
	}
	requestLog(c).Infow("admin_account_deleted", "admin_id", id, "operator_id", operatorID)
	response.SuccessWithMsg(c, "admin deleted", nil)
}
