package admin

import (
	"github.com/crm-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetAuthzRoles 角色列表
func (h *Handler) GetAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list roles", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRole 角色策略详情
func (h *Handler) GetAuthzRole(c *gin.Context) {
	role, err := h.AuthzService.DescribeRole(c.Param("role"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "failed to describe role", err)
		return
	}
	response.Success(c, role)
}

// AuthzPolicyRequest 授权策略请求
type AuthzPolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// GrantAuthzPolicy 为角色授予策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req AuthzPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "object and action are required", nil)
		return
	}
	added, err := h.AuthzService.GrantRolePolicy(c.Param("role"), req.Object, req.Action)
	if err != nil {
		respondError(c, response.CodeBadRequest, "failed to grant policy", err)
		return
	}
	requestLog(c).Infow("authz_policy_granted", "role", c.Param("role"), "object", req.Object, "action", req.Action, "added", added)
	response.SuccessWithMsg(c, "policy granted", gin.H{"added": added})
}
