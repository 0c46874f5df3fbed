package admin

import (
	"errors"
	"time"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username       string                              `json:"username" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captchaPayload"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string        `json:"token"`
	Admin     *models.Admin `json:"admin"`
	ExpiresAt string        `json:"expiresAt"`
}

// AdminLogin 员工登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "username and password are required", nil)
		return
	}

	if err := h.CaptchaService.Verify(service.CaptchaSceneAdminLogin, req.CaptchaPayload.ToServicePayload()); err != nil {
		if errors.Is(err, service.ErrCaptchaConfigInvalid) {
			respondError(c, response.CodeInternal, "captcha is not configured", err)
			return
		}
		respondServiceError(c, err, "captcha verification failed")
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err, "login failed")
		return
	}
	response.SuccessWithMsg(c, "login successful", LoginResponse{
		Token:     token,
		Admin:     admin,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// GetCaptcha 获取图片验证码
func (h *Handler) GetCaptcha(c *gin.Context) {
	if h.CaptchaService.Provider() != "image" {
		response.Success(c, gin.H{"provider": h.CaptchaService.Provider()})
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondError(c, response.CodeInternal, "failed to generate captcha", err)
		return
	}
	response.Success(c, gin.H{
		"provider":    h.CaptchaService.Provider(),
		"captchaId":   challenge.CaptchaID,
		"imageBase64": challenge.ImageBase64,
	})
}

// GetAdminMe 当前员工信息
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AuthService.GetAdmin(adminID)
	if err != nil {
		respondServiceError(c, err, "failed to load profile")
		return
	}
	response.Success(c, admin)
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UpdateAdminPassword 修改员工密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "oldPassword and newPassword are required", nil)
		return
	}

	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err, "failed to change password")
		return
	}
	response.SuccessWithMsg(c, "password updated", nil)
}
