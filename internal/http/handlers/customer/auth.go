package customer

import (
	"errors"
	"time"

	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 客户注册请求
type RegisterRequest struct {
	Email          string                              `json:"email" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	FirstName      string                              `json:"firstName"`
	LastName       string                              `json:"lastName"`
	Phone          string                              `json:"phone"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captchaPayload"`
}

// LoginRequest 客户登录请求
type LoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// AuthResponse 登录/注册响应
type AuthResponse struct {
	Token     string           `json:"token"`
	Customer  *models.Customer `json:"customer"`
	ExpiresAt string           `json:"expiresAt"`
}

// Register 客户注册
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "email and password are required", nil)
		return
	}
	if err := h.CaptchaService.Verify(service.CaptchaSceneCustomerRegister, req.CaptchaPayload.ToServicePayload()); err != nil {
		if errors.Is(err, service.ErrCaptchaConfigInvalid) {
			respondError(c, response.CodeInternal, "captcha is not configured", err)
			return
		}
		respondServiceError(c, err, "captcha verification failed")
		return
	}

	customer, token, expiresAt, err := h.CustomerAuthService.Register(service.RegisterCustomerInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		respondServiceError(c, err, "registration failed")
		return
	}
	response.Created(c, "registration successful", AuthResponse{
		Token:     token,
		Customer:  customer,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Login 客户登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "email and password are required", nil)
		return
	}
	customer, token, expiresAt, err := h.CustomerAuthService.Login(req.Email, req.Password, req.RememberMe)
	if err != nil {
		respondServiceError(c, err, "login failed")
		return
	}
	response.SuccessWithMsg(c, "login successful", AuthResponse{
		Token:     token,
		Customer:  customer,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// GetMe 当前客户资料
func (h *Handler) GetMe(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	customer, err := h.CustomerAuthService.GetCustomer(customerID)
	if err != nil {
		respondServiceError(c, err, "failed to load profile")
		return
	}
	response.Success(c, customer)
}

// UpdateProfileRequest 修改资料请求
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Company   *string `json:"company"`
}

// UpdateMe 修改当前客户资料
func (h *Handler) UpdateMe(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	customer, err := h.CustomerAuthService.UpdateProfile(customerID, service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Company:   req.Company,
	})
	if err != nil {
		respondServiceError(c, err, "failed to update profile")
		return
	}
	response.SuccessWithMsg(c, "profile updated", customer)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// ChangePassword 修改当前客户密码
func (h *Handler) ChangePassword(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "oldPassword and newPassword are required", nil)
		return
	}
	if err := h.CustomerAuthService.ChangePassword(customerID, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err, "failed to change password")
		return
	}
	response.SuccessWithMsg(c, "password updated", nil)
}
