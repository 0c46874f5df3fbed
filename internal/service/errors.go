package service

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidPassword    = errors.New("current password is incorrect")
	ErrWeakPassword       = errors.New("password does not meet the policy")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// 员工相关错误
var (
	ErrAdminNotFound       = errors.New("admin not found")
	ErrAdminUsernameTaken  = errors.New("username is already taken")
	ErrAdminRoleInvalid    = errors.New("role must be admin or super_admin")
	ErrAdminSelfDelete     = errors.New("you cannot delete your own account")
	ErrLastSuperAdmin      = errors.New("at least one active super_admin must remain")
	ErrAdminUsernameNeeded = errors.New("username is required")
)

// 客户相关错误
var (
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrCustomerEmailTaken   = errors.New("a customer with this email already exists")
	ErrCustomerInvalid      = errors.New("first name and a valid email are required")
	ErrCustomerStatusBad    = errors.New("status must be active or inactive")
	ErrCustomerLoginBlocked = errors.New("customer account cannot sign in")
)

// 商品相关错误
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInvalid    = errors.New("product name is required and price/stock must not be negative")
	ErrProductSKUTaken   = errors.New("a product with this sku already exists")
	ErrProductInactive   = errors.New("product is not available")
	ErrInsufficientStock = errors.New("not enough stock")
)

// 优惠相关错误
var (
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoInactive    = errors.New("promo is not active")
	ErrPromoNotStarted  = errors.New("promo has not started yet")
	ErrPromoExpired     = errors.New("promo has expired")
	ErrPromoNotAssigned = errors.New("promo is not assigned to this customer")
	ErrPromoAlreadyUsed = errors.New("promo has already been used")
	ErrPromoInvalid     = errors.New("promo is invalid")
	ErrPromoNameTaken   = errors.New("a promo with this name already exists")
	ErrPromoDateRange   = errors.New("promo end date must not be before start date")
)

// 购买相关错误
var (
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrPurchaseInvalid      = errors.New("customerId, productId and quantity must be positive integers")
	ErrPurchaseCreateFailed = errors.New("failed to create purchase")
)

// 任务相关错误
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskInvalid       = errors.New("task title is required")
	ErrTaskStatusInvalid = errors.New("invalid task status")
	ErrPriorityInvalid   = errors.New("priority must be low, medium or high")
	ErrAssigneeNotFound  = errors.New("assigned admin not found")
)

// 工单相关错误
var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketInvalid       = errors.New("ticket subject is required")
	ErrTicketStatusInvalid = errors.New("invalid ticket status")
	ErrTicketClosed        = errors.New("ticket is closed")
	ErrTicketMessageEmpty  = errors.New("message is required")
)

// 验证码与邮件错误
var (
	ErrCaptchaRequired           = errors.New("captcha is required")
	ErrCaptchaInvalid            = errors.New("captcha is incorrect")
	ErrCaptchaConfigInvalid      = errors.New("captcha is not configured")
	ErrEmailServiceDisabled      = errors.New("email service is disabled")
	ErrEmailServiceNotConfigured = errors.New("email service is not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient was rejected")
)

// StockShortageError 库存不足，携带请求数量与可用数量
type StockShortageError struct {
	Requested int
	Available int
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("not enough stock: requested %d, available %d", e.Requested, e.Available)
}

// Is 使 errors.Is(err, ErrInsufficientStock) 成立
func (e *StockShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}
