package shared

import (
	"errors"

	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get(ContextKeyRequestID); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondErrorWithCause 返回错误响应，并把原始错误写入 error 字段用于排查。
func RespondErrorWithCause(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	appErr.Expose = true
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.ErrorWithDetail(c, appErr.Code, appErr.Message, appErr.Detail())
}

type errorStatus struct {
	target error
	code   int
}

// 业务错误到 HTTP 状态码的映射，按顺序匹配
var serviceErrorStatuses = []errorStatus{
	{service.ErrInvalidCredentials, response.CodeUnauthorized},
	{service.ErrAccountDisabled, response.CodeForbidden},
	{service.ErrCustomerLoginBlocked, response.CodeForbidden},
	{service.ErrAdminSelfDelete, response.CodeForbidden},

	{service.ErrNotFound, response.CodeNotFound},
	{service.ErrAdminNotFound, response.CodeNotFound},
	{service.ErrCustomerNotFound, response.CodeNotFound},
	{service.ErrProductNotFound, response.CodeNotFound},
	{service.ErrPromoNotFound, response.CodeNotFound},
	{service.ErrPurchaseNotFound, response.CodeNotFound},
	{service.ErrTaskNotFound, response.CodeNotFound},
	{service.ErrTicketNotFound, response.CodeNotFound},

	{service.ErrAdminUsernameTaken, response.CodeConflict},
	{service.ErrCustomerEmailTaken, response.CodeConflict},
	{service.ErrProductSKUTaken, response.CodeConflict},
	{service.ErrPromoNameTaken, response.CodeConflict},
	{service.ErrPromoAlreadyUsed, response.CodeConflict},
	{service.ErrInsufficientStock, response.CodeConflict},
	{service.ErrLastSuperAdmin, response.CodeConflict},
	{service.ErrTicketClosed, response.CodeConflict},

	{service.ErrInvalidInput, response.CodeBadRequest},
	{service.ErrInvalidPassword, response.CodeBadRequest},
	{service.ErrWeakPassword, response.CodeBadRequest},
	{service.ErrAdminRoleInvalid, response.CodeBadRequest},
	{service.ErrAdminUsernameNeeded, response.CodeBadRequest},
	{service.ErrCustomerInvalid, response.CodeBadRequest},
	{service.ErrCustomerStatusBad, response.CodeBadRequest},
	{service.ErrProductInvalid, response.CodeBadRequest},
	{service.ErrProductInactive, response.CodeBadRequest},
	{service.ErrPromoInactive, response.CodeBadRequest},
	{service.ErrPromoNotStarted, response.CodeBadRequest},
	{service.ErrPromoExpired, response.CodeBadRequest},
	{service.ErrPromoNotAssigned, response.CodeBadRequest},
	{service.ErrPromoInvalid, response.CodeBadRequest},
	{service.ErrPromoDateRange, response.CodeBadRequest},
	{service.ErrPurchaseInvalid, response.CodeBadRequest},
	{service.ErrTaskInvalid, response.CodeBadRequest},
	{service.ErrTaskStatusInvalid, response.CodeBadRequest},
	{service.ErrPriorityInvalid, response.CodeBadRequest},
	{service.ErrAssigneeNotFound, response.CodeBadRequest},
	{service.ErrTicketInvalid, response.CodeBadRequest},
	{service.ErrTicketStatusInvalid, response.CodeBadRequest},
	{service.ErrTicketMessageEmpty, response.CodeBadRequest},
	{service.ErrCaptchaRequired, response.CodeBadRequest},
	{service.ErrCaptchaInvalid, response.CodeBadRequest},
	{service.ErrInvalidEmail, response.CodeBadRequest},
}

// ServiceErrorStatus 返回业务错误对应的状态码，未知错误返回 false。
func ServiceErrorStatus(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	for _, item := range serviceErrorStatuses {
		if errors.Is(err, item.target) {
			return item.code, true
		}
	}
	return 0, false
}

// RespondServiceError 按业务错误类型输出响应；未知错误按 500 返回并附带原因。
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	if errors.Is(err, service.ErrPurchaseCreateFailed) {
		RespondErrorWithCause(c, response.CodeInternal, service.ErrPurchaseCreateFailed.Error(), failureCause(err, service.ErrPurchaseCreateFailed))
		return
	}
	if code, ok := ServiceErrorStatus(err); ok {
		response.Error(c, code, err.Error())
		return
	}
	RespondErrorWithCause(c, response.CodeInternal, fallbackMsg, err)
}

// failureCause 从 "%w: %w" 形式的包装错误中取出除 sentinel 之外的原始原因
func failureCause(err, sentinel error) error {
	multi, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return err
	}
	for _, inner := range multi.Unwrap() {
		if inner != sentinel {
			return inner
		}
	}
	return err
}
