package shared

import (
	"github.com/crm-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入上下文的键
const (
	ContextKeyAdminID    = "admin_id"
	ContextKeyRole       = "auth_role"
	ContextKeyCustomerID = "customer_id"
	ContextKeyRequestID  = "request_id"
)

// GetContextUint 从上下文读取 uint 值并统一处理错误响应。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v <= 0 {
			RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, "invalid identity in request context", nil)
		return 0, false
	}
}

// GetAdminID 当前登录员工 ID
func GetAdminID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, ContextKeyAdminID)
}

// GetCustomerID 当前登录客户 ID
func GetCustomerID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, ContextKeyCustomerID)
}
