package customer

import (
	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 客户自助接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建客户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondServiceError(c, err, fallbackMsg)
}

func getCustomerID(c *gin.Context) (uint, bool) {
	return handlershared.GetCustomerID(c)
}
