package admin

import (
	handlershared "github.com/crm-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondServiceError(c, err, fallbackMsg)
}

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetAdminID(c)
}

func parseID(c *gin.Context) (uint, bool) {
	return handlershared.ParseIDParam(c, "id")
}

func parsePagination(c *gin.Context) (int, int) {
	return handlershared.ParsePagination(c)
}

func respondPage(c *gin.Context, data interface{}, page, pageSize int, total int64) {
	handlershared.RespondPage(c, data, page, pageSize, total)
}
