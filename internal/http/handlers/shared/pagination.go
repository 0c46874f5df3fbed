package shared

import (
	"strconv"
	"strings"

	"github.com/crm-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ParsePagination 读取 page / pageSize 查询参数，兼容 page_size 与 limit。
func ParsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(strings.TrimSpace(c.DefaultQuery("page", "1")))
	rawSize := strings.TrimSpace(c.Query("pageSize"))
	if rawSize == "" {
		rawSize = strings.TrimSpace(c.Query("page_size"))
	}
	if rawSize == "" {
		rawSize = strings.TrimSpace(c.Query("limit"))
	}
	pageSize, _ := strconv.Atoi(rawSize)
	return NormalizePagination(page, pageSize)
}

// RespondPage 输出分页列表
func RespondPage(c *gin.Context, data interface{}, page, pageSize int, total int64) {
	response.SuccessWithPage(c, data, response.NewPagination(page, pageSize, total))
}
