package admin

import (
	handlershared "github.com/crm-next/internal/http/handlers/shared"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
)

func parseAnalyticsQuery(c *gin.Context) (service.AnalyticsQuery, bool) {
	from, ok := handlershared.QueryTime(c, "from")
	if !ok {
		return service.AnalyticsQuery{}, false
	}
	to, ok := handlershared.QueryTime(c, "to")
	if !ok {
		return service.AnalyticsQuery{}, false
	}
	days, ok := handlershared.QueryInt(c, "days")
	if !ok {
		return service.AnalyticsQuery{}, false
	}
	limit, ok := handlershared.QueryInt(c, "limit")
	if !ok {
		return service.AnalyticsQuery{}, false
	}
	return service.AnalyticsQuery{From: from, To: to, Days: days, Limit: limit}, true
}

// GetAnalyticsOverview 经营总览
func (h *Handler) GetAnalyticsOverview(c *gin.Context) {
	query, ok := parseAnalyticsQuery(c)
	if !ok {
		return
	}
	overview, err := h.AnalyticsService.GetOverview(query)
	if err != nil {
		respondServiceError(c, err, "failed to load overview")
		return
	}
	response.Success(c, overview)
}

// GetSalesTrend 按天销售趋势
func (h *Handler) GetSalesTrend(c *gin.Context) {
	query, ok := parseAnalyticsQuery(c)
	if !ok {
		return
	}
	trend, err := h.AnalyticsService.GetSalesTrend(query)
	if err != nil {
		respondServiceError(c, err, "failed to load sales trend")
		return
	}
	response.Success(c, trend)
}

// GetTopProducts 商品销售排行
func (h *Handler) GetTopProducts(c *gin.Context) {
	query, ok := parseAnalyticsQuery(c)
	if !ok {
		return
	}
	items, err := h.AnalyticsService.GetTopProducts(query)
	if err != nil {
		respondServiceError(c, err, "failed to load top products")
		return
	}
	response.Success(c, items)
}

// GetTopCustomers 客户消费排行
func (h *Handler) GetTopCustomers(c *gin.Context) {
	query, ok := parseAnalyticsQuery(c)
	if !ok {
		return
	}
	items, err := h.AnalyticsService.GetTopCustomers(query)
	if err != nil {
		respondServiceError(c, err, "failed to load top customers")
		return
	}
	response.Success(c, items)
}

// GetPromoUsage 优惠使用情况
func (h *Handler) GetPromoUsage(c *gin.Context) {
	limit, ok := handlershared.QueryInt(c, "limit")
	if !ok {
		return
	}
	items, err := h.AnalyticsService.GetPromoUsage(limit)
	if err != nil {
		respondServiceError(c, err, "failed to load promo usage")
		return
	}
	response.Success(c, items)
}
