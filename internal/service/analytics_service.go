package service

import (
	"fmt"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/repository"
)

// AnalyticsService 经营分析服务，每次请求实时聚合
type AnalyticsService struct {
	repo repository.AnalyticsRepository
	now  func() time.Time
}

// NewAnalyticsService 创建分析服务
func NewAnalyticsService(repo repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo, now: time.Now}
}

// AnalyticsQuery 分析查询参数
// From/To 同时给出时按自定义区间，否则取最近 Days 天
type AnalyticsQuery struct {
	From  *time.Time
	To    *time.Time
	Days  int
	Limit int
}

// AnalyticsWindow 实际统计区间
type AnalyticsWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
	Days int    `json:"days"`
}

// AnalyticsOverview 经营总览
type AnalyticsOverview struct {
	Window           AnalyticsWindow `json:"window"`
	TotalCustomers   int64           `json:"totalCustomers"`
	NewCustomers     int64           `json:"newCustomers"`
	PurchaseCount    int64           `json:"purchaseCount"`
	UnitsSold        int64           `json:"unitsSold"`
	Revenue          string          `json:"revenue"`
	DiscountTotal    string          `json:"discountTotal"`
	AverageOrder     string          `json:"averageOrder"`
	ActiveProducts   int64           `json:"activeProducts"`
	LowStockProducts int64           `json:"lowStockProducts"`
	ActivePromos     int64           `json:"activePromos"`
	OpenTickets      int64           `json:"openTickets"`
	PendingTasks     int64           `json:"pendingTasks"`
	OverdueTasks     int64           `json:"overdueTasks"`
}

// SalesTrendPoint 按天销售趋势点
type SalesTrendPoint struct {
	Date      string `json:"date"`
	Purchases int64  `json:"purchases"`
	Units     int64  `json:"units"`
	Revenue   string `json:"revenue"`
	Discount  string `json:"discount"`
}

// SalesTrend 销售趋势
type SalesTrend struct {
	Window AnalyticsWindow   `json:"window"`
	Points []SalesTrendPoint `json:"points"`
}

// ProductRanking 商品排行项
type ProductRanking struct {
	ProductID uint   `json:"productId"`
	Name      string `json:"name"`
	Purchases int64  `json:"purchases"`
	Units     int64  `json:"units"`
	Revenue   string `json:"revenue"`
}

// CustomerRanking 客户排行项
type CustomerRanking struct {
	CustomerID uint   `json:"customerId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Purchases  int64  `json:"purchases"`
	Revenue    string `json:"revenue"`
}

// PromoUsage 优惠使用情况
type PromoUsage struct {
	PromoID       uint   `json:"promoId"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"isActive"`
	Assigned      int64  `json:"assigned"`
	Used          int64  `json:"used"`
	UsageRate     string `json:"usageRate"`
	DiscountTotal string `json:"discountTotal"`
}

type analyticsWindow struct {
	startAt time.Time
	endAt   time.Time
	days    int
}

// GetOverview 经营总览
func (s *AnalyticsService) GetOverview(query AnalyticsQuery) (*AnalyticsOverview, error) {
	window, err := resolveAnalyticsWindow(query, s.now())
	if err != nil {
		return nil, err
	}
	row, err := s.repo.GetOverview(window.startAt, window.endAt, constants.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	average := 0.0
	if row.PurchaseCount > 0 {
		average = row.Revenue / float64(row.PurchaseCount)
	}
	return &AnalyticsOverview{
		Window:           window.view(),
		TotalCustomers:   row.TotalCustomers,
		NewCustomers:     row.NewCustomers,
		PurchaseCount:    row.PurchaseCount,
		UnitsSold:        row.UnitsSold,
		Revenue:          formatMoneyValue(row.Revenue),
		DiscountTotal:    formatMoneyValue(row.DiscountTotal),
		AverageOrder:     formatMoneyValue(average),
		ActiveProducts:   row.ActiveProducts,
		LowStockProducts: row.LowStockProducts,
		ActivePromos:     row.ActivePromos,
		OpenTickets:      row.OpenTickets,
		PendingTasks:     row.PendingTasks,
		OverdueTasks:     row.OverdueTasks,
	}, nil
}

// GetSalesTrend 按天销售趋势，无数据的日期补零
func (s *AnalyticsService) GetSalesTrend(query AnalyticsQuery) (*SalesTrend, error) {
	window, err := resolveAnalyticsWindow(query, s.now())
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.GetSalesTrend(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]repository.AnalyticsSalesTrendRow, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}

	points := make([]SalesTrendPoint, 0, window.days)
	for cursor := window.startAt; cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		row := byDay[day]
		points = append(points, SalesTrendPoint{
			Date:      day,
			Purchases: row.Purchases,
			Units:     row.Units,
			Revenue:   formatMoneyValue(row.Revenue),
			Discount:  formatMoneyValue(row.Discount),
		})
	}
	return &SalesTrend{Window: window.view(), Points: points}, nil
}

// GetTopProducts 商品销售排行
func (s *AnalyticsService) GetTopProducts(query AnalyticsQuery) ([]ProductRanking, error) {
	window, err := resolveAnalyticsWindow(query, s.now())
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.GetTopProducts(window.startAt, window.endAt, resolveAnalyticsLimit(query.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]ProductRanking, 0, len(rows))
	for _, row := range rows {
		items = append(items, ProductRanking{
			ProductID: row.ProductID,
			Name:      row.Name,
			Purchases: row.Purchases,
			Units:     row.Units,
			Revenue:   formatMoneyValue(row.Revenue),
		})
	}
	return items, nil
}

// GetTopCustomers 客户消费排行
func (s *AnalyticsService) GetTopCustomers(query AnalyticsQuery) ([]CustomerRanking, error) {
	window, err := resolveAnalyticsWindow(query, s.now())
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.GetTopCustomers(window.startAt, window.endAt, resolveAnalyticsLimit(query.Limit))
	if err != nil {
		return nil, err
	}
	items := make([]CustomerRanking, 0, len(rows))
	for _, row := range rows {
		name := row.FirstName
		if row.LastName != "" {
			name = name + " " + row.LastName
		}
		items = append(items, CustomerRanking{
			CustomerID: row.CustomerID,
			Name:       name,
			Email:      row.Email,
			Purchases:  row.Purchases,
			Revenue:    formatMoneyValue(row.Revenue),
		})
	}
	return items, nil
}

// GetPromoUsage 优惠发放与核销统计
func (s *AnalyticsService) GetPromoUsage(limit int) ([]PromoUsage, error) {
	rows, err := s.repo.GetPromoUsage(resolveAnalyticsLimit(limit))
	if err != nil {
		return nil, err
	}
	items := make([]PromoUsage, 0, len(rows))
	for _, row := range rows {
		rate := 0.0
		if row.Assigned > 0 {
			rate = float64(row.Used) / float64(row.Assigned) * 100
		}
		items = append(items, PromoUsage{
			PromoID:       row.PromoID,
			Name:          row.Name,
			Type:          row.Type,
			IsActive:      row.IsActive,
			Assigned:      row.Assigned,
			Used:          row.Used,
			UsageRate:     formatPercentValue(rate),
			DiscountTotal: formatMoneyValue(row.DiscountTotal),
		})
	}
	return items, nil
}

// resolveAnalyticsWindow 统计区间按 UTC 自然日对齐，结束时间为开区间
func resolveAnalyticsWindow(query AnalyticsQuery, now time.Time) (analyticsWindow, error) {
	now = now.UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if query.From != nil || query.To != nil {
		if query.From == nil || query.To == nil {
			return analyticsWindow{}, ErrInvalidInput
		}
		from := query.From.UTC()
		to := query.To.UTC()
		startAt := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		endAt := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		if !endAt.After(startAt) {
			return analyticsWindow{}, ErrInvalidInput
		}
		days := int(endAt.Sub(startAt).Hours() / 24)
		if days > constants.AnalyticsMaxDays {
			return analyticsWindow{}, ErrInvalidInput
		}
		return analyticsWindow{startAt: startAt, endAt: endAt, days: days}, nil
	}

	days := query.Days
	if days <= 0 {
		days = constants.AnalyticsDefaultDays
	}
	if days > constants.AnalyticsMaxDays {
		days = constants.AnalyticsMaxDays
	}
	endAt := todayStart.AddDate(0, 0, 1)
	return analyticsWindow{startAt: endAt.AddDate(0, 0, -days), endAt: endAt, days: days}, nil
}

func (w analyticsWindow) view() AnalyticsWindow {
	return AnalyticsWindow{
		From: w.startAt.Format("2006-01-02"),
		To:   w.endAt.AddDate(0, 0, -1).Format("2006-01-02"),
		Days: w.days,
	}
}

func resolveAnalyticsLimit(limit int) int {
	if limit <= 0 {
		return constants.AnalyticsDefaultLimit
	}
	if limit > constants.AnalyticsMaxLimit {
		return constants.AnalyticsMaxLimit
	}
	return limit
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
