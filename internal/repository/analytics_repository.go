package repository

import (
	"fmt"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"

	"gorm.io/gorm"
)

// AnalyticsRepository 分析聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则，每次请求实时计算。
type AnalyticsRepository interface {
	GetOverview(startAt, endAt time.Time, lowStockThreshold int) (AnalyticsOverviewRow, error)
	GetSalesTrend(startAt, endAt time.Time) ([]AnalyticsSalesTrendRow, error)
	GetTopProducts(startAt, endAt time.Time, limit int) ([]AnalyticsProductRankingRow, error)
	GetTopCustomers(startAt, endAt time.Time, limit int) ([]AnalyticsCustomerRankingRow, error)
	GetPromoUsage(limit int) ([]AnalyticsPromoUsageRow, error)
}

// AnalyticsOverviewRow 总览原始统计结果
type AnalyticsOverviewRow struct {
	TotalCustomers   int64
	NewCustomers     int64
	PurchaseCount    int64
	UnitsSold        int64
	Revenue          float64
	DiscountTotal    float64
	ActiveProducts   int64
	LowStockProducts int64
	ActivePromos     int64
	OpenTickets      int64
	PendingTasks     int64
	OverdueTasks     int64
}

// AnalyticsSalesTrendRow 按天销售趋势
type AnalyticsSalesTrendRow struct {
	Day       string
	Purchases int64
	Units     int64
	Revenue   float64
	Discount  float64
}

// AnalyticsProductRankingRow 商品排行原始行
type AnalyticsProductRankingRow struct {
	ProductID uint
	Name      string
	Purchases int64
	Units     int64
	Revenue   float64
}

// AnalyticsCustomerRankingRow 客户排行原始行
type AnalyticsCustomerRankingRow struct {
	CustomerID uint
	FirstName  string
	LastName   string
	Email      string
	Purchases  int64
	Revenue    float64
}

// AnalyticsPromoUsageRow 优惠使用情况
type AnalyticsPromoUsageRow struct {
	PromoID       uint
	Name          string
	Type          string
	IsActive      bool
	Assigned      int64
	Used          int64
	DiscountTotal float64
}

// GormAnalyticsRepository GORM 分析聚合实现
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建分析仓库
func NewAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

func (r *GormAnalyticsRepository) purchaseBase(startAt, endAt time.Time) *gorm.DB {
	return r.db.Model(&models.Purchase{}).
		Where("purchase_date >= ? AND purchase_date < ?", startAt, endAt)
}

// GetOverview 获取总览统计
func (r *GormAnalyticsRepository) GetOverview(startAt, endAt time.Time, lowStockThreshold int) (AnalyticsOverviewRow, error) {
	result := AnalyticsOverviewRow{}

	if err := r.db.Model(&models.Customer{}).Count(&result.TotalCustomers).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Customer{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewCustomers).Error; err != nil {
		return result, err
	}

	type salesRow struct {
		Purchases int64
		Units     int64
		Revenue   float64
		Discount  float64
	}
	var sales salesRow
	if err := r.purchaseBase(startAt, endAt).
		Select("COUNT(*) as purchases, COALESCE(SUM(quantity), 0) as units, COALESCE(SUM(total_amount), 0) as revenue, COALESCE(SUM(discount_amount), 0) as discount").
		Scan(&sales).Error; err != nil {
		return result, err
	}
	result.PurchaseCount = sales.Purchases
	result.UnitsSold = sales.Units
	result.Revenue = sales.Revenue
	result.DiscountTotal = sales.Discount

	if err := r.db.Model(&models.Product{}).Where("is_active = ?", true).Count(&result.ActiveProducts).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Product{}).
		Where("is_active = ? AND stock <= ?", true, lowStockThreshold).
		Count(&result.LowStockProducts).Error; err != nil {
		return result, err
	}

	now := time.Now()
	if err := r.db.Model(&models.Promo{}).
		Where("is_active = ?", true).
		Where("start_date IS NULL OR start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Count(&result.ActivePromos).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Ticket{}).
		Where("status IN ?", []string{constants.TicketStatusOpen, constants.TicketStatusInProgress}).
		Count(&result.OpenTickets).Error; err != nil {
		return result, err
	}

	openTaskStatuses := []string{constants.TaskStatusPending, constants.TaskStatusInProgress}
	if err := r.db.Model(&models.Task{}).
		Where("status IN ?", openTaskStatuses).
		Count(&result.PendingTasks).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Task{}).
		Where("status IN ? AND due_date IS NOT NULL AND due_date < ?", openTaskStatuses, now).
		Count(&result.OverdueTasks).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetSalesTrend 获取按天销售趋势
func (r *GormAnalyticsRepository) GetSalesTrend(startAt, endAt time.Time) ([]AnalyticsSalesTrendRow, error) {
	day := dayExpr("purchase_date")
	rows := make([]AnalyticsSalesTrendRow, 0)
	if err := r.purchaseBase(startAt, endAt).
		Select(fmt.Sprintf(`
			%s as day,
			COUNT(*) as purchases,
			COALESCE(SUM(quantity), 0) as units,
			COALESCE(SUM(total_amount), 0) as revenue,
			COALESCE(SUM(discount_amount), 0) as discount
		`, day)).
		Group(day).
		Order("day asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopProducts 获取商品销售排行
func (r *GormAnalyticsRepository) GetTopProducts(startAt, endAt time.Time, limit int) ([]AnalyticsProductRankingRow, error) {
	if limit <= 0 {
		limit = constants.AnalyticsDefaultLimit
	}
	rows := make([]AnalyticsProductRankingRow, 0)
	if err := r.db.Model(&models.Purchase{}).
		Select(`
			customer_products.product_id as product_id,
			products.name as name,
			COUNT(*) as purchases,
			COALESCE(SUM(customer_products.quantity), 0) as units,
			COALESCE(SUM(customer_products.total_amount), 0) as revenue
		`).
		Joins("JOIN products ON products.id = customer_products.product_id").
		Where("customer_products.purchase_date >= ? AND customer_products.purchase_date < ?", startAt, endAt).
		Group("customer_products.product_id, products.name").
		Order("revenue DESC, units DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopCustomers 获取客户消费排行
func (r *GormAnalyticsRepository) GetTopCustomers(startAt, endAt time.Time, limit int) ([]AnalyticsCustomerRankingRow, error) {
	if limit <= 0 {
		limit = constants.AnalyticsDefaultLimit
	}
	rows := make([]AnalyticsCustomerRankingRow, 0)
	if err := r.db.Model(&models.Purchase{}).
		Select(`
			customer_products.customer_id as customer_id,
			customers.first_name as first_name,
			customers.last_name as last_name,
			customers.email as email,
			COUNT(*) as purchases,
			COALESCE(SUM(customer_products.total_amount), 0) as revenue
		`).
		Joins("JOIN customers ON customers.id = customer_products.customer_id").
		Where("customer_products.purchase_date >= ? AND customer_products.purchase_date < ?", startAt, endAt).
		Group("customer_products.customer_id, customers.first_name, customers.last_name, customers.email").
		Order("revenue DESC, purchases DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPromoUsage 获取优惠发放与核销情况
func (r *GormAnalyticsRepository) GetPromoUsage(limit int) ([]AnalyticsPromoUsageRow, error) {
	if limit <= 0 {
		limit = constants.AnalyticsDefaultLimit
	}
	rows := make([]AnalyticsPromoUsageRow, 0)
	if err := r.db.Model(&models.Promo{}).
		Select(`
			promos.id as promo_id,
			promos.name as name,
			promos.type as type,
			promos.is_active as is_active,
			(SELECT COUNT(*) FROM customer_promos cp WHERE cp.promo_id = promos.id) as assigned,
			(SELECT COUNT(*) FROM customer_promos cp WHERE cp.promo_id = promos.id AND cp.is_used = ?) as used,
			(SELECT COALESCE(SUM(cpr.discount_amount), 0) FROM customer_products cpr WHERE cpr.promo_id = promos.id) as discount_total
		`, true).
		Order("used DESC, promos.id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
