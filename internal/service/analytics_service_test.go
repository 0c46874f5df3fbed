package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/repository"
)

type stubAnalyticsRepo struct {
	overview  repository.AnalyticsOverviewRow
	trend     []repository.AnalyticsSalesTrendRow
	promos    []repository.AnalyticsPromoUsageRow
	customers []repository.AnalyticsCustomerRankingRow
	gotStart  time.Time
	gotEnd    time.Time
	gotLimit  int
}

func (r *stubAnalyticsRepo) GetOverview(startAt, endAt time.Time, _ int) (repository.AnalyticsOverviewRow, error) {
	r.gotStart, r.gotEnd = startAt, endAt
	return r.overview, nil
}

func (r *stubAnalyticsRepo) GetSalesTrend(startAt, endAt time.Time) ([]repository.AnalyticsSalesTrendRow, error) {
	r.gotStart, r.gotEnd = startAt, endAt
	return r.trend, nil
}

func (r *stubAnalyticsRepo) GetTopProducts(_, _ time.Time, limit int) ([]repository.AnalyticsProductRankingRow, error) {
	r.gotLimit = limit
	return nil, nil
}

func (r *stubAnalyticsRepo) GetTopCustomers(_, _ time.Time, limit int) ([]repository.AnalyticsCustomerRankingRow, error) {
	r.gotLimit = limit
	return r.customers, nil
}

func (r *stubAnalyticsRepo) GetPromoUsage(limit int) ([]repository.AnalyticsPromoUsageRow, error) {
	r.gotLimit = limit
	return r.promos, nil
}

func TestResolveAnalyticsWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 3, 23, 0, 0, 0, time.UTC)
	longAgo := now.AddDate(-2, 0, 0)

	window, err := resolveAnalyticsWindow(AnalyticsQuery{}, now)
	if err != nil {
		t.Fatalf("default window failed: %v", err)
	}
	if window.days != constants.AnalyticsDefaultDays || !window.endAt.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected default window: %+v", window)
	}

	window, err = resolveAnalyticsWindow(AnalyticsQuery{From: &from, To: &to}, now)
	if err != nil {
		t.Fatalf("custom window failed: %v", err)
	}
	view := window.view()
	if view.From != "2026-03-01" || view.To != "2026-03-03" || view.Days != 3 {
		t.Fatalf("unexpected custom window: %+v", view)
	}

	window, err = resolveAnalyticsWindow(AnalyticsQuery{Days: 1000}, now)
	if err != nil || window.days != constants.AnalyticsMaxDays {
		t.Fatalf("days should be capped: %+v err=%v", window, err)
	}

	for name, query := range map[string]AnalyticsQuery{
		"only_from": {From: &from},
		"reversed":  {From: &to, To: &from},
		"too_long":  {From: &longAgo, To: &now},
	} {
		if _, err := resolveAnalyticsWindow(query, now); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: want invalid input got %v", name, err)
		}
	}
}

func TestAnalyticsSalesTrendFillsGaps(t *testing.T) {
	repo := &stubAnalyticsRepo{trend: []repository.AnalyticsSalesTrendRow{
		{Day: "2026-03-09", Purchases: 2, Units: 3, Revenue: 150.5, Discount: 10},
	}}
	svc := NewAnalyticsService(repo)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	trend, err := svc.GetSalesTrend(AnalyticsQuery{Days: 3})
	if err != nil {
		t.Fatalf("sales trend failed: %v", err)
	}
	if len(trend.Points) != 3 {
		t.Fatalf("want 3 points got %d", len(trend.Points))
	}
	wantDates := []string{"2026-03-08", "2026-03-09", "2026-03-10"}
	for i, point := range trend.Points {
		if point.Date != wantDates[i] {
			t.Fatalf("point %d: want %s got %s", i, wantDates[i], point.Date)
		}
	}
	if trend.Points[0].Revenue != "0.00" || trend.Points[1].Revenue != "150.50" || trend.Points[1].Units != 3 {
		t.Fatalf("unexpected points: %+v", trend.Points)
	}
}

func TestAnalyticsOverviewAndRankings(t *testing.T) {
	repo := &stubAnalyticsRepo{
		overview: repository.AnalyticsOverviewRow{PurchaseCount: 4, Revenue: 100, DiscountTotal: 12.346},
		promos: []repository.AnalyticsPromoUsageRow{
			{PromoID: 1, Name: "A", Assigned: 3, Used: 1, DiscountTotal: 5},
			{PromoID: 2, Name: "B"},
		},
		customers: []repository.AnalyticsCustomerRankingRow{
			{CustomerID: 7, FirstName: "Ada", LastName: "Lovelace", Revenue: 99},
			{CustomerID: 8, FirstName: "Solo"},
		},
	}
	svc := NewAnalyticsService(repo)

	overview, err := svc.GetOverview(AnalyticsQuery{})
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.AverageOrder != "25.00" || overview.DiscountTotal != "12.35" || overview.Revenue != "100.00" {
		t.Fatalf("unexpected overview: %+v", overview)
	}

	usage, err := svc.GetPromoUsage(0)
	if err != nil {
		t.Fatalf("promo usage failed: %v", err)
	}
	if repo.gotLimit != constants.AnalyticsDefaultLimit {
		t.Fatalf("want default limit got %d", repo.gotLimit)
	}
	if usage[0].UsageRate != "33.33" || usage[1].UsageRate != "0.00" {
		t.Fatalf("unexpected usage rates: %+v", usage)
	}

	customers, err := svc.GetTopCustomers(AnalyticsQuery{Limit: 500})
	if err != nil {
		t.Fatalf("top customers failed: %v", err)
	}
	if repo.gotLimit != constants.AnalyticsMaxLimit {
		t.Fatalf("limit should be capped, got %d", repo.gotLimit)
	}
	if customers[0].Name != "Ada Lovelace" || customers[1].Name != "Solo" {
		t.Fatalf("unexpected names: %+v", customers)
	}
}

func TestAnalyticsAgainstDatabase(t *testing.T) {
	env := setupServiceTest(t)
	svc := NewAnalyticsService(repository.NewAnalyticsRepository(env.db))
	purchases := env.purchaseService()

	big := seedCustomer(t, env.db, "big@example.com")
	small := seedCustomer(t, env.db, "small@example.com")
	product := seedProduct(t, env.db, "Widget", 40, 20)
	promo := seedPromo(t, env.db, "W10", constants.PromoTypeFixedAmount, 10)
	seedAssignment(t, env.db, big.ID, promo.ID)
	seedAssignment(t, env.db, small.ID, promo.ID)

	for _, input := range []CreatePurchaseInput{
		{CustomerID: big.ID, ProductID: product.ID, Quantity: 3, PromoCode: "W10"},
		{CustomerID: small.ID, ProductID: product.ID, Quantity: 1},
	} {
		if _, err := purchases.CreatePurchase(context.Background(), input); err != nil {
			t.Fatalf("create purchase failed: %v", err)
		}
	}

	overview, err := svc.GetOverview(AnalyticsQuery{Days: 7})
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if overview.PurchaseCount != 2 || overview.UnitsSold != 4 || overview.Revenue != "150.00" || overview.DiscountTotal != "10.00" {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	if overview.TotalCustomers != 2 || overview.ActivePromos != 1 {
		t.Fatalf("unexpected counts: %+v", overview)
	}

	top, err := svc.GetTopCustomers(AnalyticsQuery{Days: 7})
	if err != nil || len(top) != 2 || top[0].CustomerID != big.ID || top[0].Revenue != "110.00" {
		t.Fatalf("unexpected top customers: %+v err=%v", top, err)
	}

	usage, err := svc.GetPromoUsage(10)
	if err != nil || len(usage) != 1 {
		t.Fatalf("unexpected promo usage: %+v err=%v", usage, err)
	}
	if usage[0].Assigned != 2 || usage[0].Used != 1 || usage[0].UsageRate != "50.00" {
		t.Fatalf("unexpected promo usage row: %+v", usage[0])
	}
}
