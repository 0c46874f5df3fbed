package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"

	"github.com/shopspring/decimal"
)

func TestCreatePurchaseFixedAmountPromo(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "fixed@example.com")
	product := seedProduct(t, env.db, "Laptop", 100000, 5)
	promo := seedPromo(t, env.db, "BIG50K", constants.PromoTypeFixedAmount, 50000)
	link := seedAssignment(t, env.db, customer.ID, promo.ID)

	result, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID,
		ProductID:  product.ID,
		Quantity:   2,
		PromoID:    uintPtr(promo.ID),
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}

	purchase := result.Purchase
	if !purchase.Price.Decimal.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("want unit price snapshot 100000 got %s", purchase.Price.String())
	}
	if !purchase.DiscountAmount.Decimal.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("want discount 50000 got %s", purchase.DiscountAmount.String())
	}
	if !purchase.TotalAmount.Decimal.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("want total 150000 got %s", purchase.TotalAmount.String())
	}
	if purchase.PromoID == nil || *purchase.PromoID != promo.ID {
		t.Fatalf("purchase should reference promo %d, got %v", promo.ID, purchase.PromoID)
	}
	if result.AppliedPromo == nil || result.AppliedPromo.Name != "BIG50K" {
		t.Fatalf("unexpected applied promo: %+v", result.AppliedPromo)
	}

	if result.Customer.PurchaseCount != 1 || !result.Customer.TotalSpent.Decimal.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("unexpected customer snapshot: count=%d spent=%s", result.Customer.PurchaseCount, result.Customer.TotalSpent.String())
	}
	if result.Product.Stock != 3 {
		t.Fatalf("want stock 3 got %d", result.Product.Stock)
	}

	var redeemed models.CustomerPromo
	env.db.First(&redeemed, link.ID)
	if !redeemed.IsUsed || redeemed.UsedAt == nil || redeemed.PurchaseID == nil || *redeemed.PurchaseID != purchase.ID {
		t.Fatalf("promo link should be redeemed by purchase %d: %+v", purchase.ID, redeemed)
	}
}

func TestCreatePurchasePercentagePromoByCode(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "percent@example.com")
	product := seedProduct(t, env.db, "Mouse", 250, 10)
	promo := seedPromo(t, env.db, "Welcome20", constants.PromoTypePercentage, 20)
	seedAssignment(t, env.db, customer.ID, promo.ID)

	result, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID,
		ProductID:  product.ID,
		Quantity:   3,
		PromoCode:  "welcome20",
		Notes:      "  phone order ",
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	// 750 * 20% = 150
	if !result.Purchase.DiscountAmount.Decimal.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("want discount 150 got %s", result.Purchase.DiscountAmount.String())
	}
	if !result.Customer.TotalSpent.Decimal.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("total_spent delta should equal final total, got %s", result.Customer.TotalSpent.String())
	}
	if result.Purchase.Notes != "phone order" {
		t.Fatalf("notes should be trimmed, got %q", result.Purchase.Notes)
	}
}

func TestCreatePurchaseWithoutPromo(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "plain@example.com")
	product := seedProduct(t, env.db, "Cable", 15, 4)

	result, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID,
		ProductID:  product.ID,
		Quantity:   4,
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	if result.AppliedPromo != nil || result.Purchase.PromoID != nil {
		t.Fatalf("no promo expected, got %+v", result.AppliedPromo)
	}
	if !result.Purchase.TotalAmount.Decimal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("want total 60 got %s", result.Purchase.TotalAmount.String())
	}
	if reloadProduct(t, env.db, product.ID).Stock != 0 {
		t.Fatalf("stock should reach exactly zero")
	}
}

func TestCreatePurchaseInsufficientStockHasNoSideEffects(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "short@example.com")
	product := seedProduct(t, env.db, "Rare", 10, 2)
	promo := seedPromo(t, env.db, "RARE5", constants.PromoTypeFixedAmount, 5)
	seedAssignment(t, env.db, customer.ID, promo.ID)

	_, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID,
		ProductID:  product.ID,
		Quantity:   3,
		PromoCode:  "RARE5",
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("want insufficient stock got %v", err)
	}
	var shortage *StockShortageError
	if !errors.As(err, &shortage) || shortage.Requested != 3 || shortage.Available != 2 {
		t.Fatalf("unexpected shortage detail: %v", err)
	}
	if !strings.Contains(err.Error(), "requested 3, available 2") {
		t.Fatalf("unexpected message: %s", err.Error())
	}

	assertNoPurchaseSideEffects(t, env, customer.ID, product.ID, 2)
}

func TestCreatePurchasePromoUsedTwice(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "twice@example.com")
	product := seedProduct(t, env.db, "Ticket", 20, 10)
	promo := seedPromo(t, env.db, "ONCE", constants.PromoTypeFixedAmount, 5)
	seedAssignment(t, env.db, customer.ID, promo.ID)

	input := CreatePurchaseInput{CustomerID: customer.ID, ProductID: product.ID, Quantity: 1, PromoCode: "ONCE"}
	if _, err := svc.CreatePurchase(context.Background(), input); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	before := reloadCustomer(t, env.db, customer.ID)

	_, err := svc.CreatePurchase(context.Background(), input)
	if !errors.Is(err, ErrPromoAlreadyUsed) {
		t.Fatalf("want already used got %v", err)
	}

	after := reloadCustomer(t, env.db, customer.ID)
	if after.PurchaseCount != before.PurchaseCount || !after.TotalSpent.Decimal.Equal(before.TotalSpent.Decimal) {
		t.Fatalf("rejected purchase changed customer counters: before=%+v after=%+v", before, after)
	}
	if reloadProduct(t, env.db, product.ID).Stock != 9 {
		t.Fatalf("rejected purchase changed stock")
	}
	var count int64
	env.db.Model(&models.Purchase{}).Count(&count)
	if count != 1 {
		t.Fatalf("want 1 purchase row got %d", count)
	}
}

func TestCreatePurchaseRejections(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "reject@example.com")
	other := seedCustomer(t, env.db, "reject-other@example.com")
	product := seedProduct(t, env.db, "Desk", 300, 5)
	inactive := seedProduct(t, env.db, "Retired", 10, 5)
	env.db.Model(inactive).Update("is_active", false)
	promo := seedPromo(t, env.db, "OTHERS", constants.PromoTypeFixedAmount, 50)
	seedAssignment(t, env.db, other.ID, promo.ID)

	tests := []struct {
		name    string
		input   CreatePurchaseInput
		wantErr error
	}{
		{name: "zero_customer", input: CreatePurchaseInput{ProductID: product.ID, Quantity: 1}, wantErr: ErrPurchaseInvalid},
		{name: "zero_product", input: CreatePurchaseInput{CustomerID: customer.ID, Quantity: 1}, wantErr: ErrPurchaseInvalid},
		{name: "negative_quantity", input: CreatePurchaseInput{CustomerID: customer.ID, ProductID: product.ID, Quantity: -1}, wantErr: ErrPurchaseInvalid},
		{name: "missing_customer", input: CreatePurchaseInput{CustomerID: 9999, ProductID: product.ID, Quantity: 1}, wantErr: ErrCustomerNotFound},
		{name: "missing_product", input: CreatePurchaseInput{CustomerID: customer.ID, ProductID: 9999, Quantity: 1}, wantErr: ErrProductNotFound},
		{name: "unknown_code", input: CreatePurchaseInput{CustomerID: customer.ID, ProductID: product.ID, Quantity: 1, PromoCode: "NOPE"}, wantErr: ErrPromoNotFound},
		{name: "not_assigned", input: CreatePurchaseInput{CustomerID: customer.ID, ProductID: product.ID, Quantity: 1, PromoCode: "OTHERS"}, wantErr: ErrPromoNotAssigned},
		{name: "inactive_product_self_checkout", input: CreatePurchaseInput{CustomerID: customer.ID, ProductID: inactive.ID, Quantity: 1, RequireActiveProduct: true}, wantErr: ErrProductInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePurchase(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v got %v", tt.wantErr, err)
			}
			if errors.Is(err, ErrPurchaseCreateFailed) {
				t.Fatalf("business rejection must not be wrapped as create failure: %v", err)
			}
		})
	}
	assertNoPurchaseSideEffects(t, env, customer.ID, product.ID, 5)
}

func TestDeletePurchaseReversesSideEffects(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "refund@example.com")
	product := seedProduct(t, env.db, "Chair", 80, 6)
	promo := seedPromo(t, env.db, "CHAIR10", constants.PromoTypeFixedAmount, 10)
	link := seedAssignment(t, env.db, customer.ID, promo.ID)

	first, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID, ProductID: product.ID, Quantity: 2, PromoCode: "CHAIR10",
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	if _, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID, ProductID: product.ID, Quantity: 1,
	}); err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}

	if err := svc.Delete(context.Background(), first.Purchase.ID); err != nil {
		t.Fatalf("delete purchase failed: %v", err)
	}

	c := reloadCustomer(t, env.db, customer.ID)
	if c.PurchaseCount != 1 || !c.TotalSpent.Decimal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("counters should only reflect remaining purchase: count=%d spent=%s", c.PurchaseCount, c.TotalSpent.String())
	}
	if reloadProduct(t, env.db, product.ID).Stock != 5 {
		t.Fatalf("stock should be restored to 5")
	}
	var reopened models.CustomerPromo
	env.db.First(&reopened, link.ID)
	if reopened.IsUsed || reopened.PurchaseID != nil {
		t.Fatalf("promo link should be reopened: %+v", reopened)
	}
	if _, err := svc.Get(first.Purchase.ID); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("deleted purchase should be gone, got %v", err)
	}
	if err := svc.Delete(context.Background(), first.Purchase.ID); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestConcurrentDeleteRestoresStockOnce(t *testing.T) {
	env := setupServiceTest(t)
	sqlDB, err := env.db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 共享缓存的内存库并发写会直接报表锁，单连接让事务排队执行
	sqlDB.SetMaxOpenConns(1)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "race@example.com")
	product := seedProduct(t, env.db, "Desk", 50, 10)
	promo := seedPromo(t, env.db, "DESK5", constants.PromoTypeFixedAmount, 5)
	link := seedAssignment(t, env.db, customer.ID, promo.ID)

	result, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID, ProductID: product.ID, Quantity: 3, PromoID: &promo.ID,
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- svc.Delete(context.Background(), result.Purchase.ID)
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrPurchaseNotFound):
		default:
			t.Fatalf("unexpected delete error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("exactly one delete should succeed, got %d", succeeded)
	}

	if got := reloadProduct(t, env.db, product.ID).Stock; got != 10 {
		t.Fatalf("stock want 10 got %d", got)
	}
	c := reloadCustomer(t, env.db, customer.ID)
	if c.PurchaseCount != 0 || !c.TotalSpent.Decimal.IsZero() {
		t.Fatalf("counters want 0/0 got %d/%s", c.PurchaseCount, c.TotalSpent.String())
	}
	var reopened models.CustomerPromo
	env.db.First(&reopened, link.ID)
	if reopened.IsUsed {
		t.Fatalf("promo link should be reopened")
	}
}

func TestPurchaseUpdateAndCustomerScope(t *testing.T) {
	env := setupServiceTest(t)
	svc := env.purchaseService()

	customer := seedCustomer(t, env.db, "scope@example.com")
	other := seedCustomer(t, env.db, "scope-other@example.com")
	product := seedProduct(t, env.db, "Lamp", 30, 3)

	result, err := svc.CreatePurchase(context.Background(), CreatePurchaseInput{
		CustomerID: customer.ID, ProductID: product.ID, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}

	updated, err := svc.Update(result.Purchase.ID, UpdatePurchaseInput{Notes: strPtr(" gift wrap ")})
	if err != nil {
		t.Fatalf("update purchase failed: %v", err)
	}
	if updated.Notes != "gift wrap" || !updated.TotalAmount.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected updated purchase: %+v", updated)
	}
	if _, err := svc.Update(result.Purchase.ID, UpdatePurchaseInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty update should be invalid, got %v", err)
	}

	if _, err := svc.GetForCustomer(customer.ID, result.Purchase.ID); err != nil {
		t.Fatalf("owner should see purchase: %v", err)
	}
	if _, err := svc.GetForCustomer(other.ID, result.Purchase.ID); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("other customer must not see purchase, got %v", err)
	}

	items, total, err := svc.List(repository.PurchaseListFilter{CustomerID: customer.ID})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("unexpected list: total=%d len=%d err=%v", total, len(items), err)
	}
}

func assertNoPurchaseSideEffects(t *testing.T, env *serviceTestEnv, customerID, productID uint, wantStock int) {
	t.Helper()
	c := reloadCustomer(t, env.db, customerID)
	if c.PurchaseCount != 0 || !c.TotalSpent.Decimal.IsZero() {
		t.Fatalf("customer counters changed: count=%d spent=%s", c.PurchaseCount, c.TotalSpent.String())
	}
	if got := reloadProduct(t, env.db, productID).Stock; got != wantStock {
		t.Fatalf("want stock %d got %d", wantStock, got)
	}
	var purchases int64
	env.db.Model(&models.Purchase{}).Where("customer_id = ?", customerID).Count(&purchases)
	if purchases != 0 {
		t.Fatalf("want no purchase rows got %d", purchases)
	}
	var used int64
	env.db.Model(&models.CustomerPromo{}).Where("customer_id = ? AND is_used = ?", customerID, true).Count(&used)
	if used != 0 {
		t.Fatalf("want no redeemed promos got %d", used)
	}
}
