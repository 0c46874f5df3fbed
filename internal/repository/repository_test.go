package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Customer{},
		&models.Product{},
		&models.Promo{},
		&models.CustomerPromo{},
		&models.Purchase{},
		&models.Task{},
		&models.Ticket{},
		&models.TicketMessage{},
	); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	return db
}

func money(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

func createTestCustomer(t *testing.T, db *gorm.DB, email string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		FirstName: "Test",
		LastName:  "Customer",
		Email:     email,
		Status:    constants.CustomerStatusActive,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func createTestProduct(t *testing.T, db *gorm.DB, name string, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Price:    money(price),
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func createTestPromo(t *testing.T, db *gorm.DB, name, promoType string, value int64) *models.Promo {
	t.Helper()
	promo := &models.Promo{
		Name:     name,
		Type:     promoType,
		Value:    money(value),
		IsActive: true,
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("create promo failed: %v", err)
	}
	return promo
}

func TestDecrementStockIsGuarded(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewProductRepository(db)
	product := createTestProduct(t, db, "Widget", 100, 2)

	affected, err := repo.DecrementStock(product.ID, 3)
	if err != nil {
		t.Fatalf("decrement over stock failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("decrement over stock affected want 0 got %d", affected)
	}

	affected, err = repo.DecrementStock(product.ID, 2)
	if err != nil {
		t.Fatalf("decrement exact stock failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("decrement exact stock affected want 1 got %d", affected)
	}

	got, err := repo.GetByID(product.ID)
	if err != nil || got == nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("stock want 0 got %d", got.Stock)
	}

	if _, err := repo.DecrementStock(product.ID, 0); err == nil {
		t.Fatalf("zero quantity should be rejected")
	}
}

func TestAdjustStockFloorsAtZero(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewProductRepository(db)
	product := createTestProduct(t, db, "Gadget", 50, 4)

	if _, err := repo.AdjustStock(product.ID, -10); err != nil {
		t.Fatalf("adjust stock failed: %v", err)
	}
	got, _ := repo.GetByID(product.ID)
	if got.Stock != 0 {
		t.Fatalf("stock want 0 got %d", got.Stock)
	}

	if _, err := repo.AdjustStock(product.ID, 7); err != nil {
		t.Fatalf("adjust stock up failed: %v", err)
	}
	got, _ = repo.GetByID(product.ID)
	if got.Stock != 7 {
		t.Fatalf("stock want 7 got %d", got.Stock)
	}
}

func TestApplyPurchaseTotals(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCustomerRepository(db)
	customer := createTestCustomer(t, db, "totals@example.com")

	if _, err := repo.ApplyPurchaseTotals(customer.ID, money(150000), 1); err != nil {
		t.Fatalf("apply totals failed: %v", err)
	}
	if _, err := repo.ApplyPurchaseTotals(customer.ID, money(2500), 1); err != nil {
		t.Fatalf("apply totals failed: %v", err)
	}
	got, _ := repo.GetByID(customer.ID)
	if !got.TotalSpent.Equal(decimal.NewFromInt(152500)) {
		t.Fatalf("total spent want 152500 got %s", got.TotalSpent.String())
	}
	if got.PurchaseCount != 2 {
		t.Fatalf("purchase count want 2 got %d", got.PurchaseCount)
	}

	// 反向调整不会低于 0
	if _, err := repo.ApplyPurchaseTotals(customer.ID, money(-999999), -5); err != nil {
		t.Fatalf("reverse totals failed: %v", err)
	}
	got, _ = repo.GetByID(customer.ID)
	if !got.TotalSpent.IsZero() || got.PurchaseCount != 0 {
		t.Fatalf("totals should floor at zero, got spent=%s count=%d", got.TotalSpent.String(), got.PurchaseCount)
	}
}

func TestCustomerUpdateKeepsCounters(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCustomerRepository(db)
	customer := createTestCustomer(t, db, "keep@example.com")
	if _, err := repo.ApplyPurchaseTotals(customer.ID, money(300), 1); err != nil {
		t.Fatalf("apply totals failed: %v", err)
	}

	// customer 持有过期的累计字段
	customer.Company = "Acme"
	if err := repo.Update(customer); err != nil {
		t.Fatalf("update customer failed: %v", err)
	}
	got, _ := repo.GetByID(customer.ID)
	if got.Company != "Acme" {
		t.Fatalf("company want Acme got %s", got.Company)
	}
	if got.PurchaseCount != 1 || !got.TotalSpent.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("counters were overwritten: spent=%s count=%d", got.TotalSpent.String(), got.PurchaseCount)
	}
}

func TestCustomerListSearchAndEmailUniqueness(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCustomerRepository(db)
	createTestCustomer(t, db, "alice@example.com")
	bob := createTestCustomer(t, db, "bob@example.com")

	rows, total, err := repo.List(CustomerListFilter{Page: 1, PageSize: 10, Search: "alice"})
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Email != "alice@example.com" {
		t.Fatalf("search want alice only, got total=%d rows=%v", total, rows)
	}

	count, err := repo.CountByEmail("BOB@example.com", 0)
	if err != nil || count != 1 {
		t.Fatalf("email count want 1 got %d err=%v", count, err)
	}
	count, err = repo.CountByEmail("bob@example.com", bob.ID)
	if err != nil || count != 0 {
		t.Fatalf("email count excluding self want 0 got %d err=%v", count, err)
	}
}

func TestPromoGetByCodeIgnoresCase(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewPromoRepository(db)
	promo := createTestPromo(t, db, "SPRING10", constants.PromoTypePercentage, 10)

	got, err := repo.GetByCode("  spring10 ")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if got == nil || got.ID != promo.ID {
		t.Fatalf("want promo %d got %v", promo.ID, got)
	}

	got, err = repo.GetByCode("missing")
	if err != nil || got != nil {
		t.Fatalf("missing code want nil,nil got %v,%v", got, err)
	}
}

func TestCustomerPromoAssignMarkUsedAndReopen(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCustomerPromoRepository(db)
	alice := createTestCustomer(t, db, "a@example.com")
	bob := createTestCustomer(t, db, "b@example.com")
	promo := createTestPromo(t, db, "VIP", constants.PromoTypeFixedAmount, 500)

	created, err := repo.Assign(promo.ID, []uint{alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if created != 2 {
		t.Fatalf("assign created want 2 got %d", created)
	}
	created, err = repo.Assign(promo.ID, []uint{alice.ID})
	if err != nil {
		t.Fatalf("re-assign failed: %v", err)
	}
	if created != 0 {
		t.Fatalf("re-assign created want 0 got %d", created)
	}

	link, err := repo.GetByPair(alice.ID, promo.ID)
	if err != nil || link == nil {
		t.Fatalf("get link failed: %v", err)
	}

	affected, err := repo.MarkUsed(link.ID, 77, link.CreatedAt)
	if err != nil || affected != 1 {
		t.Fatalf("mark used want 1 got %d err=%v", affected, err)
	}
	affected, err = repo.MarkUsed(link.ID, 78, link.CreatedAt)
	if err != nil || affected != 0 {
		t.Fatalf("second mark used want 0 got %d err=%v", affected, err)
	}

	// 已使用的记录不能撤销发放
	removed, err := repo.Unassign(promo.ID, alice.ID)
	if err != nil || removed != 0 {
		t.Fatalf("unassign used link want 0 got %d err=%v", removed, err)
	}

	reopened, err := repo.ReopenByPurchase(77)
	if err != nil || reopened != 1 {
		t.Fatalf("reopen want 1 got %d err=%v", reopened, err)
	}
	link, _ = repo.GetByPair(alice.ID, promo.ID)
	if link.IsUsed || link.PurchaseID != nil || link.UsedAt != nil {
		t.Fatalf("link should be reopened, got %+v", link)
	}

	used := false
	rows, total, err := repo.List(CustomerPromoListFilter{PromoID: promo.ID, IsUsed: &used})
	if err != nil || total != 2 || len(rows) != 2 {
		t.Fatalf("list unused want 2 got total=%d err=%v", total, err)
	}
	if rows[0].Promo == nil || rows[0].Customer == nil {
		t.Fatalf("list should preload promo and customer")
	}
}

func TestPurchaseDeleteReportsAffectedRows(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewPurchaseRepository(db)
	customer := createTestCustomer(t, db, "delete@example.com")
	product := createTestProduct(t, db, "Lamp", 30, 5)

	purchase := &models.Purchase{
		CustomerID:   customer.ID,
		ProductID:    product.ID,
		Quantity:     1,
		Price:        money(30),
		TotalAmount:  money(30),
		PurchaseDate: time.Now(),
	}
	if err := repo.Create(purchase); err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}

	affected, err := repo.Delete(purchase.ID)
	if err != nil {
		t.Fatalf("delete purchase failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("first delete affected want 1 got %d", affected)
	}
	affected, err = repo.Delete(purchase.ID)
	if err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("repeat delete affected want 0 got %d", affected)
	}
}
