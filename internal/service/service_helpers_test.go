package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/queue"
	"github.com/crm-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db        *gorm.DB
	cfg       *config.Config
	customers repository.CustomerRepository
	products  repository.ProductRepository
	promos    repository.PromoRepository
	assigns   repository.CustomerPromoRepository
	purchases repository.PurchaseRepository
	tasks     repository.TaskRepository
	tickets   repository.TicketRepository
	admins    repository.AdminRepository
	queue     *queue.Client
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
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
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, _ := queue.NewClient(&config.QueueConfig{Enabled: false})
	cfg := &config.Config{
		JWT:         config.JWTConfig{SecretKey: "staff-secret", ExpireHours: 2},
		CustomerJWT: config.JWTConfig{SecretKey: "customer-secret", ExpireHours: 2, RememberMeExpireHours: 48},
	}
	return &serviceTestEnv{
		db:        db,
		cfg:       cfg,
		customers: repository.NewCustomerRepository(db),
		products:  repository.NewProductRepository(db),
		promos:    repository.NewPromoRepository(db),
		assigns:   repository.NewCustomerPromoRepository(db),
		purchases: repository.NewPurchaseRepository(db),
		tasks:     repository.NewTaskRepository(db),
		tickets:   repository.NewTicketRepository(db),
		admins:    repository.NewAdminRepository(db),
		queue:     queueClient,
	}
}

func (e *serviceTestEnv) promoService() *PromoService {
	return NewPromoService(e.promos, e.assigns, e.products)
}

func (e *serviceTestEnv) purchaseService() *PurchaseService {
	return NewPurchaseService(PurchaseServiceOptions{
		CustomerRepo: e.customers,
		ProductRepo:  e.products,
		PurchaseRepo: e.purchases,
		AssignRepo:   e.assigns,
		PromoService: e.promoService(),
		QueueClient:  e.queue,
	})
}

func amount(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

func seedCustomer(t *testing.T, db *gorm.DB, email string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Status:    constants.CustomerStatusActive,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Price:    amount(price),
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func seedPromo(t *testing.T, db *gorm.DB, name, promoType string, value int64) *models.Promo {
	t.Helper()
	promo := &models.Promo{
		Name:     name,
		Type:     promoType,
		Value:    amount(value),
		IsActive: true,
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("create promo failed: %v", err)
	}
	return promo
}

func seedAssignment(t *testing.T, db *gorm.DB, customerID, promoID uint) *models.CustomerPromo {
	t.Helper()
	link := &models.CustomerPromo{CustomerID: customerID, PromoID: promoID}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("create customer promo failed: %v", err)
	}
	return link
}

func seedAdmin(t *testing.T, db *gorm.DB, username, role, password string) *models.Admin {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
}

func reloadCustomer(t *testing.T, db *gorm.DB, id uint) models.Customer {
	t.Helper()
	var customer models.Customer
	if err := db.First(&customer, id).Error; err != nil {
		t.Fatalf("reload customer failed: %v", err)
	}
	return customer
}

func reloadProduct(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()
	var product models.Product
	if err := db.Unscoped().First(&product, id).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	return product
}

func uintPtr(v uint) *uint {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
