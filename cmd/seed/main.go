package main

import (
	"context"
	"time"

	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/provider"
	"github.com/crm-next/internal/queue"
	"github.com/crm-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultAdmin(cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		stdLog.Fatalf("Failed to init default admin: %v", err)
	}

	var customerCount int64
	if err := models.DB.Model(&models.Customer{}).Count(&customerCount).Error; err != nil {
		stdLog.Fatalf("Failed to count customers: %v", err)
	}
	if customerCount > 0 {
		stdLog.Printf("Customers already exist (%d), skip seeding", customerCount)
		return
	}

	// 种子数据走业务服务，不投递异步通知
	queueClient, _ := queue.NewClient(nil)
	c := provider.NewContainerWithDB(cfg, models.DB, queueClient)

	var admin models.Admin
	if err := models.DB.Order("id ASC").First(&admin).Error; err != nil {
		stdLog.Fatalf("Failed to load admin: %v", err)
	}

	// 客户
	customerSeeds := []service.CustomerInput{
		{FirstName: "Alice", LastName: "Nguyen", Email: "alice@example.com", Phone: "+84 901 000 001", Company: "Acme Trading"},
		{FirstName: "Bob", LastName: "Tran", Email: "bob@example.com", Phone: "+84 901 000 002"},
		{FirstName: "Carol", LastName: "Le", Email: "carol@example.com", Company: "Le & Partners", Password: "Customer123"},
		{FirstName: "Dan", LastName: "Pham", Email: "dan@example.com", Status: constants.CustomerStatusInactive},
	}
	customers := make([]*models.Customer, 0, len(customerSeeds))
	for _, input := range customerSeeds {
		customer, err := c.CustomerService.Create(input)
		if err != nil {
			stdLog.Fatalf("Failed to create customer %s: %v", input.Email, err)
		}
		customers = append(customers, customer)
		stdLog.Printf("Created customer: %s", input.Email)
	}

	// 商品
	productSeeds := []service.ProductInput{
		{Name: "Business Laptop 14\"", SKU: "LT-14-BIZ", Category: "Electronics", Price: money("1299.00"), Stock: 25},
		{Name: "Wireless Mouse", SKU: "ACC-MOUSE-01", Category: "Accessories", Price: money("24.90"), Stock: 200},
		{Name: "USB-C Dock", SKU: "ACC-DOCK-01", Category: "Accessories", Price: money("149.00"), Stock: 4},
		{Name: "Onboarding Package", SKU: "SRV-ONBOARD", Category: "Services", Price: money("500.00"), Stock: 50},
	}
	products := make([]*models.Product, 0, len(productSeeds))
	for _, input := range productSeeds {
		product, err := c.ProductService.Create(input)
		if err != nil {
			stdLog.Fatalf("Failed to create product %s: %v", input.SKU, err)
		}
		products = append(products, product)
		stdLog.Printf("Created product: %s", input.SKU)
	}

	// 优惠
	now := time.Now()
	end := now.AddDate(0, 3, 0)
	welcome, err := c.PromoAdminService.Create(service.PromoInput{
		Name:        "WELCOME10",
		Description: "10% off for new customers",
		Type:        constants.PromoTypePercentage,
		Value:       money("10"),
		StartDate:   &now,
		EndDate:     &end,
	})
	if err != nil {
		stdLog.Fatalf("Failed to create promo WELCOME10: %v", err)
	}
	flat, err := c.PromoAdminService.Create(service.PromoInput{
		Name:  "SAVE50",
		Type:  constants.PromoTypeFixedAmount,
		Value: money("50"),
	})
	if err != nil {
		stdLog.Fatalf("Failed to create promo SAVE50: %v", err)
	}
	for _, promo := range []*models.Promo{welcome, flat} {
		result, err := c.PromoAdminService.Assign(promo.ID, []uint{customers[0].ID, customers[1].ID, customers[2].ID})
		if err != nil {
			stdLog.Fatalf("Failed to assign promo %s: %v", promo.Name, err)
		}
		stdLog.Printf("Assigned promo %s to %d customers", promo.Name, result.Created)
	}

	// 购买记录
	ctx := context.Background()
	purchaseSeeds := []service.CreatePurchaseInput{
		{CustomerID: customers[0].ID, ProductID: products[0].ID, Quantity: 2, PromoID: &welcome.ID},
		{CustomerID: customers[0].ID, ProductID: products[1].ID, Quantity: 5},
		{CustomerID: customers[1].ID, ProductID: products[3].ID, Quantity: 1, PromoCode: "SAVE50"},
		{CustomerID: customers[2].ID, ProductID: products[2].ID, Quantity: 1, Notes: "Pickup at office"},
	}
	for _, input := range purchaseSeeds {
		result, err := c.PurchaseService.CreatePurchase(ctx, input)
		if err != nil {
			stdLog.Printf("Failed to create purchase for customer %d: %v", input.CustomerID, err)
			continue
		}
		stdLog.Printf("Created purchase #%d total=%s", result.Purchase.ID, result.Purchase.TotalAmount.String())
	}

	// 跟进任务
	due := now.AddDate(0, 0, 3)
	taskSeeds := []service.TaskInput{
		{Title: "Follow up on laptop order", Priority: constants.PriorityHigh, DueDate: &due, CustomerID: &customers[0].ID, AssignedAdminID: &admin.ID},
		{Title: "Re-engage inactive customer", Priority: constants.PriorityLow, CustomerID: &customers[3].ID},
		{Title: "Restock USB-C docks", Priority: constants.PriorityMedium},
	}
	for _, input := range taskSeeds {
		if _, err := c.TaskService.Create(admin.ID, input); err != nil {
			stdLog.Printf("Failed to create task %q: %v", input.Title, err)
			continue
		}
		stdLog.Printf("Created task: %s", input.Title)
	}

	// 工单
	ticket, err := c.TicketService.CreateForCustomer(customers[2].ID, service.CreateTicketInput{
		Subject:     "Dock not detected by laptop",
		Description: "The dock powers on but the external monitor stays black.",
		Priority:    constants.PriorityMedium,
	})
	if err != nil {
		stdLog.Printf("Failed to create ticket: %v", err)
	} else if _, err := c.TicketService.ReplyAsAdmin(ctx, admin.ID, ticket.ID, "Please try updating the dock firmware first."); err != nil {
		stdLog.Printf("Failed to reply ticket: %v", err)
	}

	stdLog.Printf("Seed completed")
}

func money(value string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(value))
}
