package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crm-next/internal/authz"
	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/provider"
	"github.com/crm-next/internal/queue"
	"github.com/crm-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	RequestID  string          `json:"requestId"`
	Pagination *struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

type routerTestEnv struct {
	engine *gin.Engine
	db     *gorm.DB
}

func corsConfigForTest() config.CORSConfig {
	return config.CORSConfig{AllowedOrigins: []string{"https://crm.example.com"}}
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.L = zap.NewNop()

	dsn := fmt.Sprintf("file:router_%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
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

	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	cfg := &config.Config{
		Server:      config.ServerConfig{Mode: "debug"},
		JWT:         config.JWTConfig{SecretKey: "staff-secret", ExpireHours: 2},
		CustomerJWT: config.JWTConfig{SecretKey: "customer-secret", ExpireHours: 2},
		CORS:        corsConfigForTest(),
	}
	queueClient, _ := queue.NewClient(nil)
	container := provider.NewContainerWithDB(cfg, db, queueClient)
	container.AuthzService = authzService

	seedAdmin(t, db, "root", constants.RoleSuperAdmin)
	seedAdmin(t, db, "clerk", constants.RoleAdmin)

	return &routerTestEnv{engine: SetupRouter(cfg, container), db: db}
}

func seedAdmin(t *testing.T, db *gorm.DB, username, role string) {
	t.Helper()
	hash, err := service.HashPassword("Secret123")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	if err := db.Create(&models.Admin{Username: username, PasswordHash: hash, Role: role, IsActive: true}).Error; err != nil {
		t.Fatalf("seed admin failed: %v", err)
	}
}

func (env *routerTestEnv) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: unmarshal response failed: %v body=%s", method, path, err, w.Body.String())
	}
	return w.Code, resp
}

func (env *routerTestEnv) adminToken(t *testing.T, username string) string {
	t.Helper()
	code, resp := env.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{
		"username": username,
		"password": "Secret123",
	})
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("admin login want 200 got %d: %s", code, resp.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	mustDecode(t, resp.Data, &data)
	return data.Token
}

func mustDecode(t *testing.T, raw json.RawMessage, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, dest); err != nil {
		t.Fatalf("decode data failed: %v (%s)", err, string(raw))
	}
}

func createResource(t *testing.T, env *routerTestEnv, token, path string, body interface{}) uint {
	t.Helper()
	code, resp := env.do(t, http.MethodPost, path, token, body)
	if code != http.StatusCreated {
		t.Fatalf("POST %s want 201 got %d: %s %s", path, code, resp.Message, resp.Error)
	}
	var data struct {
		ID uint `json:"id"`
	}
	mustDecode(t, resp.Data, &data)
	if data.ID == 0 {
		t.Fatalf("POST %s returned empty id", path)
	}
	return data.ID
}

func TestHealthEndpoint(t *testing.T) {
	env := setupRouterTest(t)
	code, resp := env.do(t, http.MethodGet, "/health", "", nil)
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("health want 200 got %d", code)
	}
}

func TestStaffRoutesRequireToken(t *testing.T) {
	env := setupRouterTest(t)

	code, resp := env.do(t, http.MethodGet, "/api/v1/customers", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", code)
	}
	if resp.Success {
		t.Fatalf("success want false")
	}
	if resp.RequestID == "" {
		t.Fatalf("error response should carry request id")
	}

	code, _ = env.do(t, http.MethodPost, "/api/v1/auth/admin/login", "", map[string]string{"username": "root", "password": "wrong"})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad credentials want 401 got %d", code)
	}
}

func TestPurchaseFlowOverHTTP(t *testing.T) {
	env := setupRouterTest(t)
	token := env.adminToken(t, "clerk")

	customerID := createResource(t, env, token, "/api/v1/customers", map[string]interface{}{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
	})
	productID := createResource(t, env, token, "/api/v1/products", map[string]interface{}{
		"name":  "Laptop",
		"sku":   "LT-1",
		"price": "100000",
		"stock": 5,
	})
	promoID := createResource(t, env, token, "/api/v1/promos", map[string]interface{}{
		"name":  "BIG50K",
		"type":  constants.PromoTypeFixedAmount,
		"value": "50000",
	})

	code, resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/promos/%d/assign", promoID), token, map[string]interface{}{
		"customerIds": []uint{customerID},
	})
	if code != http.StatusOK {
		t.Fatalf("assign want 200 got %d: %s", code, resp.Message)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/promos/validate", token, map[string]interface{}{
		"customerId": customerID,
		"promoCode":  "big50k",
		"productId":  productID,
		"quantity":   2,
	})
	if code != http.StatusOK {
		t.Fatalf("validate want 200 got %d: %s", code, resp.Message)
	}
	var preview struct {
		Valid      bool   `json:"valid"`
		FinalTotal string `json:"finalTotal"`
	}
	mustDecode(t, resp.Data, &preview)
	if !preview.Valid || preview.FinalTotal != "150000.00" {
		t.Fatalf("preview want valid 150000.00 got %v %s", preview.Valid, preview.FinalTotal)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/purchases", token, map[string]interface{}{
		"customerId": customerID,
		"productId":  productID,
		"quantity":   2,
		"promoId":    promoID,
	})
	if code != http.StatusCreated || !resp.Success {
		t.Fatalf("purchase want 201 got %d: %s %s", code, resp.Message, resp.Error)
	}
	var result struct {
		Purchase struct {
			TotalAmount    string `json:"totalAmount"`
			DiscountAmount string `json:"discountAmount"`
		} `json:"purchase"`
		Customer struct {
			TotalSpent    string `json:"totalSpent"`
			PurchaseCount int    `json:"purchaseCount"`
		} `json:"customer"`
		Product struct {
			Stock int `json:"stock"`
		} `json:"product"`
		AppliedPromo *struct {
			Name string `json:"name"`
		} `json:"appliedPromo"`
	}
	mustDecode(t, resp.Data, &result)
	if result.Purchase.TotalAmount != "150000.00" || result.Purchase.DiscountAmount != "50000.00" {
		t.Fatalf("totals want 150000.00/50000.00 got %s/%s", result.Purchase.TotalAmount, result.Purchase.DiscountAmount)
	}
	if result.Customer.TotalSpent != "150000.00" || result.Customer.PurchaseCount != 1 {
		t.Fatalf("customer counters want 150000.00/1 got %s/%d", result.Customer.TotalSpent, result.Customer.PurchaseCount)
	}
	if result.Product.Stock != 3 {
		t.Fatalf("stock want 3 got %d", result.Product.Stock)
	}
	if result.AppliedPromo == nil || result.AppliedPromo.Name != "BIG50K" {
		t.Fatalf("applied promo want BIG50K got %+v", result.AppliedPromo)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/purchases/add-to-customer", token, map[string]interface{}{
		"customerId": customerID,
		"productId":  productID,
		"quantity":   1,
		"promoCode":  "BIG50K",
	})
	if code != http.StatusConflict {
		t.Fatalf("reused promo want 409 got %d", code)
	}
	if resp.Message != service.ErrPromoAlreadyUsed.Error() {
		t.Fatalf("message want %q got %q", service.ErrPromoAlreadyUsed.Error(), resp.Message)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/purchases", token, map[string]interface{}{
		"customerId": customerID,
		"productId":  productID,
		"quantity":   4,
	})
	if code != http.StatusConflict {
		t.Fatalf("stock shortage want 409 got %d", code)
	}
	if !strings.Contains(resp.Message, "requested 4, available 3") {
		t.Fatalf("stock shortage message got %q", resp.Message)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/purchases", token, map[string]interface{}{
		"customerId": customerID,
		"productId":  productID,
		"quantity":   0,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("zero quantity want 400 got %d", code)
	}

	code, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/purchases?customerId=%d", customerID), token, nil)
	if code != http.StatusOK || resp.Pagination == nil || resp.Pagination.Total != 1 {
		t.Fatalf("purchase list want 1 row got %d %+v", code, resp.Pagination)
	}
}

func TestRoleGateSeparatesStaffRoles(t *testing.T) {
	env := setupRouterTest(t)

	clerk := env.adminToken(t, "clerk")
	code, _ := env.do(t, http.MethodGet, "/api/v1/admins", clerk, nil)
	if code != http.StatusForbidden {
		t.Fatalf("admin listing admins want 403 got %d", code)
	}
	code, _ = env.do(t, http.MethodGet, "/api/v1/analytics/overview", clerk, nil)
	if code != http.StatusOK {
		t.Fatalf("admin analytics want 200 got %d", code)
	}

	root := env.adminToken(t, "root")
	code, resp := env.do(t, http.MethodGet, "/api/v1/admins", root, nil)
	if code != http.StatusOK || resp.Pagination == nil || resp.Pagination.Total != 2 {
		t.Fatalf("super admin listing want 200 with 2 admins got %d", code)
	}
	code, _ = env.do(t, http.MethodGet, "/api/v1/authz/permissions", root, nil)
	if code != http.StatusOK {
		t.Fatalf("permission catalog want 200 got %d", code)
	}
}

func TestCustomerSelfService(t *testing.T) {
	env := setupRouterTest(t)
	staff := env.adminToken(t, "clerk")

	inactive := false
	hiddenID := createResource(t, env, staff, "/api/v1/products", map[string]interface{}{
		"name":     "Hidden",
		"price":    "10",
		"stock":    10,
		"isActive": inactive,
	})
	visibleID := createResource(t, env, staff, "/api/v1/products", map[string]interface{}{
		"name":  "Mug",
		"price": "12.50",
		"stock": 10,
	})

	code, resp := env.do(t, http.MethodPost, "/api/v1/auth/customer/register", "", map[string]interface{}{
		"email":     "grace@example.com",
		"password":  "Secret123",
		"firstName": "Grace",
	})
	if code != http.StatusCreated {
		t.Fatalf("register want 201 got %d: %s", code, resp.Message)
	}
	var auth struct {
		Token string `json:"token"`
	}
	mustDecode(t, resp.Data, &auth)

	code, _ = env.do(t, http.MethodGet, "/api/v1/me", auth.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("me want 200 got %d", code)
	}
	code, _ = env.do(t, http.MethodGet, "/api/v1/customers", auth.Token, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("customer token on staff route want 401 got %d", code)
	}

	code, _ = env.do(t, http.MethodPost, "/api/v1/me/purchases", auth.Token, map[string]interface{}{
		"productId": hiddenID,
		"quantity":  1,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("inactive product checkout want 400 got %d", code)
	}

	code, resp = env.do(t, http.MethodPost, "/api/v1/me/purchases", auth.Token, map[string]interface{}{
		"productId": visibleID,
		"quantity":  2,
	})
	if code != http.StatusCreated {
		t.Fatalf("checkout want 201 got %d: %s", code, resp.Message)
	}

	code, resp = env.do(t, http.MethodGet, "/api/v1/me/purchases", auth.Token, nil)
	if code != http.StatusOK || resp.Pagination == nil || resp.Pagination.Total != 1 {
		t.Fatalf("own purchases want 1 got %d", code)
	}

	ticketID := createResource(t, env, auth.Token, "/api/v1/me/tickets", map[string]interface{}{
		"subject": "Where is my mug?",
	})
	code, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tickets/%d/messages", ticketID), staff, map[string]string{"message": "On its way"})
	if code != http.StatusCreated {
		t.Fatalf("staff reply want 201 got %d", code)
	}
	code, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/me/tickets/%d", ticketID), auth.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("own ticket want 200 got %d", code)
	}
	var ticket struct {
		Status   string `json:"status"`
		Messages []struct {
			SenderType string `json:"senderType"`
		} `json:"messages"`
	}
	mustDecode(t, resp.Data, &ticket)
	if ticket.Status != constants.TicketStatusInProgress || len(ticket.Messages) != 1 {
		t.Fatalf("ticket want in_progress with 1 message got %s/%d", ticket.Status, len(ticket.Messages))
	}
}
