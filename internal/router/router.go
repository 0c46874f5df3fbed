package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crm-next/internal/authz"
	"github.com/crm-next/internal/cache"
	"github.com/crm-next/internal/config"
	adminhandlers "github.com/crm-next/internal/http/handlers/admin"
	customerhandlers "github.com/crm-next/internal/http/handlers/customer"
	"github.com/crm-next/internal/http/response"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按员工端/客户端分组）
	adminHandler := adminhandlers.New(c)
	customerHandler := customerhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "crm"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:customer_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts",
	}
	registerRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:customer_register", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many registration attempts",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(TracingMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", healthHandler)

	apiV1 := r.Group("/api/v1")
	apiV1.GET("/health", healthHandler)

	// 公开接口
	auth := apiV1.Group("/auth")
	{
		auth.GET("/captcha", adminHandler.GetCaptcha)
		auth.POST("/admin/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)
		auth.POST("/customer/register", RateLimitMiddleware(redisClient, registerRule, KeyByIP), customerHandler.Register)
		auth.POST("/customer/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), customerHandler.Login)
	}

	// 员工接口（admin / super_admin）
	staff := apiV1.Group("")
	staff.Use(AdminJWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), RoleGateMiddleware(c.AuthzService))
	{
		staff.GET("/me/admin", adminHandler.GetAdminMe)
		staff.PUT("/me/admin/password", adminHandler.UpdateAdminPassword)

		// 客户
		staff.GET("/customers", adminHandler.GetCustomers)
		staff.POST("/customers", adminHandler.CreateCustomer)
		staff.GET("/customers/:id", adminHandler.GetCustomer)
		staff.PUT("/customers/:id", adminHandler.UpdateCustomer)
		staff.DELETE("/customers/:id", adminHandler.DeleteCustomer)
		staff.GET("/customers/:id/purchases", adminHandler.GetCustomerPurchases)
		staff.GET("/customers/:id/promos", adminHandler.GetCustomerPromos)

		// 商品
		staff.GET("/products", adminHandler.GetProducts)
		staff.POST("/products", adminHandler.CreateProduct)
		staff.GET("/products/:id", adminHandler.GetProduct)
		staff.PUT("/products/:id", adminHandler.UpdateProduct)
		staff.PATCH("/products/:id/stock", adminHandler.AdjustProductStock)
		staff.DELETE("/products/:id", adminHandler.DeleteProduct)

		// 优惠
		staff.GET("/promos", adminHandler.GetPromos)
		staff.POST("/promos", adminHandler.CreatePromo)
		staff.POST("/promos/validate", adminHandler.ValidatePromo)
		staff.GET("/promos/:id", adminHandler.GetPromo)
		staff.PUT("/promos/:id", adminHandler.UpdatePromo)
		staff.DELETE("/promos/:id", adminHandler.DeletePromo)
		staff.POST("/promos/:id/assign", adminHandler.AssignPromo)
		staff.GET("/promos/:id/assignments", adminHandler.GetPromoAssignments)
		staff.DELETE("/promos/:id/assignments/:customerId", adminHandler.UnassignPromo)

		// 购买
		staff.GET("/purchases", adminHandler.GetPurchases)
		staff.POST("/purchases", adminHandler.CreatePurchase)
		staff.POST("/purchases/add-to-customer", adminHandler.CreatePurchase)
		staff.GET("/purchases/:id", adminHandler.GetPurchase)
		staff.PUT("/purchases/:id", adminHandler.UpdatePurchase)
		staff.DELETE("/purchases/:id", adminHandler.DeletePurchase)

		// 任务
		staff.GET("/tasks", adminHandler.GetTasks)
		staff.POST("/tasks", adminHandler.CreateTask)
		staff.GET("/tasks/:id", adminHandler.GetTask)
		staff.PUT("/tasks/:id", adminHandler.UpdateTask)
		staff.PATCH("/tasks/:id/status", adminHandler.UpdateTaskStatus)
		staff.DELETE("/tasks/:id", adminHandler.DeleteTask)

		// 工单
		staff.GET("/tickets", adminHandler.GetTickets)
		staff.GET("/tickets/:id", adminHandler.GetTicket)
		staff.PUT("/tickets/:id", adminHandler.UpdateTicket)
		staff.POST("/tickets/:id/messages", adminHandler.ReplyTicket)

		// 分析
		staff.GET("/analytics/overview", adminHandler.GetAnalyticsOverview)
		staff.GET("/analytics/sales-trend", adminHandler.GetSalesTrend)
		staff.GET("/analytics/top-products", adminHandler.GetTopProducts)
		staff.GET("/analytics/top-customers", adminHandler.GetTopCustomers)
		staff.GET("/analytics/promo-usage", adminHandler.GetPromoUsage)

		// 员工管理（仅 super_admin）
		staff.GET("/admins", adminHandler.GetAdmins)
		staff.POST("/admins", adminHandler.CreateAdmin)
		staff.GET("/admins/:id", adminHandler.GetAdmin)
		staff.PUT("/admins/:id", adminHandler.UpdateAdmin)
		staff.DELETE("/admins/:id", adminHandler.DeleteAdmin)

		// 授权（仅 super_admin）
		staff.GET("/authz/roles", adminHandler.GetAuthzRoles)
		staff.GET("/authz/roles/:role", adminHandler.GetAuthzRole)
		staff.POST("/authz/roles/:role/policies", adminHandler.GrantAuthzPolicy)
		staff.GET("/authz/permissions", func(ctx *gin.Context) {
			response.Success(ctx, buildPermissionCatalog(r))
		})
	}

	// 客户自助接口
	me := apiV1.Group("/me")
	me.Use(CustomerJWTAuthMiddleware(cfg.CustomerJWT.SecretKey, c.CustomerRepo), RoleGateMiddleware(c.AuthzService))
	{
		me.GET("", customerHandler.GetMe)
		me.PUT("", customerHandler.UpdateMe)
		me.PUT("/password", customerHandler.ChangePassword)
		me.GET("/purchases", customerHandler.GetPurchases)
		me.POST("/purchases", customerHandler.CreatePurchase)
		me.GET("/purchases/:id", customerHandler.GetPurchase)
		me.GET("/promos", customerHandler.GetPromos)
		me.POST("/promos/validate", customerHandler.ValidatePromo)
		me.GET("/tickets", customerHandler.GetTickets)
		me.POST("/tickets", customerHandler.CreateTicket)
		me.GET("/tickets/:id", customerHandler.GetTicket)
		me.POST("/tickets/:id/messages", customerHandler.ReplyTicket)
	}

	return r
}

func healthHandler(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if models.DB == nil {
		dbStatus = "unavailable"
		status = "degraded"
	} else if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		dbStatus = "unavailable"
		status = "degraded"
	}
	response.Success(c, gin.H{
		"status":   status,
		"database": dbStatus,
		"redis":    cache.Enabled(),
	})
}

// permissionCatalogItem 员工端可授权接口
type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		if strings.HasPrefix(object, "/auth/") || object == "/health" {
			continue
		}
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if segments[0] == "me" && len(segments) > 1 && segments[1] == "admin" {
		return "profile"
	}
	return segments[0]
}
