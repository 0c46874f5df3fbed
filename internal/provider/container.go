package provider

import (
	"github.com/crm-next/internal/authz"
	"github.com/crm-next/internal/cache"
	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/queue"
	"github.com/crm-next/internal/repository"
	"github.com/crm-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	CustomerRepo      repository.CustomerRepository
	ProductRepo       repository.ProductRepository
	PromoRepo         repository.PromoRepository
	CustomerPromoRepo repository.CustomerPromoRepository
	PurchaseRepo      repository.PurchaseRepository
	TaskRepo          repository.TaskRepository
	TicketRepo        repository.TicketRepository
	AnalyticsRepo     repository.AnalyticsRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	CustomerAuthService *service.CustomerAuthService
	EmailService        *service.EmailService
	CaptchaService      *service.CaptchaService
	AdminService        *service.AdminService
	CustomerService     *service.CustomerService
	ProductService      *service.ProductService
	PromoService        *service.PromoService
	PromoAdminService   *service.PromoAdminService
	PurchaseService     *service.PurchaseService
	TaskService         *service.TaskService
	TicketService       *service.TicketService
	AnalyticsService    *service.AnalyticsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 队列未启用时使用空客户端，投递直接跳过
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return nil, err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return nil, err
	}

	c := NewContainerWithDB(cfg, models.DB, queueClient)
	c.AuthzService = authzService
	return c, nil
}

// NewContainerWithDB 使用指定数据库装配仓库与服务，不触碰外部依赖
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.AdminRepo = repository.NewAdminRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.PromoRepo = repository.NewPromoRepository(db)
	c.CustomerPromoRepo = repository.NewCustomerPromoRepository(db)
	c.PurchaseRepo = repository.NewPurchaseRepository(db)
	c.TaskRepo = repository.NewTaskRepository(db)
	c.TicketRepo = repository.NewTicketRepository(db)
	c.AnalyticsRepo = repository.NewAnalyticsRepository(db)
}

func (c *Container) initServices() {
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.CustomerAuthService = service.NewCustomerAuthService(c.Config, c.CustomerRepo)
	c.AdminService = service.NewAdminService(c.AdminRepo, c.AuthService)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, c.PurchaseRepo, c.CustomerPromoRepo, c.AuthService)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.PromoService = service.NewPromoService(c.PromoRepo, c.CustomerPromoRepo, c.ProductRepo)
	c.PromoAdminService = service.NewPromoAdminService(c.PromoRepo, c.CustomerPromoRepo, c.CustomerRepo)
	c.PurchaseService = service.NewPurchaseService(service.PurchaseServiceOptions{
		CustomerRepo: c.CustomerRepo,
		ProductRepo:  c.ProductRepo,
		PurchaseRepo: c.PurchaseRepo,
		AssignRepo:   c.CustomerPromoRepo,
		PromoService: c.PromoService,
		QueueClient:  c.QueueClient,
	})
	c.TaskService = service.NewTaskService(c.TaskRepo, c.CustomerRepo, c.AdminRepo)
	c.TicketService = service.NewTicketService(c.TicketRepo, c.CustomerRepo, c.AdminRepo, c.QueueClient)
	c.AnalyticsService = service.NewAnalyticsService(c.AnalyticsRepo)
}
