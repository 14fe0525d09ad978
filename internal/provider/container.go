package provider

import (
	"github.com/storelink-next/internal/authz"
	"github.com/storelink-next/internal/cache"
	"github.com/storelink-next/internal/config"
	"github.com/storelink-next/internal/logger"
	"github.com/storelink-next/internal/models"
	"github.com/storelink-next/internal/queue"
	"github.com/storelink-next/internal/repository"
	"github.com/storelink-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo            repository.AdminRepository
	UserRepo             repository.UserRepository
	UserMetaRepo         repository.UserMetaRepository
	AffiliateAccountRepo repository.AffiliateAccountRepository
	SettingRepo          repository.SettingRepository

	// Services
	AuthzService         *authz.Service
	AuthService          *service.AuthService
	UserAuthService      *service.UserAuthService
	CaptchaService       *service.CaptchaService
	SettingService       *service.SettingService
	AffiliateSyncService *service.AffiliateSyncService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.UserMetaRepo = repository.NewUserMetaRepository(db)
	c.AffiliateAccountRepo = repository.NewAffiliateAccountRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.UserMetaRepo)
	c.AffiliateSyncService = service.NewAffiliateSyncService(c.UserRepo, c.UserMetaRepo, c.AffiliateAccountRepo, c.SettingService)
}
