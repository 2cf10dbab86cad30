package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/core/identity"
	"taskhub/internal/core/policy"
	"taskhub/internal/pkg/config"
	"taskhub/internal/pkg/jwt"
	"taskhub/internal/repository"
	"taskhub/internal/scheduler"
	"taskhub/internal/service"
)

// Services 对外暴露的业务服务
type Services struct {
	Auth        service.AuthService
	Guest       service.GuestService
	User        service.UserService
	Project     service.ProjectService
	Task        service.TaskService
	Team        service.TeamService
	Secret      service.SecretService
	AccessToken service.AccessTokenService
	Membership  service.MembershipService
}

// CoreEngine 组装存储、授权策略、通知和业务服务, 并管理后台任务的生命周期
type CoreEngine struct {
	cfg        *config.Config
	store      *repository.Store
	policy     *policy.Engine
	resolver   *identity.Resolver
	services   *Services
	dispatcher *notification.Dispatcher
	scheduler  *scheduler.Scheduler
	logger     *zap.Logger
	running    bool
}

// NewCoreEngine 创建核心引擎, notifier 为空时按配置创建
func NewCoreEngine(cfg *config.Config, store *repository.Store, notifier notification.Notifier, logger *zap.Logger) *CoreEngine {
	if notifier == nil {
		notifier = notification.New(&cfg.Notification, logger.Named("notification"))
	}
	timeout, err := time.ParseDuration(cfg.Notification.Timeout)
	if err != nil {
		logger.Warn("解析通知超时失败，使用默认值10秒", zap.String("timeout", cfg.Notification.Timeout))
		timeout = 10 * time.Second
	}
	dispatcher := notification.NewDispatcher(notifier, timeout, logger.Named("notification"))

	engine := policy.NewEngine(policy.Options{
		LeadGlobalTaskStatus: cfg.Policy.LeadGlobalTaskStatus,
		MinAccessCodeLength:  cfg.Policy.MinAccessCodeLength,
	})
	creds := jwt.NewService(cfg.Auth.JWT.Secret)

	services := &Services{
		Auth:        service.NewAuthService(&cfg.Auth, store.Users, creds, service.NewLDAPService(&cfg.Auth.LDAP), logger.Named("auth")),
		Guest:       service.NewGuestService(&cfg.Auth.JWT, &cfg.Policy, store, creds, logger.Named("guest")),
		User:        service.NewUserService(store, engine, logger.Named("user")),
		Project:     service.NewProjectService(store, engine, dispatcher, logger.Named("project")),
		Task:        service.NewTaskService(store, engine, dispatcher, logger.Named("task")),
		Team:        service.NewTeamService(store, engine, logger.Named("team")),
		Secret:      service.NewSecretService(store, engine, logger.Named("secret")),
		AccessToken: service.NewAccessTokenService(store, engine, dispatcher, logger.Named("access_token")),
		Membership:  service.NewMembershipService(store, engine, dispatcher, logger.Named("membership")),
	}

	return &CoreEngine{
		cfg:        cfg,
		store:      store,
		policy:     engine,
		resolver:   identity.NewResolver(creds, store.Users, logger.Named("identity")),
		services:   services,
		dispatcher: dispatcher,
		scheduler:  scheduler.NewScheduler(services.AccessToken, logger.Named("scheduler")),
		logger:     logger,
	}
}

func (e *CoreEngine) Services() *Services {
	return e.services
}

func (e *CoreEngine) Resolver() *identity.Resolver {
	return e.resolver
}

func (e *CoreEngine) Store() *repository.Store {
	return e.store
}

// Start 导入初始化数据并启动定时任务
func (e *CoreEngine) Start(ctx context.Context) error {
	if e.running {
		e.logger.Warn("核心引擎已在运行中")
		return nil
	}

	if e.cfg.Seed.File != "" {
		data, err := service.LoadSeedFile(e.cfg.Seed.File)
		if err != nil {
			return err
		}
		n, err := service.Bootstrap(ctx, e.store, data, e.logger.Named("bootstrap"))
		if err != nil {
			return err
		}
		if n > 0 {
			e.logger.Info("初始化数据导入完成", zap.Int("users", n), zap.String("file", e.cfg.Seed.File))
		}
	}

	if err := e.scheduler.Start(&e.cfg.Scheduler); err != nil {
		return err
	}

	e.running = true
	e.logger.Info("CoreEngine started")
	return nil
}

// Stop 停止定时任务并等待未发送完的通知
func (e *CoreEngine) Stop() {
	if !e.running {
		return
	}

	e.logger.Info("正在停止核心引擎...")
	e.scheduler.Stop()
	e.dispatcher.Wait()
	e.running = false
	e.logger.Info("核心引擎已停止")
}
