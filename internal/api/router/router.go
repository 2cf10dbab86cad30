package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"taskhub/internal/api/handler"
	"taskhub/internal/api/middleware"
	"taskhub/internal/core"
	"taskhub/internal/pkg/config"
)

// Setup 设置路由
func Setup(cfg *config.Config, coreEngine *core.CoreEngine, logger *zap.Logger) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	services := coreEngine.Services()

	// 初始化Handler
	authHandler := handler.NewAuthHandler(services.Auth, services.Guest, services.User, cfg.Auth.CookieName)
	userHandler := handler.NewUserHandler(services.User)
	projectHandler := handler.NewProjectHandler(services.Project)
	taskHandler := handler.NewTaskHandler(services.Task)
	teamHandler := handler.NewTeamHandler(services.Team)
	secretHandler := handler.NewSecretHandler(services.Secret)
	membershipHandler := handler.NewMembershipHandler(services.Membership)
	accessTokenHandler := handler.NewAccessTokenHandler(services.AccessToken)

	w := PrincipalWrapper

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证相关(无需token)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/login/access-code", authHandler.LoginWithAccessCode)
			authGroup.POST("/login/guest", authHandler.RedeemGuest)
			authGroup.POST("/logout", authHandler.Logout)
		}

		// 需要认证的路由
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(coreEngine.Resolver(), cfg.Auth.CookieName))
		{
			// 当前用户
			authed.GET("/auth/me", w(authHandler.GetMe))
			authed.PUT("/auth/password", w(authHandler.ChangePassword))
			authed.PUT("/auth/access-code", w(authHandler.ChangeAccessCode))
			authed.POST("/auth/access-code/generate", w(authHandler.GenerateAccessCode))
			authed.GET("/roles", userHandler.ListRoles)

			// 用户管理
			groupUsers := authed.Group("/users")
			{
				groupUsers.GET("", w(userHandler.List))
				groupUsers.GET("/:id", w(userHandler.Get))
				groupUsers.PUT("/:id", w(userHandler.UpdateProfile))
				groupUsers.PUT("/:id/role", w(userHandler.ChangeRole))
				groupUsers.DELETE("/:id", w(userHandler.Delete))
			}

			// 项目管理
			groupProjects := authed.Group("/projects")
			{
				groupProjects.POST("", w(projectHandler.Create))
				groupProjects.GET("", w(projectHandler.List))
				groupProjects.GET("/:id", w(projectHandler.Get))
				groupProjects.PUT("/:id", w(projectHandler.Update))
				groupProjects.DELETE("/:id", w(projectHandler.Delete))
				groupProjects.POST("/:id/close", w(projectHandler.Close))
				groupProjects.PUT("/:id/lead", w(projectHandler.ChangeLead))
				groupProjects.POST("/:id/members", w(projectHandler.AddMember))
				groupProjects.DELETE("/:id/members/:user_id", w(projectHandler.RemoveMember))

				// 加入申请
				groupProjects.POST("/:id/membership-requests", w(membershipHandler.Request))

				// 访客码
				groupProjects.GET("/:id/access-tokens", w(accessTokenHandler.List))
				groupProjects.POST("/:id/access-tokens", w(accessTokenHandler.Create))
				groupProjects.DELETE("/:id/access-tokens/:token_id", w(accessTokenHandler.Deactivate))
			}

			groupMemberships := authed.Group("/membership-requests")
			{
				groupMemberships.GET("", w(membershipHandler.ListPending))
				groupMemberships.POST("/:id/decision", w(membershipHandler.Decide))
			}

			// 任务管理
			groupTasks := authed.Group("/tasks")
			{
				groupTasks.POST("", w(taskHandler.Create))
				groupTasks.GET("", w(taskHandler.List))
				groupTasks.GET("/:id", w(taskHandler.Get))
				groupTasks.PUT("/:id", w(taskHandler.Update))
				groupTasks.DELETE("/:id", w(taskHandler.Delete))
				groupTasks.PUT("/:id/status", w(taskHandler.UpdateStatus))
				groupTasks.PUT("/:id/assignee", w(taskHandler.Reassign))
				groupTasks.POST("/:id/subtasks/:subtask_id/toggle", w(taskHandler.ToggleSubtask))
			}

			// 团队管理
			groupTeams := authed.Group("/teams")
			{
				groupTeams.POST("", w(teamHandler.Create))
				groupTeams.GET("", w(teamHandler.List))
				groupTeams.GET("/:id", w(teamHandler.Get))
				groupTeams.PUT("/:id", w(teamHandler.Update))
				groupTeams.DELETE("/:id", w(teamHandler.Delete))
				groupTeams.POST("/:id/members", w(teamHandler.AddMember))
				groupTeams.DELETE("/:id/members/:user_id", w(teamHandler.RemoveMember))
			}

			// 密码库
			groupSecrets := authed.Group("/secrets")
			{
				groupSecrets.POST("", w(secretHandler.Create))
				groupSecrets.GET("", w(secretHandler.List))
				groupSecrets.GET("/:id", w(secretHandler.Get))
				groupSecrets.PUT("/:id", w(secretHandler.Update))
				groupSecrets.DELETE("/:id", w(secretHandler.Delete))
			}
		}
	}

	logger.Debug("路由初始化完成", zap.Int("routes", len(r.Routes())))
	return r
}
