package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/api/router"
	"taskhub/internal/core"
	"taskhub/internal/pkg/config"
	"taskhub/internal/pkg/database"
	"taskhub/internal/pkg/logger"
	"taskhub/internal/repository"
	"taskhub/internal/repository/memory"

	_ "taskhub/docs" // Swagger docs
)

// @title TaskHub API
// @version 1.0
// @description 团队任务与项目协作平台 API 文档
// @description 提供用户、项目、任务、团队、访客码和密码库等功能

// @contact.name API Support
// @contact.email support@example.com

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var (
	configFile = flag.String("config", "", "配置文件路径 (例如: -config=configs/config.yaml)")
	version    = flag.Bool("version", false, "显示版本信息")
)

const (
	appVersion = "1.0.0"
	appName    = "taskhub"
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 显示版本信息
	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	// init config logger
	var cfg *config.Config
	{
		// 优先级: 命令行参数 > 环境变量 > 默认路径
		configPath := getConfigPath()

		c, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("加载配置失败: %v\n", err)
			fmt.Println("\n使用方式:")
			fmt.Println("  1. 命令行参数指定:")
			fmt.Println("     ./taskhub -config=configs/config.yaml")
			fmt.Println("  2. 环境变量指定:")
			fmt.Println("     export CONFIG_FILE=configs/config.yaml")
			fmt.Println("     ./taskhub")
			fmt.Println("  3. 使用默认配置:")
			fmt.Println("     ./taskhub  (将使用 configs/config.yaml)")
			os.Exit(1)
		}
		cfg = c

		// 初始化日志
		if err := logger.Init(&cfg.Log); err != nil {
			fmt.Printf("初始化日志失败: %v\n", err)
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Load config file: %s of %s", configPath, getConfigSource()))

		defer func() {
			_ = logger.Close()
		}()
	}

	logger.Info(fmt.Sprintf("服务 %s 启动中...", appName), zap.String("version", appVersion))

	// 初始化存储
	var store *repository.Store
	switch cfg.Database.Driver {
	case "memory":
		store = memory.NewStore()
		logger.Warn("使用内存存储, 重启后数据丢失")
	default:
		db, err := database.Open(&cfg.Database)
		if err != nil {
			logger.Fatal("初始化数据库失败", zap.Error(err))
		}
		defer func() {
			_ = database.Close(db)
		}()
		store = repository.NewStore(db)
		logger.Info(fmt.Sprintf("数据库连接成功 %s:%v", cfg.Database.Host, cfg.Database.Port),
			zap.String("driver", cfg.Database.Driver), zap.String("database", cfg.Database.Database))
	}

	// 初始化Core引擎, 导入初始化数据并启动定时任务
	coreEngine := core.NewCoreEngine(cfg, store, nil, logger.Log)
	if err := coreEngine.Start(context.Background()); err != nil {
		logger.Fatal("Core引擎启动失败", zap.Error(err))
	}

	// 设置路由
	r := router.Setup(cfg, coreEngine, logger.Log)

	// 创建HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 启动服务器
	go func() {
		logger.Info(fmt.Sprintf("%s 服务启动成功", cfg.Server.Name),
			zap.String("address", addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务正在关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止定时任务并等待通知发送完成
	coreEngine.Stop()

	logger.Info("服务已关闭")
}

// getConfigPath 获取配置文件路径
// 优先级: 命令行参数 > 环境变量 > 默认路径
func getConfigPath() string {
	if *configFile != "" {
		return *configFile
	}

	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		return envConfig
	}

	return "configs/config.yaml"
}

// getConfigSource 获取配置来源说明
func getConfigSource() string {
	if *configFile != "" {
		return "命令行参数"
	}
	if os.Getenv("CONFIG_FILE") != "" {
		return "环境变量"
	}
	return "默认配置"
}
