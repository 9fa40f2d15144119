package main

import (
	"github.com/FrankyKyaw/instapay/internal/cache"
	"github.com/FrankyKyaw/instapay/internal/config"
	"github.com/FrankyKyaw/instapay/internal/ethereum"
	"github.com/FrankyKyaw/instapay/internal/handler"
	"github.com/FrankyKyaw/instapay/internal/logger"
	"github.com/FrankyKyaw/instapay/internal/logic"
	"github.com/FrankyKyaw/instapay/internal/mq"
	"github.com/FrankyKyaw/instapay/internal/repository"
	"github.com/FrankyKyaw/instapay/internal/router"
	"github.com/FrankyKyaw/instapay/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	initLogger(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化支付网关
	gateway, err := ethereum.Init(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway: %v", err)
	}
	logger.Info("Payment gateway ready, company account: %s", gateway.GetAccountAddress().Hex())

	// 初始化Redis（可选）
	var cacheClient *cache.Client
	if cfg.Redis.Enabled {
		cacheClient, err = cache.Init(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize redis: %v", err)
		}
		defer cacheClient.Close()
	}

	// 初始化RabbitMQ（可选）
	var publisher logic.SettlementPublisher
	if cfg.MQ.Enabled {
		p, err := mq.Init(cfg.MQ)
		if err != nil {
			logger.Fatal("Failed to initialize RabbitMQ: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	// 业务逻辑
	settlementLogic := logic.NewSettlementLogic(db, gateway, publisher, cacheClient)
	taskLogic := logic.NewTaskLogic(db, cacheClient)
	employeeLogic := logic.NewEmployeeLogic(db)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(
		handler.NewTaskHandler(taskLogic, settlementLogic),
		handler.NewEmployeeHandler(employeeLogic),
	)

	// 启动定时任务
	manager := task.Start(db, settlementLogic, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// initLogger 根据配置初始化默认日志器
func initLogger(cfg config.LogConfig) {
	level := logger.ParseLogLevel(cfg.Level)

	if cfg.Output == "file" && cfg.File != "" {
		l, err := logger.NewWithFileRotation(level, cfg.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(l)
		return
	}

	l, err := logger.New(level)
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}
