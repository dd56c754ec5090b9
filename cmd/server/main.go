package main

import (
	"fmt"
	"log"
	"time"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/api"
	"github.com/qs3c/billing_go_server/internal/api/handler"
	"github.com/qs3c/billing_go_server/internal/database"
	"github.com/qs3c/billing_go_server/internal/pkg/audit"
	"github.com/qs3c/billing_go_server/internal/pkg/cron"
	"github.com/qs3c/billing_go_server/internal/repository"
	"github.com/qs3c/billing_go_server/internal/service"
)

const (
	serviceName    = "billing-tariffication"
	serviceVersion = "1.0.0"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database connected")

	// 初始化审计队列（可选）
	var auditQueue *audit.Queue
	if cfg.Audit.Enabled {
		rdb, err := database.NewRedis(&cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect redis: %v", err)
		}
		auditQueue = audit.NewQueue(rdb, cfg.Audit.QueueName)
		log.Println("Redis connected, audit events enabled")
	}

	// 初始化 Repository
	balanceRepo := repository.NewBalanceRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	counterRepo := repository.NewCounterRepository(db)

	// 初始化 Service
	guard := service.NewIdempotencyGuard(db, txRepo)
	ledgerService := service.NewLedgerService(db, balanceRepo, txRepo, planRepo, counterRepo, guard, auditQueue, cfg)
	planService := service.NewPlanService(planRepo, ledgerService, guard, cfg)
	paymentService := service.NewPaymentService(planRepo, ledgerService, planService, guard)

	// 初始化 Handler
	billingHandler := handler.NewBillingHandler(ledgerService, planService)
	userHandler := handler.NewUserHandler(ledgerService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	healthHandler := handler.NewHealthHandler(serviceName, serviceVersion)

	// 启动计数器归零调度
	cronService := cron.NewService(db, counterRepo,
		time.Duration(cfg.Scheduler.ResetIntervalMinutes)*time.Minute)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	router := api.NewRouter(billingHandler, userHandler, paymentHandler, healthHandler, cfg)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
