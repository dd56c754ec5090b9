package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/api/handler"
	"github.com/qs3c/billing_go_server/internal/api/middleware"
)

type Router struct {
	billingHandler *handler.BillingHandler
	userHandler    *handler.UserHandler
	paymentHandler *handler.PaymentHandler
	healthHandler  *handler.HealthHandler
	cfg            *config.Config
}

func NewRouter(
	billingHandler *handler.BillingHandler,
	userHandler *handler.UserHandler,
	paymentHandler *handler.PaymentHandler,
	healthHandler *handler.HealthHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		billingHandler: billingHandler,
		userHandler:    userHandler,
		paymentHandler: paymentHandler,
		healthHandler:  healthHandler,
		cfg:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// 公开接口 - 健康检查
	engine.GET("/health", r.healthHandler.Check)

	// 内部接口，统一要求共享密钥
	billing := engine.Group("/internal/billing")
	billing.Use(middleware.InternalAuth(r.cfg.Auth.InternalKey))
	{
		billing.POST("/check", r.billingHandler.Check)
		billing.POST("/debit", r.billingHandler.Debit)
		billing.POST("/credit", r.billingHandler.Credit)
		billing.GET("/balance", r.billingHandler.GetBalance)
		billing.POST("/plan/apply", r.billingHandler.ApplyPlan)
		billing.POST("/payment/webhook", r.paymentHandler.Webhook)

		// 用户接口额外要求网关身份
		user := billing.Group("/user")
		user.Use(middleware.GatewayAuth(r.cfg.Auth.JWTSecret))
		{
			user.POST("/init", r.userHandler.Init)
			user.GET("/status", r.userHandler.Status)
		}
	}

	return engine
}
