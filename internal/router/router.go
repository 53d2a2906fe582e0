package router

import (
	"time"

	"jojoprompts/config"
	"jojoprompts/internal/handler"
	"jojoprompts/internal/middleware"
	"jojoprompts/internal/repository"
	"jojoprompts/internal/ws"
	"jojoprompts/pkg/checkout"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second)))

	// Repositories
	planRepo := repository.NewPlanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db, planRepo)
	sessionRepo := repository.NewCheckoutSessionRepository(db)

	// Checkout core
	hub := ws.NewHub()
	notifier := handler.NewStatusNotifier(hub, cfg.Server.SuccessURL, cfg.Server.FailureURL)
	loader := checkout.NewLoader(cfg.Checkout.GatewayInitTimeout,
		checkout.NewPayPalGateway(cfg.PayPal.BaseURL, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.Currency),
		checkout.NewTapGateway(cfg.Tap.BaseURL, cfg.Tap.SecretKey, cfg.Tap.Currency),
	)
	continuity := checkout.NewContinuityStore(sessionRepo)
	orch := checkout.NewOrchestrator(loader, continuity, discountRepo, discountRepo, paymentRepo, subscriptionRepo, notifier, checkout.Config{
		MaxRetryAttempts: cfg.Checkout.MaxRetryAttempts,
		MaxPolls:         cfg.Checkout.MaxPolls,
		PollInterval:     cfg.Checkout.PollInterval,
		PublicBaseURL:    cfg.Server.PublicBaseURL,
	})
	orch.OnTick = notifier.PollProgress

	// Handlers
	planHandler := handler.NewPlanHandler(planRepo)
	checkoutHandler := handler.NewCheckoutHandler(orch, planRepo)
	billingHandler := handler.NewBillingHandler(paymentRepo, subscriptionRepo)
	returnHandler := handler.NewReturnHandler(&cfg.Server, orch)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		api.GET("/plans", planHandler.List)
		api.GET("/payments", authMw, billingHandler.History)
		api.GET("/subscription", authMw, billingHandler.Subscription)

		co := api.Group("/checkout", authMw)
		{
			co.POST("", checkoutHandler.Start)
			co.GET("/:id", checkoutHandler.Status)
			co.POST("/:id/discount", checkoutHandler.ApplyDiscount)
			co.DELETE("/:id/discount", checkoutHandler.RemoveDiscount)
			co.POST("/:id/pay", checkoutHandler.Pay)
			co.POST("/:id/confirm", checkoutHandler.Confirm)
			co.POST("/:id/retry", checkoutHandler.Retry)
			co.DELETE("/:id", checkoutHandler.Dispose)
		}
	}

	// Provider re-entry; the browser arrives here unauthenticated.
	r.GET("/payment/return", returnHandler.Return)
	r.GET("/payment/cancel", returnHandler.Cancel)

	r.GET("/ws/checkout/:id", ws.UpgradeCheckoutWS(&cfg.JWT, hub))

	return r
}
