package api

import (
	"github.com/condohub/billing/internal/api/cron"
	v1 "github.com/condohub/billing/internal/api/v1"
	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/rest/middleware"
	"github.com/condohub/billing/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Webhook *v1.WebhookHandler
	Dunning *cron.DunningHandler
}

func NewHandlers(health *v1.HealthHandler, webhook *v1.WebhookHandler, dunning *cron.DunningHandler) Handlers {
	return Handlers{
		Health:  health,
		Webhook: webhook,
		Dunning: dunning,
	}
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.SentryScopeMiddleware,
		middleware.ErrorHandler(logger),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")

	webhooks := v1Group.Group("/webhooks")
	{
		webhooks.POST("/payments/:gateway", handlers.Webhook.HandlePaymentWebhook)
		webhooks.POST("/nfse", handlers.Webhook.HandleNFSeWebhook)
	}

	cronGroup := v1Group.Group("/cron")
	{
		cronGroup.POST("/dunning", handlers.Dunning.ProcessDunning)
	}

	return router
}

// Module provides the handlers and the gin engine
func Module() fx.Option {
	return fx.Provide(
		v1.NewHealthHandler,
		v1.NewWebhookHandler,
		cron.NewDunningHandler,
		NewHandlers,
		NewRouter,
	)
}
