package api

import (
	"storefront/internal/api/handlers"
	"storefront/pkg/health"
	"storefront/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	webhook        *handlers.WebhookHandler
	orders         *handlers.OrderHandler
	live           *handlers.LiveHandler
	healthRegistry *health.Registry
}

func (r *Router) SetUp(engine *gin.Engine) {
	engine.GET("/health/live", health.LivenessHandler())
	engine.GET("/health/ready", health.ReadinessHandler(r.healthRegistry, health.DefaultTimeout))

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := engine.Group("/api")
	{
		api.POST("/provider/webhook", r.webhook.Receive)
		api.GET("/orders", r.orders.List)
		api.GET("/orders/:formId", r.orders.Get)
		api.GET("/orders/:formId/live", r.live.Stream)
	}
}

func NewRouter(
	webhook *handlers.WebhookHandler,
	orders *handlers.OrderHandler,
	live *handlers.LiveHandler,
	healthRegistry *health.Registry,
) *Router {
	return &Router{
		webhook:        webhook,
		orders:         orders,
		live:           live,
		healthRegistry: healthRegistry,
	}
}
