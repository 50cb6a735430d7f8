package ingest

import (
	"storefront/internal/ingest/handlers"
	"storefront/pkg/health"
	"storefront/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	webhook        *handlers.WebhookHandler
	healthRegistry *health.Registry
}

func (r *Router) SetUp(engine *gin.Engine) {
	engine.GET("/health/live", health.LivenessHandler())
	engine.GET("/health/ready", health.ReadinessHandler(r.healthRegistry, health.DefaultTimeout))

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	engine.POST("/api/provider/webhook", r.webhook.Receive)
}

func NewRouter(webhook *handlers.WebhookHandler, healthRegistry *health.Registry) *Router {
	return &Router{
		webhook:        webhook,
		healthRegistry: healthRegistry,
	}
}
