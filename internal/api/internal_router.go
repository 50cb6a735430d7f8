package api

import (
	"storefront/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// InternalRouter serves the ingest gateway when it forwards over HTTP.
type InternalRouter struct {
	webhook *handlers.WebhookHandler
}

func NewInternalRouter(webhook *handlers.WebhookHandler) *InternalRouter {
	return &InternalRouter{webhook: webhook}
}

func (r *InternalRouter) SetUp(engine *gin.Engine) {
	internalGroup := engine.Group("/internal")
	{
		internalGroup.POST("/webhooks/provider", r.webhook.Receive)
	}
}
