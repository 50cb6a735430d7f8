package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/api/domain/order"
	api "storefront/internal/api/handlers"
	"storefront/internal/ingest/apiclient"
	"storefront/internal/ingest/webhook"
	"storefront/pkg/metrics"

	"github.com/gin-gonic/gin"
)

const (
	CodeRejected            = "rejected"
	CodeUpstreamUnavailable = "upstream_unavailable"
)

type WebhookHandler struct {
	processor webhook.Processor
}

func NewWebhookHandler(p webhook.Processor) *WebhookHandler {
	return &WebhookHandler{processor: p}
}

// Receive handles POST /api/provider/webhook on the gateway. The delivery is
// acknowledged once it has been handed off; recording happens downstream.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, ok := api.ReadBody(c)
	if !ok {
		metrics.WebhookRejections.WithLabelValues(order.CodeMalformed).Inc()
		return
	}

	ctx := c.Request.Context()
	err := h.processor.Process(ctx, raw)

	var verr *order.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, api.WebhookResponse{Received: true})
	case errors.As(err, &verr):
		metrics.WebhookRejections.WithLabelValues(verr.Code).Inc()
		api.RespondError(c, err)
	case errors.Is(err, apiclient.ErrBadRequest):
		metrics.WebhookRejections.WithLabelValues(CodeRejected).Inc()
		slog.WarnContext(ctx, "API rejected forwarded webhook", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: CodeRejected, Message: err.Error()})
	default:
		metrics.WebhookRejections.WithLabelValues(CodeUpstreamUnavailable).Inc()
		slog.ErrorContext(ctx, "Webhook hand-off failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: CodeUpstreamUnavailable})
	}
}
