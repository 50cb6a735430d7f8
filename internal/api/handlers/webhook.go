package handlers

import (
	"context"
	"net/http"

	"storefront/internal/api/domain/order"
	"storefront/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, raw []byte) (order.Outcome, error)
}

type WebhookHandler struct {
	service WebhookProcessor
}

func NewWebhookHandler(s WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{service: s}
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Action   string `json:"action,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Receive handles POST /api/provider/webhook.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, ok := ReadBody(c)
	if !ok {
		metrics.WebhookRejections.WithLabelValues(order.CodeMalformed).Inc()
		return
	}

	outcome, err := h.service.ProcessWebhook(c.Request.Context(), raw)
	if err != nil {
		metrics.WebhookRejections.WithLabelValues(ErrorCode(err)).Inc()
		RespondError(c, err)
		return
	}

	metrics.WebhookDeliveries.WithLabelValues(string(outcome.Action.Kind), string(outcome.Action.Reason)).Inc()
	c.JSON(http.StatusOK, WebhookResponse{
		Received: true,
		Action:   string(outcome.Action.Kind),
		Reason:   string(outcome.Action.Reason),
	})
}
