package handlers

import (
	"log/slog"
	"net/http"

	"storefront/internal/api/live"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type LiveHandler struct {
	orders   OrderReader
	hub      *live.Hub
	upgrader websocket.Upgrader
}

func NewLiveHandler(orders OrderReader, hub *live.Hub) *LiveHandler {
	return &LiveHandler{
		orders: orders,
		hub:    hub,
		upgrader: websocket.Upgrader{
			// the checkout page is served from another origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/orders/:formId/live. Unknown forms get 404 before
// the upgrade; known ones get the current record, then every change.
func (h *LiveHandler) Stream(c *gin.Context) {
	formID := c.Param("formId")
	ctx := c.Request.Context()

	// subscribe first so a change between the read and the upgrade is not lost
	sub := h.hub.Subscribe(formID)

	rec, err := h.orders.GetOrder(ctx, formID)
	if err != nil {
		sub.Cancel()
		RespondError(c, err)
		return
	}

	snapshot, err := live.Encode(live.UpdateSnapshot, rec)
	if err != nil {
		sub.Cancel()
		RespondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Cancel()
		slog.WarnContext(ctx, "Websocket upgrade failed", "form_id", formID, slog.Any("error", err))
		return
	}

	live.Stream(ctx, conn, sub, snapshot, rec.UpdatedAt)
}
