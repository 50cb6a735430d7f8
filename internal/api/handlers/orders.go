package handlers

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/api/domain/order"

	"github.com/gin-gonic/gin"
)

type OrderReader interface {
	GetOrder(ctx context.Context, formID string) (order.OrderRecord, error)
	ListOrders(ctx context.Context, query *order.ListQuery) (order.OrderList, error)
}

type OrderHandler struct {
	service OrderReader
}

func NewOrderHandler(s OrderReader) *OrderHandler {
	return &OrderHandler{service: s}
}

type ListParams struct {
	// Status accepts repeated values and comma-separated lists.
	Status []string `form:"status" url:"status,omitempty"`
	Limit  int      `form:"limit" url:"limit,omitempty" binding:"omitempty,min=0"`
}

func (p ListParams) statuses() []order.Status {
	var out []order.Status
	for _, value := range p.Status {
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, order.Status(strings.ToLower(s)))
			}
		}
	}
	return out
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: CodeInvalidQuery, Message: err.Error()})
		return
	}

	query, err := order.NewListQueryBuilder().
		WithStatuses(params.statuses()...).
		WithLimit(params.Limit).
		Build()
	if err != nil {
		RespondError(c, err)
		return
	}

	res, err := h.service.ListOrders(c.Request.Context(), query)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Get handles GET /api/orders/:formId.
func (h *OrderHandler) Get(c *gin.Context) {
	formID := c.Param("formId")

	rec, err := h.service.GetOrder(c.Request.Context(), formID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}
