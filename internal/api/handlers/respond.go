package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"storefront/internal/api/domain/order"

	"github.com/gin-gonic/gin"
)

// MaxWebhookBody caps provider payloads.
const MaxWebhookBody = 1 << 20

const (
	CodeConflict         = "conflict"
	CodeStoreUnavailable = "store_unavailable"
	CodeNotFound         = "not_found"
	CodeInvalidQuery     = "invalid_query"
	CodePayloadTooLarge  = "payload_too_large"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// ReadBody reads the request body up to MaxWebhookBody bytes. Failures are
// already answered when it returns false.
func ReadBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBody))
	if err == nil {
		return raw, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   CodePayloadTooLarge,
			Message: fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit),
		})
		return nil, false
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   order.CodeMalformed,
		Field:   "payload",
		Message: err.Error(),
	})
	return nil, false
}

// ErrorCode is the short machine-readable code RespondError sends for err.
func ErrorCode(err error) string {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Code
	case errors.Is(err, order.ErrInvalidQuery):
		return CodeInvalidQuery
	case errors.Is(err, order.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, order.ErrConflict):
		return CodeConflict
	default:
		return CodeStoreUnavailable
	}
}

// RespondError maps a domain error to a status code and JSON body.
func RespondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	code := ErrorCode(err)

	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: code, Field: verr.Field, Message: verr.Error()})
	case code == CodeInvalidQuery:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: code, Message: err.Error()})
	case code == CodeNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: code})
	case code == CodeConflict:
		slog.ErrorContext(ctx, "Order store contradicts admission decision", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: code})
	default:
		slog.ErrorContext(ctx, "Order store unavailable", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: code})
	}
}
