package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddleware_CountsByRoute(t *testing.T) {
	// given
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinMiddleware())
	engine.GET("/api/orders/:formId", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/orders/:formId", "GET", "404"))

	// when
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/f1", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/f2", nil))

	// then
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/orders/:formId", "GET", "404"))
	assert.Equal(t, float64(2), after-before)
}

func TestGinMiddleware_UnknownRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinMiddleware())
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("unknown", "GET", "404"))

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("unknown", "GET", "404"))-before)
}
