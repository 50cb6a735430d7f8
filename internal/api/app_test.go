package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"storefront/config"
	"storefront/internal/api/domain/order"
	"storefront/internal/api/handlers"
	"storefront/internal/api/live"
	"storefront/internal/api/notify"
	"storefront/internal/api/repo/memory"
	"storefront/pkg/correlation"
	"storefront/pkg/health"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	hub := live.NewHub()
	t.Cleanup(hub.Close)
	service := order.NewOrderService(memory.NewOrderStore(), hub)

	webhook := handlers.NewWebhookHandler(service)
	engine := NewGinEngine()
	NewRouter(webhook, handlers.NewOrderHandler(service), handlers.NewLiveHandler(service, hub), health.NewRegistry()).SetUp(engine)
	NewInternalRouter(webhook).SetUp(engine)
	return engine
}

func TestRouter_Routes(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		method, path, body string
		wantStatus         int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/orders", "", http.StatusOK},
		{http.MethodGet, "/api/orders/missing", "", http.StatusNotFound},
		{http.MethodPost, "/api/provider/webhook", `{"formId":"f1","status":"approved","amount":100,"currency":"ILS"}`, http.StatusOK},
		{http.MethodPost, "/internal/webhooks/provider", `{"formId":"f2","status":"pending","amount":5,"currency":"USD"}`, http.StatusOK},
		{http.MethodPost, "/api/provider/webhook", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestGinEngine_CorrelationHeader(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set(correlation.HeaderName, "corr-123")
		w := httptest.NewRecorder()

		engine.ServeHTTP(w, req)

		assert.Equal(t, "corr-123", w.Header().Get(correlation.HeaderName))
	})

	t.Run("generates missing id", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

		assert.NotEmpty(t, w.Header().Get(correlation.HeaderName))
	})
}

func TestMetricsExposeWebhookCounters(t *testing.T) {
	engine := newTestEngine(t)
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/provider/webhook",
		strings.NewReader(`{"formId":"m1","status":"approved","amount":1,"currency":"ILS"}`)))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, w.Body.String(), "storefront_webhook_deliveries_total")
}

func TestOpenStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		registry := health.NewRegistry()
		store, closeStore, err := openStore(config.Config{StoreDriver: config.StoreMemory}, registry)
		require.NoError(t, err)
		defer closeStore()
		assert.NotNil(t, store)
	})

	t.Run("sqlite registers readiness", func(t *testing.T) {
		registry := health.NewRegistry()
		store, closeStore, err := openStore(config.Config{
			StoreDriver: config.StoreSQLite,
			SQLitePath:  filepath.Join(t.TempDir(), "orders.db"),
		}, registry)
		require.NoError(t, err)
		defer closeStore()

		require.NoError(t, store.Create(context.Background(), order.OrderRecord{FormID: "f1", Status: order.StatusPending, Currency: "ILS"}))
		resp := registry.CheckAll(context.Background())
		assert.Equal(t, health.StatusUp, resp.Status)
		require.Len(t, resp.Checks, 1)
		assert.Equal(t, "sqlite", resp.Checks[0].Name)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := openStore(config.Config{StoreDriver: "mongo"}, health.NewRegistry())
		assert.Error(t, err)
	})
}

func TestNotificationSinks(t *testing.T) {
	hub := live.NewHub()
	defer hub.Close()

	t.Run("live only by default", func(t *testing.T) {
		sinks, err := notificationSinks(context.Background(), config.Config{}, hub)
		require.NoError(t, err)
		require.Len(t, sinks, 1)
		assert.Equal(t, "live", sinks[0].Name)
	})

	t.Run("mail when smtp configured", func(t *testing.T) {
		sinks, err := notificationSinks(context.Background(), config.Config{
			SMTPHost:   "smtp.example.com",
			SMTPPort:   2525,
			MailFrom:   "shop@example.com",
			AdminEmail: "admin@example.com",
		}, hub)
		require.NoError(t, err)
		require.Len(t, sinks, 2)
		assert.Equal(t, "mail", sinks[1].Name)
	})

	t.Run("unreachable search cluster is skipped", func(t *testing.T) {
		sinks, err := notificationSinks(context.Background(), config.Config{
			OpensearchUrls:        []string{"http://127.0.0.1:1"},
			OpensearchIndexOrders: "orders",
		}, hub)
		require.NoError(t, err)
		assert.Len(t, sinks, 1)
	})
}

func TestWithDispatcher_DeliversWhileServeDrains(t *testing.T) {
	// given
	delivered := make(chan string, 1)
	d := notify.NewDispatcher(order.NotifierFunc(func(_ context.Context, rec order.OrderRecord) error {
		delivered <- rec.FormID
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when a request commits after shutdown began but before serve returns
	err := withDispatcher(ctx, d, func() error {
		<-ctx.Done()
		return d.Notify(context.Background(), order.OrderRecord{FormID: "late", Status: order.StatusCompleted})
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, "late", <-delivered)
}
