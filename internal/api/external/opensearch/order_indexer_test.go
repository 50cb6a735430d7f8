package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/api/domain/order"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  url.Values
	body   string
}

type fakeCluster struct {
	mu          sync.Mutex
	requests    []recordedRequest
	indexExists bool
	indexStatus int
}

func (f *fakeCluster) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.Query(), body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodHead:
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/orders":
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case strings.HasPrefix(r.URL.Path, "/orders/_doc/"):
		status := f.indexStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeCluster) calls() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newIndexer(t *testing.T, cluster *fakeCluster) *OrderIndexer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(cluster.handler))
	t.Cleanup(srv.Close)

	indexer, err := NewOrderIndexer(context.Background(), []string{srv.URL}, "orders")
	require.NoError(t, err)
	return indexer
}

func TestNewOrderIndexer_CreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{}
	newIndexer(t, cluster)

	calls := cluster.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodHead, calls[0].method)
	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Contains(t, calls[1].body, `"form_id":{"type":"keyword"}`)
}

func TestNewOrderIndexer_KeepsExistingIndex(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	newIndexer(t, cluster)

	assert.Len(t, cluster.calls(), 1)
}

func TestNewOrderIndexer_Config(t *testing.T) {
	_, err := NewOrderIndexer(context.Background(), nil, "orders")
	assert.Error(t, err)

	_, err = NewOrderIndexer(context.Background(), []string{"http://localhost:9200"}, "")
	assert.Error(t, err)
}

func TestOrderIndexer_Notify(t *testing.T) {
	// given
	cluster := &fakeCluster{indexExists: true}
	indexer := newIndexer(t, cluster)
	paymentID := "pay-1"
	rec := order.OrderRecord{
		FormID:            "f1",
		Status:            order.StatusCompleted,
		Amount:            decimal.RequireFromString("100.50"),
		Currency:          "ILS",
		CustomerInfo:      &order.CustomerInfo{Name: "Avi", Email: "avi@example.com"},
		Items:             []order.Item{{Name: "Plate", Quantity: 1, UnitPrice: decimal.RequireFromString("100.50")}},
		ProviderPaymentID: &paymentID,
		ReceivedAt:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
	}

	// when
	err := indexer.Notify(context.Background(), rec)

	// then
	require.NoError(t, err)
	calls := cluster.calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "/orders/_doc/f1", last.path)
	assert.Equal(t, "external", last.query.Get("version_type"))
	assert.Equal(t, strconv.FormatInt(rec.UpdatedAt.UnixNano(), 10), last.query.Get("version"))

	var doc orderDoc
	require.NoError(t, json.Unmarshal([]byte(last.body), &doc))
	assert.Equal(t, "completed", doc.Status)
	assert.InDelta(t, 100.50, doc.Amount, 0.001)
	assert.Equal(t, "avi@example.com", doc.CustomerEmail)
	assert.Equal(t, []string{"Plate"}, doc.ItemNames)
	assert.Equal(t, "pay-1", doc.ProviderPaymentID)
}

func TestOrderIndexer_NotifyError(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, indexStatus: http.StatusBadRequest}
	indexer := newIndexer(t, cluster)

	err := indexer.Notify(context.Background(), order.OrderRecord{FormID: "f1", Status: order.StatusPending})

	assert.ErrorContains(t, err, "index error")
}

func TestOrderIndexer_NotifyIgnoresStaleVersion(t *testing.T) {
	// given an index that already holds a newer state of the order
	cluster := &fakeCluster{indexExists: true, indexStatus: http.StatusConflict}
	indexer := newIndexer(t, cluster)

	// when
	err := indexer.Notify(context.Background(), order.OrderRecord{
		FormID:    "f1",
		Status:    order.StatusPending,
		UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	// then
	assert.NoError(t, err)
}
