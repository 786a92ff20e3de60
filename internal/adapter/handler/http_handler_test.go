package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/rocketshoes-cart/internal/adapter/inventory"
	"github.com/rl1809/rocketshoes-cart/internal/adapter/storage"
	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/core/service"
	"github.com/rl1809/rocketshoes-cart/internal/port"
)

type testEnv struct {
	store   *service.CartStore
	catalog *inventory.MemoryCatalog
	notices *service.NoticeQueue
	hub     *Hub
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()

	catalog := inventory.NewMemoryCatalog(inventory.Seed{
		Stock: []domain.Stock{{ID: 1, Amount: 2}, {ID: 2, Amount: 5}},
		Products: []domain.Product{
			{ID: 1, Title: "Tênis de Caminhada", Price: 179.9, Image: "a.jpg"},
			{ID: 2, Title: "Tênis VR Caminhada", Price: 139.9, Image: "b.jpg"},
		},
	})
	notices := service.NewNoticeQueue(100)
	t.Cleanup(notices.Close)

	store, err := service.NewCartStore(context.Background(), catalog, storage.NewMemoryAdapter(), notices, service.WithLogger(log))
	require.NoError(t, err)

	hub := NewHub(store, log)
	t.Cleanup(hub.Close)

	return &testEnv{
		store:   store,
		catalog: catalog,
		notices: notices,
		hub:     hub,
		router:  NewRouter(NewHTTPHandler(store, 5*time.Second), hub, log),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartView {
	t.Helper()
	var view CartView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	return view
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetCart_Empty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeCart(t, rec)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", view.Total)
	assert.Equal(t, 0, view.Size)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAddItem_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	view := decodeCart(t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Amount)
	assert.Equal(t, "359.80", view.Items[0].Subtotal)
	assert.Equal(t, "359.80", view.Total)
	assert.Equal(t, 1, view.Size)
}

func TestAddItem_OutOfStock(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":1}`)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":1}`)

	rec := env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "out_of_stock", resp.Code)
	assert.Equal(t, service.ErrOutOfStock.Error(), resp.Error)

	notice := <-env.notices.GetNoticeQueue()
	assert.Equal(t, service.ErrOutOfStock.Error(), notice.Message)
	assert.Equal(t, int64(1), notice.ProductID)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":404}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrAddProduct.Error(), decodeError(t, rec).Error)
}

func TestAddItem_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{"product_id":`, "invalid_request"},
		{"missing id", `{}`, "invalid_product_id"},
		{"negative id", `{"product_id":-1}`, "invalid_product_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/cart/items", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestUpdateAmount(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":2}`)

	rec := env.do(t, http.MethodPut, "/api/cart/items/2", `{"amount":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decodeCart(t, rec).Items[0].Amount)

	rec = env.do(t, http.MethodPut, "/api/cart/items/2", `{"amount":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decodeCart(t, rec).Items[0].Amount)

	rec = env.do(t, http.MethodPut, "/api/cart/items/2", `{"amount":6}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/cart/items/1", `{"amount":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/cart/items/abc", `{"amount":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":1}`)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":2}`)

	rec := env.do(t, http.MethodDelete, "/api/cart/items/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeCart(t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(2), view.Items[0].ID)

	rec = env.do(t, http.MethodDelete, "/api/cart/items/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, service.ErrRemoveProduct.Error(), decodeError(t, rec).Error)
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":1}`)

	rec := env.do(t, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
	assert.Empty(t, env.store.Cart())
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`"ok"`)))
}

func TestRequestID_Propagated(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

// stalledInventory answers only when the caller gives up.
type stalledInventory struct{}

func (stalledInventory) GetStock(ctx context.Context, productID int64) (domain.Stock, error) {
	<-ctx.Done()
	return domain.Stock{}, ctx.Err()
}

func (stalledInventory) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	<-ctx.Done()
	return domain.Product{}, ctx.Err()
}

var _ port.InventoryService = stalledInventory{}

func TestAddItem_TimesOutWithRouteDeadline(t *testing.T) {
	log, _ := test.NewNullLogger()
	notices := service.NewNoticeQueue(10)
	t.Cleanup(notices.Close)

	store, err := service.NewCartStore(context.Background(), stalledInventory{}, storage.NewMemoryAdapter(), notices, service.WithLogger(log))
	require.NoError(t, err)
	hub := NewHub(store, log)
	t.Cleanup(hub.Close)
	router := NewRouter(NewHTTPHandler(store, 50*time.Millisecond), hub, log)

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"product_id":1}`))
	rec := httptest.NewRecorder()
	start := time.Now()
	router.ServeHTTP(rec, req)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "timeout", resp.Code)
	assert.Equal(t, service.ErrAddProduct.Error(), resp.Error)
	assert.Empty(t, store.Cart())
}
