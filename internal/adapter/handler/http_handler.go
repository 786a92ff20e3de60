package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/core/service"
)

const maxRequestBodySize = 1 << 20

type HTTPHandler struct {
	store   *service.CartStore
	timeout time.Duration
}

type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
}

type UpdateAmountRequest struct {
	Amount int `json:"amount"`
}

type ItemView struct {
	domain.LineItem
	Subtotal string `json:"subtotal"`
}

type CartView struct {
	Items []ItemView `json:"items"`
	Total string     `json:"total"`
	Size  int        `json:"size"`
}

func NewCartView(cart domain.Cart) CartView {
	items := make([]ItemView, 0, len(cart))
	for _, item := range cart {
		items = append(items, ItemView{
			LineItem: item,
			Subtotal: item.Subtotal().StringFixed(2),
		})
	}
	return CartView{
		Items: items,
		Total: cart.Total().StringFixed(2),
		Size:  cart.Size(),
	}
}

func NewHTTPHandler(store *service.CartStore, timeout time.Duration) *HTTPHandler {
	return &HTTPHandler{store: store, timeout: timeout}
}

// NewRouter assembles the cart API. Cart routes get their deadline from the
// timeout middleware; the websocket route is kept outside that group because
// its connections are long-lived.
func NewRouter(h *HTTPHandler, hub *Hub, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/ws", hub.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(h.timeout))
			r.Use(middleware.RequestSize(maxRequestBodySize))

			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{product_id}", h.UpdateAmount)
			r.Delete("/items/{product_id}", h.RemoveItem)
		})
	})

	return r
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewCartView(h.store.Cart()))
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	if err := h.store.AddProduct(r.Context(), req.ProductID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, NewCartView(h.store.Cart()))
}

// UpdateAmount ignores non-positive amounts and answers with the unchanged cart.
func (h *HTTPHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.store.UpdateProductAmount(r.Context(), productID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewCartView(h.store.Cart()))
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.store.RemoveProduct(r.Context(), productID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewCartView(h.store.Cart()))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewCartView(h.store.Cart()))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return id, true
}
