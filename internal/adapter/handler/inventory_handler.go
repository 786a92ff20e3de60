package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/rocketshoes-cart/internal/port"
)

// InventoryHandler serves the read-only inventory API consumed by the cart.
type InventoryHandler struct {
	catalog port.ProductCatalog
}

func NewInventoryHandler(catalog port.ProductCatalog) *InventoryHandler {
	return &InventoryHandler{catalog: catalog}
}

func NewInventoryRouter(h *InventoryHandler, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/stock/{id}", h.GetStock)

	return r
}

func (h *InventoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to list products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *InventoryHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	stock, err := h.catalog.GetStock(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return 0, false
	}
	return id, true
}

func writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, port.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", "inventory lookup failed")
}
