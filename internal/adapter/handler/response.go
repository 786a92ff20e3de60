package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/rocketshoes-cart/internal/adapter/inventory"
	"github.com/rl1809/rocketshoes-cart/internal/core/service"
	"github.com/rl1809/rocketshoes-cart/internal/port"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps cart and inventory errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	switch {
	case errors.Is(err, service.ErrOutOfStock):
		status, code = http.StatusConflict, "out_of_stock"
	case errors.Is(err, service.ErrItemNotFound), errors.Is(err, port.ErrProductNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, inventory.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "inventory_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   service.UserMessage(err),
		Code:    code,
		Details: err.Error(),
	})
}
