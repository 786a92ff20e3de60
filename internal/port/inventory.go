package port

import (
	"context"
	"errors"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
)

var ErrProductNotFound = errors.New("product not found")

type InventoryService interface {
	// GetStock returns the purchasable quantity for a product
	GetStock(ctx context.Context, productID int64) (domain.Stock, error)

	// GetProduct returns display metadata (title, price, image) for a product
	GetProduct(ctx context.Context, productID int64) (domain.Product, error)
}

// ProductCatalog is the server side of the inventory API.
type ProductCatalog interface {
	InventoryService

	ListProducts(ctx context.Context) ([]domain.Product, error)
}
