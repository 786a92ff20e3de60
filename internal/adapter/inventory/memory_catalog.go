package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/port"
)

// Seed mirrors the db.json layout served by json-server.
type Seed struct {
	Stock    []domain.Stock   `json:"stock"`
	Products []domain.Product `json:"products"`
}

// MemoryCatalog is an in-process ProductCatalog.
type MemoryCatalog struct {
	mu       sync.RWMutex
	stock    map[int64]int
	products map[int64]domain.Product
}

func NewMemoryCatalog(seed Seed) *MemoryCatalog {
	c := &MemoryCatalog{
		stock:    make(map[int64]int, len(seed.Stock)),
		products: make(map[int64]domain.Product, len(seed.Products)),
	}
	for _, s := range seed.Stock {
		c.stock[s.ID] = s.Amount
	}
	for _, p := range seed.Products {
		c.products[p.ID] = p
	}
	return c
}

func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return seed, nil
}

func (c *MemoryCatalog) SetStock(productID int64, amount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stock[productID] = amount
}

func (c *MemoryCatalog) GetStock(ctx context.Context, productID int64) (domain.Stock, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	amount, ok := c.stock[productID]
	if !ok {
		return domain.Stock{}, port.ErrProductNotFound
	}
	return domain.Stock{ID: productID, Amount: amount}, nil
}

func (c *MemoryCatalog) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return domain.Product{}, port.ErrProductNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	products := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}
