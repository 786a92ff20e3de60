package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/port"
)

// MySQLAdapter serves two roles: a key/value PersistentStore over the
// kv_store table, and a read-only InventoryService over products and stock.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx, `SELECT v FROM kv_store WHERE k = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query kv_store: %w", err)
	}

	return value, nil
}

func (m *MySQLAdapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO kv_store (k, v) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE v = VALUES(v)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert kv_store: %w", err)
	}

	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLAdapter) GetStock(ctx context.Context, productID int64) (domain.Stock, error) {
	stock := domain.Stock{ID: productID}
	err := m.db.QueryRowContext(ctx, `
		SELECT amount FROM stock WHERE product_id = ?`, productID,
	).Scan(&stock.Amount)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stock{}, port.ErrProductNotFound
	}
	if err != nil {
		return domain.Stock{}, fmt.Errorf("query stock: %w", err)
	}

	return stock, nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, title, price, image FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Image)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, port.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("query product: %w", err)
	}

	return p, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, title, price, image FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Image); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// Seed upserts products and stock levels in one transaction.
func (m *MySQLAdapter) Seed(ctx context.Context, products []domain.Product, stock []domain.Stock) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (id, title, price, image) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE title = VALUES(title), price = VALUES(price), image = VALUES(image)`,
			p.ID, p.Title, p.Price, p.Image,
		)
		if err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
	}

	for _, s := range stock {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock (product_id, amount) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE amount = VALUES(amount)`,
			s.ID, s.Amount,
		)
		if err != nil {
			return fmt.Errorf("upsert stock %d: %w", s.ID, err)
		}
	}

	return tx.Commit()
}
