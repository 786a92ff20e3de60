package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/port"
)

const (
	DefaultCartKey = "@RocketShoes:cart"
	notifyTimeout  = time.Second
)

// CartStore holds the cart and keeps it in sync with the persistent store.
//
// Mutations are serialized; each one computes the next cart on a copy,
// persists it, and only then replaces the in-memory snapshot. Subscribers are
// called after every committed mutation and must not call back into the
// mutating methods.
type CartStore struct {
	inventory port.InventoryService
	storage   port.PersistentStore
	notifier  port.Notifier
	log       logrus.FieldLogger
	key       string

	opMu sync.Mutex

	mu     sync.RWMutex
	cart   domain.Cart
	subs   map[uint64]func(domain.Cart)
	nextID uint64
}

type Option func(*CartStore)

func WithKey(key string) Option {
	return func(s *CartStore) {
		s.key = key
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *CartStore) {
		s.log = log
	}
}

// NewCartStore restores the cart saved under the store key. A missing or
// unparsable value yields an empty cart; an unreachable store is an error.
func NewCartStore(ctx context.Context, inventory port.InventoryService, storage port.PersistentStore, notifier port.Notifier, opts ...Option) (*CartStore, error) {
	s := &CartStore{
		inventory: inventory,
		storage:   storage,
		notifier:  notifier,
		log:       logrus.StandardLogger(),
		key:       DefaultCartKey,
		cart:      domain.Cart{},
		subs:      make(map[uint64]func(domain.Cart)),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := storage.Get(ctx, s.key)
	if errors.Is(err, port.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.WithError(err).WithField("key", s.key).Warn("stored cart is unparsable, starting empty")
		return s, nil
	}
	s.cart = domain.Sanitize(items)
	return s, nil
}

// Cart returns a copy of the last committed cart.
func (s *CartStore) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Subscribe registers fn to receive every committed cart. The returned
// function removes the subscription.
func (s *CartStore) Subscribe(fn func(domain.Cart)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *CartStore) AddProduct(ctx context.Context, productID int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrAddProduct, err))
	}

	current := s.Cart()
	existing, exists := current.Find(productID)

	stock, err := s.inventory.GetStock(ctx, productID)
	if err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: get stock: %w", ErrAddProduct, err))
	}

	amount := existing.Amount + 1
	if amount > stock.Amount {
		return s.fail(ctx, productID, ErrOutOfStock)
	}

	var next domain.Cart
	if exists {
		next = current.WithAmount(productID, amount)
	} else {
		product, err := s.inventory.GetProduct(ctx, productID)
		if err != nil {
			return s.fail(ctx, productID, fmt.Errorf("%w: get product: %w", ErrAddProduct, err))
		}
		next = current.Append(domain.LineItem{Product: product, Amount: 1})
	}

	if err := s.commit(ctx, next); err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrAddProduct, err))
	}
	return nil
}

func (s *CartStore) RemoveProduct(ctx context.Context, productID int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrRemoveProduct, err))
	}

	current := s.Cart()
	if current.IndexOf(productID) < 0 {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrRemoveProduct, ErrItemNotFound))
	}

	if err := s.commit(ctx, current.Without(productID)); err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrRemoveProduct, err))
	}
	return nil
}

// UpdateProductAmount sets the amount of a product already in the cart.
// A non-positive amount is ignored without contacting the inventory.
func (s *CartStore) UpdateProductAmount(ctx context.Context, productID int64, amount int) error {
	if amount <= 0 {
		return nil
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrUpdateAmount, err))
	}

	stock, err := s.inventory.GetStock(ctx, productID)
	if err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: get stock: %w", ErrUpdateAmount, err))
	}
	if amount > stock.Amount {
		return s.fail(ctx, productID, ErrOutOfStock)
	}

	current := s.Cart()
	if current.IndexOf(productID) < 0 {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrUpdateAmount, ErrItemNotFound))
	}

	if err := s.commit(ctx, current.WithAmount(productID, amount)); err != nil {
		return s.fail(ctx, productID, fmt.Errorf("%w: %w", ErrUpdateAmount, err))
	}
	return nil
}

// Clear empties the cart, e.g. after checkout.
func (s *CartStore) Clear(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return s.fail(ctx, 0, fmt.Errorf("%w: %w", ErrClearCart, err))
	}

	if err := s.commit(ctx, domain.Cart{}); err != nil {
		return s.fail(ctx, 0, fmt.Errorf("%w: %w", ErrClearCart, err))
	}
	return nil
}

func (s *CartStore) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *CartStore) commit(ctx context.Context, next domain.Cart) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}

	s.mu.Lock()
	s.cart = next
	subs := make([]func(domain.Cart), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.Clone())
	}
	return nil
}

func (s *CartStore) fail(ctx context.Context, productID int64, err error) error {
	s.log.WithError(err).WithField("product_id", productID).Info("cart operation rejected")

	notice := domain.Notice{
		ID:        uuid.NewString(),
		Level:     domain.NoticeError,
		Message:   UserMessage(err),
		ProductID: productID,
		CreatedAt: time.Now(),
	}
	// the operation context may already be expired; the notice must still go out
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if nerr := s.notifier.Notify(notifyCtx, notice); nerr != nil {
		s.log.WithError(nerr).Warn("failed to deliver notice")
	}
	return err
}
