package storage

import (
	"context"
	"sync"

	"github.com/rl1809/rocketshoes-cart/internal/port"
)

// MemoryAdapter keeps values in process memory. Used for local runs and tests.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[string][]byte)}
}

func (m *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, port.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryAdapter) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryAdapter) Ping(ctx context.Context) error {
	return nil
}
