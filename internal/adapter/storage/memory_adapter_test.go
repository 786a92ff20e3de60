package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rl1809/rocketshoes-cart/internal/port"
)

func TestMemoryAdapter(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	if _, err := adapter.Get(ctx, "cart"); !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	value := []byte("[]")
	if err := adapter.Set(ctx, "cart", value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value[0] = 'x'

	got, err := adapter.Get(ctx, "cart")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("stored value aliased caller buffer: %s", got)
	}
}
