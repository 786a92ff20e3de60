package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/rocketshoes-cart/internal/port"
)

func getRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisGet_Missing(t *testing.T) {
	client, _ := getRedisClient(t)
	adapter := NewRedisAdapter(client)

	_, err := adapter.Get(context.Background(), "@RocketShoes:cart")
	if !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestRedisSetGet(t *testing.T) {
	client, mr := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	value := []byte(`[{"id":1,"title":"Tênis","price":139.9,"image":"a.jpg","amount":2}]`)
	if err := adapter.Set(ctx, "@RocketShoes:cart", value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := adapter.Get(ctx, "@RocketShoes:cart")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("expected %s, got %s", value, got)
	}

	// Verify no expiry
	if ttl := mr.TTL("@RocketShoes:cart"); ttl != 0 {
		t.Errorf("expected no TTL, got %v", ttl)
	}
}

func TestRedisSet_Overwrites(t *testing.T) {
	client, _ := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	adapter.Set(ctx, "cart", []byte("[1]"))
	adapter.Set(ctx, "cart", []byte("[]"))

	got, _ := adapter.Get(ctx, "cart")
	if string(got) != "[]" {
		t.Errorf("expected [], got %s", got)
	}
}

func TestRedisSet_Concurrent(t *testing.T) {
	client, _ := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := adapter.Set(ctx, fmt.Sprintf("cart:%d", i), []byte("[]")); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		if _, err := adapter.Get(ctx, fmt.Sprintf("cart:%d", i)); err != nil {
			t.Errorf("cart:%d missing: %v", i, err)
		}
	}
}

func TestRedisPing_ServerDown(t *testing.T) {
	client, mr := getRedisClient(t)
	adapter := NewRedisAdapter(client)

	if err := adapter.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.Close()
	if err := adapter.Ping(context.Background()); err == nil {
		t.Error("expected error after server shutdown")
	}
}
