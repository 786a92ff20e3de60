package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/rocketshoes-cart/internal/adapter/inventory"
	"github.com/rl1809/rocketshoes-cart/internal/adapter/storage"
	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/core/service"
	"github.com/rl1809/rocketshoes-cart/internal/logger"
)

const (
	cartKey       = "@RocketShoes:cart:stress"
	productID     = 1
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
)

func main() {
	ctx := context.Background()
	// rejected adds are expected here; keep the store quiet below warn
	log := logger.New("warn", "text")

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, cartKey)

	catalog := inventory.NewMemoryCatalog(inventory.Seed{
		Stock:    []domain.Stock{{ID: productID, Amount: initialStock}},
		Products: []domain.Product{{ID: productID, Title: "Tênis de Caminhada Leve Confortável", Price: 179.9}},
	})

	notices := service.NewNoticeQueue(queueSize)
	defer notices.Close()

	// Drain the notice queue in background
	go func() {
		for range notices.GetNoticeQueue() {
		}
	}()

	store, err := service.NewCartStore(ctx, catalog, storage.NewRedisAdapter(rdb), notices,
		service.WithKey(cartKey),
		service.WithLogger(log),
	)
	if err != nil {
		log.Fatalf("failed to create cart store: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var outOfStockCount atomic.Int32
	var otherCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := store.AddProduct(ctx, productID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrOutOfStock):
				outOfStockCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	outOfStock := outOfStockCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Stock:            %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Added:            %d\n", success)
	fmt.Printf("Out of stock:     %d\n", outOfStock)
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == int32(initialStock) && outOfStock == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d adds succeeded, %d were rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d out of stock, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, outOfStock)
	}

	item, _ := store.Cart().Find(productID)
	fmt.Printf("Cart Amount:      %d\n", item.Amount)

	// Verify persisted cart matches memory
	raw, err := rdb.Get(ctx, cartKey).Bytes()
	if err != nil {
		fmt.Printf("FAIL: persisted cart missing: %v\n", err)
		return
	}
	var persisted domain.Cart
	if err := json.Unmarshal(raw, &persisted); err != nil {
		fmt.Printf("FAIL: persisted cart unreadable: %v\n", err)
		return
	}

	stored, _ := persisted.Find(productID)
	if item.Amount == initialStock && stored.Amount == item.Amount {
		fmt.Println("PASS: Cart filled to stock and persisted value matches")
	} else {
		fmt.Printf("FAIL: Expected amount %d, memory %d, persisted %d\n", initialStock, item.Amount, stored.Amount)
	}
}
