package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rl1809/rocketshoes-cart/internal/adapter/handler"
	"github.com/rl1809/rocketshoes-cart/internal/adapter/inventory"
	"github.com/rl1809/rocketshoes-cart/internal/adapter/storage"
	"github.com/rl1809/rocketshoes-cart/internal/config"
	"github.com/rl1809/rocketshoes-cart/internal/logger"
	"github.com/rl1809/rocketshoes-cart/internal/port"
	"github.com/rl1809/rocketshoes-cart/internal/telemetry"
)

// The inventory server answers GET /stock/{id} and GET /products[/{id}].
// INVENTORY_BACKEND=mysql serves from MySQL and, when INVENTORY_SEED_FILE
// exists, upserts its contents first; any other backend serves the seed file
// from memory.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, "inventory-server", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer tp.Shutdown(context.Background())

	var catalog port.ProductCatalog
	if cfg.InventoryBackend == config.BackendMySQL {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to open mysql: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		if err := storage.RunMigrations(db); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if seed, err := inventory.LoadSeedFile(cfg.InventorySeedFile); err == nil {
			if err := mysqlAdapter.Seed(ctx, seed.Products, seed.Stock); err != nil {
				log.Fatalf("failed to seed: %v", err)
			}
			log.WithField("products", len(seed.Products)).Info("seeded inventory")
		}
		catalog = mysqlAdapter
	} else {
		seed, err := inventory.LoadSeedFile(cfg.InventorySeedFile)
		if err != nil {
			log.Fatalf("failed to load seed: %v", err)
		}
		catalog = inventory.NewMemoryCatalog(seed)
		log.WithField("products", len(seed.Products)).Info("loaded inventory")
	}

	srv := &http.Server{
		Addr:        cfg.InventoryHTTPAddr,
		Handler:     otelhttp.NewHandler(handler.NewInventoryRouter(handler.NewInventoryHandler(catalog), log), "inventory-http"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Infof("inventory server listening on %s", cfg.InventoryHTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	log.Info("server exited")
}
