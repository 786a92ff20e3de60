package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rl1809/rocketshoes-cart/internal/adapter/handler"
	"github.com/rl1809/rocketshoes-cart/internal/adapter/inventory"
	"github.com/rl1809/rocketshoes-cart/internal/adapter/storage"
	"github.com/rl1809/rocketshoes-cart/internal/config"
	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
	"github.com/rl1809/rocketshoes-cart/internal/core/service"
	"github.com/rl1809/rocketshoes-cart/internal/logger"
	"github.com/rl1809/rocketshoes-cart/internal/port"
	"github.com/rl1809/rocketshoes-cart/internal/telemetry"
)

const healthInterval = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, "cart-server", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("failed to shut down tracer provider")
		}
	}()

	// MySQL is opened lazily: only when a backend needs it
	var db *sql.DB
	openDB := func() (*sql.DB, error) {
		if db != nil {
			return db, nil
		}
		var err error
		db, err = openMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		log.Info("connected to mysql")
		return db, nil
	}
	defer func() {
		if db != nil {
			db.Close()
		}
	}()

	store, closeStore, err := newPersistentStore(ctx, cfg, log, openDB)
	if err != nil {
		return err
	}
	defer closeStore()

	inv, err := newInventory(cfg, log, openDB)
	if err != nil {
		return err
	}

	notices := service.NewNoticeQueue(cfg.NoticeQueueSize)

	cartStore, err := service.NewCartStore(ctx, inv, store, notices,
		service.WithKey(cfg.CartKey),
		service.WithLogger(log.WithField("component", "cart")),
	)
	if err != nil {
		return fmt.Errorf("restore cart: %w", err)
	}
	log.WithField("items", cartStore.Cart().Size()).Info("cart restored")

	hub := handler.NewHub(cartStore, log.WithField("component", "ws"))
	unsubscribe := cartStore.Subscribe(hub.PublishCart)
	defer unsubscribe()

	// Start notice workers
	var workers errgroup.Group
	for i := 0; i < cfg.NoticeWorkers; i++ {
		id := i
		workers.Go(func() error {
			workerLoop(id, notices.GetNoticeQueue(), hub, log)
			return nil
		})
	}
	log.Infof("started %d notice workers", cfg.NoticeWorkers)

	// gRPC server: health and reflection
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)
	reporter := handler.NewHealthReporter(healthSrv, cartStore, healthInterval, log.WithField("component", "health"))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	httpHandler := handler.NewHTTPHandler(cartStore, cfg.RequestTimeout)
	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     otelhttp.NewHandler(handler.NewRouter(httpHandler, hub, log), "cart-http"),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("gRPC server listening on %s", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return reporter.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP server forced to shutdown")
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	err = g.Wait()

	// Close notice queue and wait for workers
	notices.Close()
	workers.Wait()
	hub.Close()
	log.Info("workers stopped")

	return err
}

func workerLoop(id int, queue <-chan domain.Notice, hub *handler.Hub, log logrus.FieldLogger) {
	for notice := range queue {
		log.WithFields(logrus.Fields{
			"worker":     id,
			"notice_id":  notice.ID,
			"product_id": notice.ProductID,
			"level":      notice.Level,
		}).Warn(notice.Message)

		hub.PublishNotice(notice)
	}
}

func openMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	if err := storage.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newPersistentStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, openDB func() (*sql.DB, error)) (port.PersistentStore, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		log.Info("connected to redis")
		return storage.NewRedisAdapter(rdb), func() { rdb.Close() }, nil

	case config.BackendMySQL:
		db, err := openDB()
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMySQLAdapter(db), func() {}, nil

	default:
		log.Warn("using in-memory storage, the cart will not survive a restart")
		return storage.NewMemoryAdapter(), func() {}, nil
	}
}

func newInventory(cfg *config.Config, log logrus.FieldLogger, openDB func() (*sql.DB, error)) (port.InventoryService, error) {
	switch cfg.InventoryBackend {
	case config.BackendHTTP:
		return inventory.NewHTTPClient(cfg.InventoryURL, cfg.InventoryTimeout, log.WithField("component", "inventory")), nil

	case config.BackendMySQL:
		db, err := openDB()
		if err != nil {
			return nil, err
		}
		return storage.NewMySQLAdapter(db), nil

	default:
		seed, err := inventory.LoadSeedFile(cfg.InventorySeedFile)
		if err != nil {
			return nil, err
		}
		return inventory.NewMemoryCatalog(seed), nil
	}
}
