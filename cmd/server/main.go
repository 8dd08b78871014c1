package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/sindri/internal"
	"github.com/dukerupert/sindri/internal/cartstore"
	"github.com/dukerupert/sindri/internal/catalog"
	"github.com/dukerupert/sindri/internal/directory"
	"github.com/dukerupert/sindri/internal/domain"
	"github.com/dukerupert/sindri/internal/fraud"
	"github.com/dukerupert/sindri/internal/inventory"
	"github.com/dukerupert/sindri/internal/memory"
	"github.com/dukerupert/sindri/internal/notify"
	"github.com/dukerupert/sindri/internal/postgres"
	"github.com/dukerupert/sindri/internal/service"
	"github.com/dukerupert/sindri/internal/telemetry"
	"github.com/dukerupert/sindri/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Prometheus metrics
	metrics := telemetry.NewBusinessMetrics("sindri")

	// Initialize the order store. Postgres is the durable store; outside
	// prod a missing database degrades to the in-memory store so the
	// daemon stays runnable on a laptop.
	var orders domain.OrderStore

	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		sqlDB = nil
		if cfg.Env == "prod" {
			return fmt.Errorf("database ping failed: %w", err)
		}
		logger.Warn("Database unreachable, falling back to in-memory order store", "error", err)
		orders = memory.NewOrderStore()
	} else {
		defer sqlDB.Close()
		logger.Info("Database connection established")

		// Run migrations
		logger.Info("Running database migrations...")
		if err := internal.RunMigrations(sqlDB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		// Initialize pgx connection pool for application queries
		pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		orders = postgres.NewOrderStore(pool)
	}

	// Initialize the cart store. Redis keeps carts across restarts and
	// handles expiry natively; the in-memory store is for development.
	var carts cartstore.Store = cartstore.NewMemory()
	if cfg.Redis.Enabled {
		logger.Info("Connecting to Redis...", "url", cfg.Redis.URL)
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		defer client.Close()
		carts = cartstore.NewRedis(client, cfg.Redis.CartTTL)
		logger.Info("Redis connection established")
	}

	// Initialize collaborators and the order service graph
	catalogStore := catalog.NewMemory()
	directoryStore := directory.NewMemory()
	guard := inventory.NewGuard()
	analyzer := fraud.NewAnalyzer(nil, cfg.Fraud.NarrativeTimeout, metrics.NarrativeFailures, logger)

	orderSvc := service.NewOrderService(orders, carts, catalogStore, directoryStore, guard, analyzer, metrics, logger)

	// Initialize the notification sink
	var sink notify.Sink = notify.NoopSink{}
	if cfg.Nats.Enabled {
		logger.Info("Connecting to NATS...", "url", cfg.Nats.URL)
		nc, err := nats.Connect(cfg.Nats.URL, nats.Name("sindri-notifier"))
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer nc.Drain()
		sink = notify.NewNATSSink(nc)
		logger.Info("NATS connection established")
	} else {
		logger.Info("No broker configured, status notifications will be discarded")
	}

	// Start the notification dispatcher
	notifier := worker.NewNotifier(orders, sink, metrics, worker.Config{
		PollInterval: cfg.Notifier.PollInterval,
		BatchSize:    cfg.Notifier.BatchSize,
	}, logger)

	go func() {
		if err := notifier.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Notifier stopped", "error", err)
		}
	}()

	// Start the review backlog monitor
	monitor := worker.NewReviewMonitor(orderSvc, metrics, 0, logger)
	go func() {
		if err := monitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Review monitor stopped", "error", err)
		}
	}()

	mux := http.NewServeMux()

	// Metrics endpoint (should be protected in production via firewall)
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if sqlDB != nil {
			if err := sqlDB.PingContext(req.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("Shutdown complete")

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
