package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/techstore/pos/internal/api"
	"github.com/techstore/pos/internal/cashier"
	"github.com/techstore/pos/internal/catalog"
	"github.com/techstore/pos/internal/checkout"
	"github.com/techstore/pos/internal/ledger"
	"github.com/techstore/pos/internal/publisher"
	"github.com/techstore/pos/internal/session"
	"github.com/techstore/pos/internal/stats"
	"github.com/techstore/pos/internal/store"
)

type Config struct {
	HTTPPort        string
	DBDriver        string
	DBDSN           string
	MigrationsDir   string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", store.DriverSQLite),
		DBDSN:           getEnv("DB_DSN", "file:pos.db"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "./migrations/" + cfg.DBDriver
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	st, err := store.Open(&store.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.RunMigrations(cfg.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Store ready (driver = %s)", cfg.DBDriver)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Printf("Redis ping succeeded")
	}

	catalogRepo := catalog.NewRepository(st)
	ledgerRepo := ledger.New(st)
	cashierRepo := cashier.NewRepository(st)
	sessions := session.NewRegistry()
	coordinator := checkout.NewCoordinator(st, catalogRepo, ledgerRepo)
	statsService := stats.NewService(st, redisClient)

	// Outbox poller drains committed sales to Kafka when brokers are
	// configured; without them sales stay queued in the outbox table.
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	if cfg.KafkaBrokers != "" {
		poller := publisher.NewOutboxPoller(ledgerRepo, strings.Split(cfg.KafkaBrokers, ",")...)
		go poller.Run(pollerCtx)
		log.Printf("Outbox poller publishing to %s", cfg.KafkaBrokers)
	}

	handler := api.NewHandler(catalogRepo, ledgerRepo, cashierRepo, sessions, coordinator, statsService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api/v1", handler.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("POS terminal daemon starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server stopped")
}
