package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/sanemos/support-app/internal/api"
	"github.com/sanemos/support-app/internal/chat"
	"github.com/sanemos/support-app/internal/completion"
	"github.com/sanemos/support-app/internal/flags"
	"github.com/sanemos/support-app/internal/messaging"
	"github.com/sanemos/support-app/internal/moderation"
	"github.com/sanemos/support-app/internal/modlog"
	"github.com/sanemos/support-app/internal/ratelimit"
	"github.com/sanemos/support-app/internal/strikes"
)

func main() {
	log.Println("Starting Sanemos API server...")

	config := api.DefaultServerConfig()
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		config.ListenAddr = v
	}

	// --- Postgres ---
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "postgres://localhost:5432/sanemos?sslmode=disable"
	}

	migrationsPath := "file://migrations"
	if v := os.Getenv("MIGRATIONS_PATH"); v != "" {
		migrationsPath = v
	}
	if err := runMigrations(migrationsPath, databaseURL); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("failed to open Postgres: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	cancel()

	// --- Redis ---
	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancel()

	// --- NATS ---
	natsConfig := messaging.DefaultNATSConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		natsConfig.URL = v
	}
	natsConfig.Name = "sanemos-api"
	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// --- Completion backend ---
	svc, err := completion.NewOpenAIService(completion.DefaultOpenAIConfig())
	if err != nil {
		log.Fatalf("failed to initialize completion backend: %v", err)
	}

	// --- Core wiring ---
	gateway := moderation.NewGateway(svc, flags.NewPGProvider(db))
	ledger := strikes.NewLedger(db)
	limiter := ratelimit.NewLimiter(rdb)
	chatStore := chat.NewStore(db)
	sender := chat.NewSender(chatStore, gateway, ledger, svc, natsClient, limiter)
	reviews := modlog.NewStore(db)

	server := api.NewServer(config, sender, gateway, natsClient, reviews)

	log.Printf("Sanemos API server running")
	log.Printf("  listen_addr: %s", config.ListenAddr)
	log.Printf("  redis_addr:  %s", redisAddr)
	log.Printf("  nats_url:    %s", natsConfig.URL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down...", sig)
	case err := <-errCh:
		log.Printf("server error: %v, shutting down...", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	natsClient.Close()
	rdb.Close()
	db.Close()
}

// runMigrations applies pending schema migrations. A missing migrations
// directory is fatal; an already-current schema is not.
func runMigrations(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
