package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/sanemos/support-app/internal/completion"
	"github.com/sanemos/support-app/internal/flags"
	"github.com/sanemos/support-app/internal/messaging"
	"github.com/sanemos/support-app/internal/moderation"
	"github.com/sanemos/support-app/internal/modlog"
)

// moderationTimeout bounds one queued evaluation end to end.
const moderationTimeout = 60 * time.Second

func main() {
	log.Println("Starting Sanemos moderation worker...")

	// --- Postgres ---
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "postgres://localhost:5432/sanemos?sslmode=disable"
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

	// --- NATS ---
	natsConfig := messaging.DefaultNATSConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		natsConfig.URL = v
	}
	natsConfig.Name = "sanemos-moderator"
	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// --- Completion backend ---
	svc, err := completion.NewOpenAIService(completion.DefaultOpenAIConfig())
	if err != nil {
		log.Fatalf("failed to initialize completion backend: %v", err)
	}

	gateway := moderation.NewGateway(svc, flags.NewPGProvider(db))
	reviews := modlog.NewStore(db)

	// Consume queued moderation requests.
	err = natsClient.SubscribeModerationSubmit(func(data []byte) {
		var req moderation.Request
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("[moderator] failed to unmarshal request: %v", err)
			return
		}

		item, err := req.ContentItem()
		if err != nil {
			log.Printf("[moderator] bad request class=%s ref=%s: %v", req.Class, req.ItemRef, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), moderationTimeout)
		verdict := gateway.Moderate(ctx, item)
		cancel()

		log.Printf("[moderator] class=%s ref=%s decision=%s confidence=%.2f",
			req.Class, req.ItemRef, verdict.Decision, verdict.Confidence)

		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := reviews.Create(ctx, &modlog.Entry{
			Class:       string(req.Class),
			ItemRef:     req.ItemRef,
			SubmitterID: req.SubmitterID,
			Decision:    string(verdict.Decision),
			Reason:      verdict.Reason,
			Confidence:  verdict.Confidence,
			AutoApprove: verdict.AutoApprove,
		}); err != nil {
			log.Printf("[moderator] review log write class=%s ref=%s: %v", req.Class, req.ItemRef, err)
		}
		cancel()

		result := moderation.Result{
			Class:       req.Class,
			ItemRef:     req.ItemRef,
			SubmitterID: req.SubmitterID,
			Verdict:     verdict,
		}
		respData, err := json.Marshal(result)
		if err != nil {
			log.Printf("[moderator] failed to marshal result: %v", err)
			return
		}
		if err := natsClient.PublishModerationResult(string(req.Class), respData); err != nil {
			log.Printf("[moderator] failed to publish result: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to moderation queue: %v", err)
	}

	log.Printf("Sanemos moderation worker running")
	log.Printf("  nats_url: %s", natsConfig.URL)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	natsClient.Close()
	db.Close()
}
