// The webhook-worker binary drains the webhook delivery queue. Run any
// number of replicas; the claim query leases rows so replicas never fight
// over a delivery.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // Postgres driver

	"github.com/nexuscargo/backend/internal/config"
	"github.com/nexuscargo/backend/internal/secrets"
	"github.com/nexuscargo/backend/internal/store"
	"github.com/nexuscargo/backend/internal/webhooks"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("❌ Config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("❌ Worker requires DATABASE_URL; an in-memory queue has nothing to share")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("❌ Database open: %v", err)
	}
	pg := store.NewPostgres(db)
	if err := pg.HealthCheck(ctx); err != nil {
		log.Fatalf("❌ Database ping: %v", err)
	}

	resolver, err := secrets.NewResolver(ctx, cfg.Secrets.GCPProject, cfg.IsDev(), cfg.Secrets.RequireSecretManagerInNonDev)
	if err != nil {
		log.Fatalf("❌ Secrets: %v", err)
	}

	service := webhooks.NewService(pg, resolver, cfg.Webhooks.MaxRetries,
		time.Duration(cfg.Integrations.TimeoutSeconds)*time.Second)

	worker := webhooks.NewWorker(service, 5*time.Second, cfg.Webhooks.BatchSize)
	worker.Run(ctx)
}
