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
	"github.com/redis/go-redis/v9"

	"github.com/nexuscargo/backend/internal/aeca"
	"github.com/nexuscargo/backend/internal/analytics"
	"github.com/nexuscargo/backend/internal/api"
	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/auth"
	"github.com/nexuscargo/backend/internal/aviqm"
	"github.com/nexuscargo/backend/internal/awb"
	"github.com/nexuscargo/backend/internal/config"
	"github.com/nexuscargo/backend/internal/dg"
	"github.com/nexuscargo/backend/internal/discrepancy"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/fiar"
	"github.com/nexuscargo/backend/internal/idempotency"
	"github.com/nexuscargo/backend/internal/ingestion"
	"github.com/nexuscargo/backend/internal/middleware"
	"github.com/nexuscargo/backend/internal/notifications"
	"github.com/nexuscargo/backend/internal/pipeline"
	"github.com/nexuscargo/backend/internal/review"
	"github.com/nexuscargo/backend/internal/rules"
	"github.com/nexuscargo/backend/internal/secrets"
	"github.com/nexuscargo/backend/internal/storage"
	"github.com/nexuscargo/backend/internal/store"
	"github.com/nexuscargo/backend/internal/validation"
	"github.com/nexuscargo/backend/internal/webhooks"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("❌ Config: %v", err)
	}
	log.Printf("🔥 Starting NexusCargo backend (env=%s)", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	var st store.Store
	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("❌ Database open: %v", err)
		}
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("❌ Migrate: %v", err)
		}
		st = pg
		log.Println("✅ Postgres store ready")
	} else {
		st = store.NewMemory()
		log.Println("⚠️  No DATABASE_URL set, using in-memory store")
	}

	// Event bus
	var bus events.Publisher
	if cfg.Events.Backend == "pubsub" {
		pb, err := events.NewPubSubEventBus(cfg.Events.GCPProject, cfg.Events.TopicPrefix)
		if err != nil {
			log.Fatalf("❌ Pub/Sub: %v", err)
		}
		defer pb.Close()
		bus = pb
	} else {
		memBus := events.NewEventBus()
		go notifications.NewNotifier(memBus).Run(ctx)
		bus = memBus
	}

	// Object storage
	var provider storage.Provider
	if cfg.Storage.Backend == "gcs" {
		provider, err = storage.NewGCSProvider(ctx, cfg.Storage.GCSBucket)
		if err != nil {
			log.Fatalf("❌ GCS: %v", err)
		}
	} else {
		provider = storage.NewLocalProvider(cfg.Storage.LocalRoot)
	}

	// Secrets
	resolver, err := secrets.NewResolver(ctx, cfg.Secrets.GCPProject, cfg.IsDev(), cfg.Secrets.RequireSecretManagerInNonDev)
	if err != nil {
		log.Fatalf("❌ Secrets: %v", err)
	}

	jwtSecret, err := resolver.Resolve(ctx, "secret-manager://jwt-signing-secret")
	if err != nil {
		log.Fatalf("❌ JWT secret: %v", err)
	}

	// Extraction backend
	var extractor pipeline.Extractor
	if cfg.AI.Backend == "gcp" {
		extractor, err = pipeline.NewDocumentAIExtractor(ctx, cfg.AI.GCPProject, cfg.AI.DocumentAILocation, cfg.AI.DocumentAIProcessor)
		if err != nil {
			log.Fatalf("❌ Document AI: %v", err)
		}
	} else {
		extractor = pipeline.NewMockExtractor()
	}

	// Services
	recorder := audit.NewRecorder(st)
	engine := rules.NewEngine(cfg.Validation.RulePackID, cfg.Validation.RulePackVersion)
	validator := validation.NewService(engine, bus, cfg.Validation.RulePackID, cfg.Validation.RulePackVersion)
	reviews := review.NewService(st, bus, recorder)

	ingest := ingestion.NewService(
		st, provider, bus, recorder,
		pipeline.NewPreprocessor(nil),
		pipeline.NewClassifier(),
		pipeline.NewExtractionService(extractor),
		validator, reviews,
		cfg.Pipeline.ReviewConfidenceThreshold,
	)

	hooks := webhooks.NewService(st, resolver, cfg.Webhooks.MaxRetries,
		time.Duration(cfg.Integrations.TimeoutSeconds)*time.Second)

	authSvc := auth.NewService(st, []byte(jwtSecret),
		time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.Auth.RefreshTokenTTLDays)*24*time.Hour)

	analyticsSvc := analytics.NewService(st, cfg.Analytics.ActiveLearningDir)

	var stations analytics.StationReporter = analytics.NoopStationReporter{}
	if !cfg.IsDev() && cfg.Analytics.BigQueryDataset != "" && cfg.Events.GCPProject != "" {
		stations, err = analytics.NewBigQueryStationReporter(ctx, cfg.Events.GCPProject, cfg.Analytics.BigQueryDataset)
		if err != nil {
			log.Fatalf("❌ BigQuery: %v", err)
		}
	}

	// Rate limiter
	var limiter middleware.Limiter
	rlCfg := middleware.RateLimitConfig{
		MaxRequests:   cfg.RateLimit.MaxRequests,
		WindowSeconds: cfg.RateLimit.WindowSeconds,
	}
	if cfg.RateLimit.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		limiter = middleware.NewRedisLimiter(client, rlCfg)
	} else {
		limiter = middleware.NewMemoryLimiter(rlCfg)
	}

	server := api.NewServer(api.Deps{
		Config:        cfg,
		Store:         st,
		Storage:       provider,
		Auth:          authSvc,
		Ingestion:     ingest,
		Reviews:       reviews,
		Audit:         recorder,
		Webhooks:      hooks,
		Discrepancies: discrepancy.NewWorkflow(st, bus, recorder),
		AWB:           awb.NewService(st, recorder, nil),
		AECA:          aeca.NewService(st, bus, recorder, nil),
		DG:            dg.NewService(st, recorder, reviews),
		AVIQM:         aviqm.NewService(st, recorder),
		FIAR:          fiar.NewService(st, recorder, nil),
		Analytics:     analyticsSvc,
		Stations:      stations,
		Guard:         idempotency.NewGuard(st),
		Limiter:       limiter,
	})

	// The embedded delivery worker drains the queue alongside the API. Scale
	// out by running cmd/webhook-worker replicas instead.
	worker := webhooks.NewWorker(hooks, 5*time.Second, cfg.Webhooks.BatchSize)
	go worker.Run(ctx)

	if err := server.Start(ctx); err != nil {
		log.Fatalf("❌ Server: %v", err)
	}
	log.Println("👋 Shutdown complete")
}
