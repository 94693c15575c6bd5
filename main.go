package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-events/internal/ai"
	"ms-events/internal/api"
	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/lock"
	"ms-events/internal/logger"
	"ms-events/internal/manifest"
	"ms-events/internal/notify"
	"ms-events/internal/payments"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func setupLocker(ctx context.Context, cfg *config.Config, log *logger.Logger) (lock.Locker, *redis.Client) {
	if !cfg.Redis.Enabled {
		log.Info("REDIS", "Redis disabled, using in-process publish lock")
		return lock.NewLocalLocker(cfg.Publish.LockTTL), nil
	}
	client, err := lock.Connect(ctx, cfg.Redis.Addr, log)
	if err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	return lock.NewRedisLocker(client, cfg.Publish.LockTTL, log), client
}

func setupProducer(ctx context.Context, cfg *config.Config, log *logger.Logger) kafka.Publisher {
	if !cfg.Kafka.Enabled {
		log.Info("KAFKA", "Kafka disabled, domain events are dropped")
		return kafka.NopPublisher{}
	}
	topics := []string{cfg.Kafka.Topics.ManifestPublished, cfg.Kafka.Topics.BookingConfirmed}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, topics, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Kafka.Brokers))
	return kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
		ManifestPublished: cfg.Kafka.Topics.ManifestPublished,
		BookingConfirmed:  cfg.Kafka.Topics.BookingConfirmed,
	}, log)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("CONFIG: .env file not found, using environment variables")
	}
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, "manifest-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		log, _ = logger.NewLogger("", "manifest-server")
	}
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	log.Info("APP", "Starting manifest server initialization")
	if cfg.Publish.AdminToken == "" {
		log.Warn("CONFIG", "ADMIN_TOKEN not set, admin endpoints will reject every request")
	}

	ctx := context.Background()

	locker, redisClient := setupLocker(ctx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer := setupProducer(ctx, cfg, log)
	defer producer.Close()

	var provider payments.Provider
	var catalog manifest.CatalogSyncer
	if cfg.PaymentsEnabled() {
		sp, err := payments.NewStripeProvider(cfg.Stripe.SecretKey, log)
		if err != nil {
			log.Fatal("STRIPE", fmt.Sprintf("Stripe setup failed: %v", err))
		}
		provider = sp
		catalog = payments.NewCatalog(sp, cfg.Publish.PublicURL, log)
	} else {
		log.Warn("STRIPE", "STRIPE_SECRET_KEY not set, catalog sync and checkout are disabled")
	}

	var completer ai.Completer
	if c, err := ai.NewOpenAICompleter(cfg.AI); err == nil {
		completer = c
		log.Info("AI", fmt.Sprintf("AI helpers enabled with model %s", cfg.AI.Model))
	} else {
		log.Warn("AI", "OPENAI_API_KEY not set, AI helpers are disabled")
	}

	writer := manifest.NewWriter(cfg.Publish.PublicDir)
	handler := &api.Handler{
		Publisher: &manifest.Publisher{
			Writer:          writer,
			Locker:          locker,
			Catalog:         catalog,
			Events:          producer,
			DefaultCurrency: cfg.Stripe.Currency,
			Logger:          log,
		},
		Uploads:        manifest.NewUploads(cfg.Publish.PublicDir),
		Manifest:       writer,
		Payments:       payments.NewCheckout(provider, cfg.Publish.PublicURL, log),
		Webhooks:       payments.NewWebhooks(cfg.Stripe.WebhookSecret, writer, notify.NewMailer(cfg.Email, log), producer, log),
		Generator:      ai.NewGenerator(completer, log),
		MaxUploadBytes: cfg.Publish.MaxUploadBytes,
		Logger:         log,
	}

	log.Info("HTTP", "Setting up router and middleware")
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      api.NewRouter(handler, cfg.Publish.AdminToken, cfg.Publish.PublicDir, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Manifest server running on %s, serving %s", cfg.Server.Port, cfg.Publish.PublicDir))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Manifest server shutdown complete")
	}
}
