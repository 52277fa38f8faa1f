package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/api"
	"github.com/majidtaherkhani/etf-service/internal/config"
	"github.com/majidtaherkhani/etf-service/internal/database"
	"github.com/majidtaherkhani/etf-service/internal/etf"
	"github.com/majidtaherkhani/etf-service/internal/kafka"
	"github.com/majidtaherkhani/etf-service/internal/logger"
	"github.com/majidtaherkhani/etf-service/internal/ratelimit"
	"github.com/majidtaherkhani/etf-service/internal/storage"
	"github.com/majidtaherkhani/etf-service/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	logger.SetGlobalLogger(logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Background archiving: S3 upload, audit row, optional Kafka event
	var queue *worker.Queue
	var archiver *etf.Archiver
	var producer *kafka.Producer
	if cfg.Background.Enabled {
		store, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("Object storage unavailable, upload archiving disabled")
		} else {
			var events etf.EventPublisher
			if len(cfg.Kafka.Brokers) > 0 {
				producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AnalysisTopic)
				events = producer
			}
			archiver = etf.NewArchiver(store, db, events, log.Logger)

			queue = worker.NewQueue(worker.Config{
				Workers:     cfg.Background.Workers,
				QueueSize:   cfg.Background.QueueSize,
				JobTimeout:  cfg.Background.JobTimeout,
				MaxAttempts: cfg.Background.MaxAttempts,
				RetryDelay:  cfg.Background.RetryDelay,
			}, log.Logger)
			queue.Start()
		}
	}

	var jobs etf.JobSubmitter
	if queue != nil {
		jobs = queue
	}
	service := etf.NewService(db, jobs, archiver, etf.Options{BackgroundEnabled: cfg.Background.Enabled}, log.Logger)

	// Price ingestion
	var consumer *kafka.PriceConsumer
	if len(cfg.Kafka.Brokers) > 0 {
		consumer = kafka.NewPriceConsumer(cfg.Kafka.Brokers, cfg.Kafka.PriceTopic, cfg.Kafka.GroupID, db, log.Logger)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Price consumer stopped")
			}
		}()
	}

	routerCfg := api.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Log:            log.Logger,
	}
	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, rate limiting will fail open")
		}
		routerCfg.Limiter = ratelimit.NewLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	handler := api.NewHandler(service, db, db, db, cfg.Server.MaxUploadBytes, log.Logger)
	router, err := api.SetupRoutes(handler, routerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid router configuration")
	}
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if queue != nil {
		if err := queue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Background queue did not drain")
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka producer")
		}
	}
	if rdb != nil {
		rdb.Close()
	}

	log.Info().Msg("Server stopped")
}
