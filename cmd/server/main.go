package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"veriseal/internal/certificate/assets"
	"veriseal/internal/certificate/handler"
	"veriseal/internal/certificate/issuer"
	certmetrics "veriseal/internal/certificate/metrics"
	"veriseal/internal/certificate/ports"
	"veriseal/internal/certificate/render"
	"veriseal/internal/certificate/render/raster"
	"veriseal/internal/certificate/resolver"
	"veriseal/internal/certificate/store/blob"
	"veriseal/internal/certificate/store/record"
	"veriseal/internal/platform/config"
	"veriseal/internal/platform/httpserver"
	"veriseal/internal/platform/logger"
	platformmetrics "veriseal/internal/platform/metrics"
	platformredis "veriseal/internal/platform/redis"
	auditkafka "veriseal/pkg/platform/audit/kafka"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	registry := platformmetrics.NewRegistry()

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		records ports.RecordStore
		blobs   ports.BlobStore
		pool    *pgxpool.Pool
	)
	if cfg.Postgres.DSN != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		recordStore := record.NewPostgres(pool)
		blobStore := blob.NewPostgres(pool)
		if err := recordStore.Migrate(ctx); err != nil {
			log.Error("migrate certificate records", "error", err)
			os.Exit(1)
		}
		if err := blobStore.Migrate(ctx); err != nil {
			log.Error("migrate certificate blobs", "error", err)
			os.Exit(1)
		}
		records = recordStore
		blobs = blobStore
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		records = record.NewInMemoryStore()
		blobs = blob.NewInMemoryStore()
	}

	// Optional Redis read-through cache on the duplicate-check lookup.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		records = record.NewCached(records, redisClient.Client,
			record.WithTTL(cfg.Redis.CacheTTL),
			record.WithCacheLogger(log),
		)
	}

	// Optional Kafka audit trail; without brokers, audit stays in the logs.
	var auditPublisher ports.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := auditkafka.NewPublisher(cfg.Kafka.Brokers,
			auditkafka.WithTopic(cfg.Kafka.Topic),
			auditkafka.WithLogger(log),
		)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
	}

	// Rendering pipeline.
	rasterizer, err := raster.New()
	if err != nil {
		log.Error("build rasterizer", "error", err)
		os.Exit(1)
	}
	pipeline, err := render.New(rasterizer, assets.NewHTTPLoader(),
		render.WithLogger(log),
		render.WithAssetTimeout(cfg.Export.AssetTimeout),
	)
	if err != nil {
		log.Error("build render pipeline", "error", err)
		os.Exit(1)
	}

	classifier, err := resolver.New(records, resolver.WithLogger(log))
	if err != nil {
		log.Error("build resolver", "error", err)
		os.Exit(1)
	}

	issuerOpts := []issuer.Option{
		issuer.WithLogger(log),
		issuer.WithMetrics(certmetrics.New(registry)),
	}
	if auditPublisher != nil {
		issuerOpts = append(issuerOpts, issuer.WithAuditPublisher(auditPublisher))
	}
	issuance, err := issuer.New(classifier, pipeline, records, blobs, issuerOpts...)
	if err != nil {
		log.Error("build issuer", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	handler.New(issuance, records, blobs, log,
		handler.WithRequestTimeout(cfg.Server.RequestTimeout),
	).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", platformmetrics.Handler(registry))

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting veriseal", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
