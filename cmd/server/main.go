// Command server runs the identity verification service.
//
// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"basera/internal/platform/config"
	"basera/internal/platform/httpserver"
	"basera/internal/platform/logger"
	platformmetrics "basera/internal/platform/metrics"
	"basera/internal/platform/middleware"
	platformredis "basera/internal/platform/redis"
	"basera/internal/platform/token"
	"basera/internal/users"
	"basera/internal/verification/adapters"
	"basera/internal/verification/handler"
	verifmetrics "basera/internal/verification/metrics"
	"basera/internal/verification/ratelimit"
	"basera/internal/verification/service"
	"basera/internal/verification/store"
	storememory "basera/internal/verification/store/memory"
	storepostgres "basera/internal/verification/store/postgres"
	id "basera/pkg/domain"
	audit "basera/pkg/platform/audit"
	auditkafka "basera/pkg/platform/audit/kafka"
	"basera/pkg/platform/audit/publisher"
	auditmemory "basera/pkg/platform/audit/store/memory"
	auditpostgres "basera/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: postgres when a DSN is configured, in-memory otherwise.
	var (
		recordStore store.RecordStore
		userStore   users.Store
		auditStore  audit.Store
	)
	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}

		recordStore = storepostgres.New(pool)
		userStore = users.NewPostgresStore(db)
		auditStore = auditpostgres.New(db)
		log.Info("using postgres stores")
	} else {
		recordStore = storememory.New()
		userStore = users.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	// Redis backs the upload rate limiter; absent, fall back in-process.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var limiter ratelimit.Limiter
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.Verification.UploadsPerHour, time.Hour, log)
		log.Info("redis rate limiter enabled")
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.Verification.UploadsPerHour, time.Hour)
		log.Warn("REDIS_URL not set, using in-process rate limiter")
	}

	// Audit pipeline: primary store, optional Kafka mirror, async buffer.
	auditOpts := []publisher.Option{
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		auditOpts = append(auditOpts, publisher.WithSink(sink))
		log.Info("kafka audit sink enabled", slog.String("topic", cfg.Kafka.AuditTopic))
	}
	auditPub := publisher.NewPublisher(auditStore, auditOpts...)
	defer auditPub.Close()

	// Adapters: local implementations wrapped in per-call timeouts. A
	// deployment swaps these for S3/OCR/biometric clients behind the same
	// interfaces.
	blobs := adapters.NewLocalBlobStore()
	ocr := adapters.ExtractorWithTimeout(&adapters.LocalExtractor{Blobs: blobs}, cfg.Adapters.Timeout)
	faces := adapters.MatcherWithTimeout(&adapters.LocalMatcher{Similarity: 90}, cfg.Adapters.Timeout)
	blobStore := adapters.BlobStoreWithTimeout(blobs, cfg.Adapters.Timeout)
	notifier := &adapters.LogNotifier{Logger: log}

	svc := service.New(
		recordStore,
		userStore,
		blobStore,
		ocr,
		faces,
		log,
		service.Config{
			AutoVerify:         cfg.Verification.AutoVerify,
			MaxUploadBytes:     cfg.Verification.MaxUploadBytes,
			FaceMatchThreshold: 75,
		},
		service.WithLimiter(limiter),
		service.WithAudit(auditPub),
		service.WithMetrics(verifmetrics.New()),
		service.WithNotifier(notifier),
	)

	verifHandler := handler.New(svc, log, cfg.Verification.MaxUploadBytes)
	verifier := token.NewVerifier(cfg.Server.JWTSigningKey)
	httpMetrics := platformmetrics.New()

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(httpMetrics.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(verifier, log))
		verifHandler.Register(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(verifier, log))
		r.Use(middleware.RequirePermission(id.PermVerificationReview, log))
		verifHandler.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting verification service", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
