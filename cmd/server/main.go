package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	authhandler "foodbridge/internal/auth/handler"
	"foodbridge/internal/auth/password"
	authservice "foodbridge/internal/auth/service"
	"foodbridge/internal/auth/store/revocation"
	"foodbridge/internal/auth/store/user"
	donationhandler "foodbridge/internal/donation/handler"
	donationservice "foodbridge/internal/donation/service"
	donationstore "foodbridge/internal/donation/store"
	"foodbridge/internal/events"
	jwttoken "foodbridge/internal/jwt_token"
	"foodbridge/internal/platform/config"
	"foodbridge/internal/platform/httpserver"
	"foodbridge/internal/platform/logger"
	"foodbridge/internal/platform/metrics"
	"foodbridge/internal/platform/postgres"
	"foodbridge/internal/platform/redis"
	ratelimitmw "foodbridge/internal/ratelimit/middleware"
	"foodbridge/internal/ratelimit/service/authlockout"
	"foodbridge/internal/ratelimit/store/bucket"
	httptransport "foodbridge/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

type stores struct {
	db          *sql.DB
	users       authservice.UserStore
	donations   donationservice.Store
	revocations revocationStore
}

type revocationStore interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	var buckets authlockout.Store = bucket.NewInMemoryBucketStore()
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		st.revocations = revocation.NewRedisTRL(rdb.Client)
		buckets = bucket.NewRedisBucketStore(rdb.Client)
		log.Info("token revocation and rate limits backed by redis")
	}

	sink, closeSink, err := openEventSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	publisher := events.NewPublisher(cfg.Events.BufferSize,
		events.WithPublisherLogger(log),
		events.WithPublisherMetrics(m),
	)
	worker := events.NewWorker(sink, publisher, log,
		events.WithFallback(events.NewLogSink(log)),
		events.WithWorkerMetrics(m),
	)

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	authOpts := []authservice.Option{
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithEventPublisher(publisher),
		authservice.WithRevoker(st.revocations),
	}
	if lockout := authlockout.New(buckets, cfg.RateLimit.LockoutAttempts, cfg.RateLimit.LockoutWindow,
		authlockout.WithLogger(log),
		authlockout.WithRejectionCounter(m),
	); lockout != nil {
		authOpts = append(authOpts, authservice.WithLockout(lockout))
	}
	authSvc := authservice.New(st.users, password.NewHasher(cfg.Auth.BcryptCost), jwtService, authOpts...)
	donationSvc := donationservice.New(st.donations,
		donationservice.WithLogger(log),
		donationservice.WithMetrics(m),
		donationservice.WithEventPublisher(publisher),
	)

	limiter := ratelimitmw.New(buckets, cfg.RateLimit.AuthRequests, cfg.RateLimit.Window, log,
		ratelimitmw.WithRejectionCounter(m),
	)

	deps := httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		Gatherer:       prometheus.Gatherers{prometheus.DefaultGatherer, registry},
		Validator:      jwttoken.NewJWTServiceAdapter(jwtService),
		Revocations:    st.revocations,
		Auth:           authhandler.New(authSvc, log),
		Donations:      donationhandler.New(donationSvc, log),
		RateLimit:      limiter,
		StaticDir:      cfg.StaticDir,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
	}
	if st.db != nil {
		deps.Database = st.db
	}
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps))

	// The worker outlives the signal: it stops once the publisher is closed
	// after in-flight requests finish.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting foodbridge", "addr", cfg.Addr, "backend", cfg.Database.Backend, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(workerCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		publisher.Close()
		stopWorker()
		if err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStores selects the credential store, donation ledger and revocation
// list for the configured backend. Redis, when configured, replaces the
// revocation list afterwards.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	if cfg.Database.Backend != config.BackendPostgres {
		log.Info("using in-memory storage; data is lost on restart")
		return &stores{
			users:       user.New(),
			donations:   donationstore.NewInMemory(),
			revocations: revocation.NewInMemoryTRL(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		db:          db,
		users:       user.NewPostgres(db),
		donations:   donationstore.NewPostgres(db),
		revocations: revocation.NewPostgresTRL(db),
	}, nil
}

// openEventSink connects to Kafka when brokers are configured and otherwise
// writes events to the log.
func openEventSink(ctx context.Context, cfg config.Server, log *slog.Logger) (events.Sink, func(), error) {
	if len(cfg.Events.KafkaBrokers) == 0 {
		return events.NewLogSink(log), func() {}, nil
	}
	sink, err := events.NewKafkaSink(ctx, cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect kafka: %w", err)
	}
	log.Info("publishing events to kafka", "topic", cfg.Events.KafkaTopic)
	return sink, sink.Close, nil
}
