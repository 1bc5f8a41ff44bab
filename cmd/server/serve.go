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

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	accidenthandler "amicable/internal/accident/handler"
	accidentmetrics "amicable/internal/accident/metrics"
	accidentservice "amicable/internal/accident/service"
	accidentstore "amicable/internal/accident/store"
	"amicable/internal/identity"
	ledgerstore "amicable/internal/ledger/store"
	"amicable/internal/platform/blob"
	"amicable/internal/platform/config"
	"amicable/internal/platform/httpserver"
	"amicable/internal/platform/kafka"
	"amicable/internal/platform/logger"
	"amicable/internal/platform/metrics"
	"amicable/internal/platform/postgres"
	"amicable/internal/platform/redis"
	"amicable/pkg/platform/audit"
	auditmemory "amicable/pkg/platform/audit/store/memory"
	auditpostgres "amicable/pkg/platform/audit/store/postgres"
	"amicable/pkg/platform/audit/worker"
	"amicable/pkg/platform/middleware/auth"
)

const (
	shutdownTimeout    = 10 * time.Second
	topicPartitions    = 6
	topicReplication   = 1
	healthCheckTimeout = 2 * time.Second
)

func serveCmd() *cobra.Command {
	var applySchema bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logger.New(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := build(ctx, cfg, log, applySchema)
			if err != nil {
				return err
			}
			defer app.close()

			return app.run(ctx, cfg.Addr)
		},
	}
	cmd.Flags().BoolVar(&applySchema, "apply-schema", false, "apply the idempotent schema before serving")
	return cmd
}

// app is the wired process: the router, the outbox relay and what must be
// closed on the way out.
type app struct {
	log     *slog.Logger
	router  http.Handler
	relay   *worker.Relay
	checks  []func(context.Context) error
	closers []func()
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger, applySchema bool) (*app, error) {
	a := &app{log: log}

	httpMetrics := metrics.New()
	accidentMetrics := accidentmetrics.New()

	var (
		db        *sql.DB
		store     accidentservice.Store
		ledger    accidentservice.Ledger
		tx        accidentservice.AccidentTx
		outbox    audit.Store
		blobStore blob.Store
	)

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.checks = append(a.checks, db.PingContext)
		if applySchema {
			if err := postgres.ApplySchema(ctx, db); err != nil {
				a.close()
				return nil, err
			}
		}
		store = accidentstore.NewPostgres(db)
		ledger = ledgerstore.NewPostgres(db)
		tx = newAccidentPostgresTx(db, cfg.TxTimeout, accidentMetrics, log)
		outbox = auditpostgres.New(db)
		log.InfoContext(ctx, "using postgres stores")
	} else {
		mem := accidentstore.NewInMemory()
		store = mem
		ledger = ledgerstore.NewInMemory()
		tx = accidentservice.NewShardedTx(mem, cfg.TxTimeout)
		outbox = auditmemory.NewInMemoryStore()
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores; the vehicle ledger starts empty")
	}

	blobStore, err := openBlobStore(ctx, cfg, db)
	if err != nil {
		a.close()
		return nil, err
	}

	resolver, err := a.identityResolver(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}

	publisher, err := a.eventPublisher(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.relay = worker.NewRelay(outbox, publisher,
		worker.WithInterval(cfg.Kafka.OutboxPollInterval),
		worker.WithBatchSize(cfg.Kafka.OutboxBatchSize),
		worker.WithLogger(log),
	)

	svc := accidentservice.New(store, ledger, tx,
		accidentservice.WithLogger(log),
		accidentservice.WithMetrics(accidentMetrics),
		accidentservice.WithOutbox(outbox),
		accidentservice.WithBlobStore(blobStore),
		accidentservice.WithMaxImageBytes(cfg.MaxImageBytes),
	)
	h := accidenthandler.New(svc, log, httpMetrics, resolver,
		accidenthandler.WithMaxImageBytes(cfg.MaxImageBytes),
	)

	r := chi.NewRouter()
	r.Get("/healthz", healthz(a.checks))
	r.Handle("/metrics", metrics.Handler())
	h.Register(r)
	a.router = r
	return a, nil
}

func openBlobStore(ctx context.Context, cfg config.Server, db *sql.DB) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case config.BlobPostgres:
		return blob.NewPostgres(db), nil
	case config.BlobS3:
		client, err := blob.NewS3Client(ctx, cfg.Blob.Region, cfg.Blob.Endpoint)
		if err != nil {
			return nil, err
		}
		return blob.NewS3(client, cfg.Blob.Bucket), nil
	default:
		return blob.NewInMemory(), nil
	}
}

// identityResolver verifies bearer tokens and, when Redis is configured,
// caches resolved principals in front of the verifier.
func (a *app) identityResolver(ctx context.Context, cfg config.Server, log *slog.Logger) (auth.Resolver, error) {
	var resolver auth.Resolver = identity.NewJWTResolver(cfg.Identity.SigningKey, cfg.Identity.Issuer)

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return resolver, nil
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.checks = append(a.checks, client.Health)
	log.InfoContext(ctx, "caching identities in redis", "ttl", cfg.Identity.CacheTTL)
	return identity.NewRedisCache(client, resolver, cfg.Identity.CacheTTL, log), nil
}

// eventPublisher publishes to Kafka when brokers are configured and to the
// log otherwise.
func (a *app) eventPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (worker.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return worker.NewLogPublisher(log), nil
	}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, producer.Close)
	if err := producer.EnsureTopic(ctx, topicPartitions, topicReplication); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "publishing events to kafka", "topic", cfg.Kafka.Topic)
	return producer, nil
}

// run serves HTTP and relays the outbox until ctx is cancelled, then shuts
// both down.
func (a *app) run(ctx context.Context, addr string) error {
	srv := httpserver.New(addr, a.router)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.InfoContext(gctx, "starting amicable", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		// Drain what committed before the server stopped.
		if n, err := a.relay.Flush(shutdownCtx); err != nil {
			a.log.WarnContext(shutdownCtx, "final outbox flush failed", "error", err)
		} else if n > 0 {
			a.log.InfoContext(shutdownCtx, "final outbox flush", "published", n)
		}
		return nil
	})

	return g.Wait()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// healthz fails when any configured backing service stops answering.
func healthz(checks []func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, "dependency unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
