// Command server wires the medication chain-of-custody services and runs the
// HTTP API. Stores are selected by configuration: postgres when
// MEDLEDGER_POSTGRES_URL is set, in-memory otherwise; redis and kafka are
// optional and degrade to local no-op equivalents when unconfigured.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"medledger/internal/administration"
	"medledger/internal/alerts"
	"medledger/internal/directory"
	"medledger/internal/jwttoken"
	"medledger/internal/medaudit"
	"medledger/internal/notifier"
	"medledger/internal/platform/config"
	"medledger/internal/platform/httpserver"
	"medledger/internal/platform/kafka"
	"medledger/internal/platform/logger"
	"medledger/internal/platform/metrics"
	platformredis "medledger/internal/platform/redis"
	"medledger/internal/registry"
	httptransport "medledger/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Change notifier: kafka when brokers are configured, otherwise a no-op.
	// Services always publish through the async worker so a slow broker can
	// never stall a medication write.
	var transport notifier.Notifier = notifier.Nop{}
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
		transport = notifier.NewKafka(producer)
		log.Info("kafka notifier enabled", "topic", cfg.Kafka.Topic)
	}
	async := notifier.NewAsync(transport, cfg.Kafka.Buffer, log, m)

	var (
		registryStore registry.Store       = registry.NewInMemoryStore()
		doseStore     administration.Store = administration.NewInMemoryStore()
		auditStore    medaudit.Store       = medaudit.NewInMemoryStore()
		alertStore    alerts.Store         = alerts.NewInMemoryStore()
	)
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres pool init failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		registryStore = registry.NewPostgresStore(pool)
		doseStore = administration.NewPostgresStore(pool)
		auditStore = medaudit.NewPostgresStore(pool)
		alertStore = alerts.NewPostgresStore(pool)
		log.Info("postgres stores enabled")
	}

	// The resident/staff/program directory is an external collaborator; the
	// bundled in-memory implementation serves dev deployments.
	dir := directory.NewInMemory()

	alertOpts := []alerts.Option{
		alerts.WithLogger(log),
		alerts.WithNotifier(async),
		alerts.WithMetrics(m),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		alertOpts = append(alertOpts, alerts.WithRecencyCache(alerts.NewRecencyCache(redisClient)))
		log.Info("redis alert recency cache enabled")
	}
	alertSvc, err := alerts.New(alertStore, alertOpts...)
	if err != nil {
		log.Error("alert service init failed", "error", err)
		os.Exit(1)
	}

	registrySvc, err := registry.New(registryStore, dir,
		registry.WithLogger(log),
		registry.WithNotifier(async),
		registry.WithMetrics(m),
		registry.WithAlertRaiser(alertSvc),
		registry.WithLowStockThreshold(cfg.LowStockThreshold),
	)
	if err != nil {
		log.Error("registry service init failed", "error", err)
		os.Exit(1)
	}

	doseSvc, err := administration.New(doseStore, registrySvc, dir,
		administration.WithLogger(log),
		administration.WithNotifier(async),
		administration.WithMetrics(m),
		administration.WithAlertRaiser(alertSvc),
	)
	if err != nil {
		log.Error("administration service init failed", "error", err)
		os.Exit(1)
	}

	auditSvc, err := medaudit.New(auditStore, registrySvc, dir,
		medaudit.WithLogger(log),
		medaudit.WithNotifier(async),
		medaudit.WithMetrics(m),
		medaudit.WithAlertRaiser(alertSvc),
		medaudit.WithDoseLog(doseSvc),
	)
	if err != nil {
		log.Error("audit service init failed", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Registry:       registrySvc,
		Doses:          doseSvc,
		Audits:         auditSvc,
		Alerts:         alertSvc,
		TokenValidator: jwttoken.NewService(cfg.JWTSigningKey, "medledger"),
		Logger:         log,
		Metrics:        m,
		RequestTimeout: cfg.RequestTimeout,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return async.Run(gctx)
	})
	g.Go(func() error {
		log.Info("medledger listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("medledger stopped")
}
