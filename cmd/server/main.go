package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "time/tzdata"

	"gitlab.com/pdhero/retur/internal/config"
	"gitlab.com/pdhero/retur/internal/db"
	"gitlab.com/pdhero/retur/internal/kafka"
	"gitlab.com/pdhero/retur/internal/logger"
	"gitlab.com/pdhero/retur/internal/repository/postgresql"
	"gitlab.com/pdhero/retur/internal/server"
	"gitlab.com/pdhero/retur/internal/service"
	"gitlab.com/pdhero/retur/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	database, err := db.NewDb(ctx, cfg.DSN())
	if err != nil {
		log.Fatal("Database init error", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		log.Warn("Migrations not applied, continuing without a reachable database", zap.Error(err))
	}

	returnRepo := postgresql.NewReturnRepo(database)
	outboxRepo := postgresql.NewOutboxTaskRepo()
	stg := storage.NewStorage(database, returnRepo, outboxRepo, cfg.KafkaTopic)

	svc := service.New(stg, log.With(zap.String("component", "service")), cfg.Timezone)
	if _, err := svc.Load(ctx); err != nil {
		log.Warn("Initial load failed", zap.Error(err))
	}

	srv := server.New(svc, stg, log.With(zap.String("component", "http")), cfg.Timezone)

	producer := kafka.NewProducer(cfg.KafkaBrokers, log.With(zap.String("component", "producer")))
	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	}, log.With(zap.String("component", "outbox")))

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr())
	})

	g.Go(func() error {
		return publisher.Run(gctx)
	})

	g.Go(func() error {
		log.Info("Metrics server starting", zap.String("addr", cfg.MetricsAddr()))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		publisher.Shutdown(shutdownCtx)
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server gracefully stopped")
}
