package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	_ "time/tzdata"

	"gitlab.com/pdhero/retur/internal/config"
	"gitlab.com/pdhero/retur/internal/db"
	"gitlab.com/pdhero/retur/internal/handler"
	"gitlab.com/pdhero/retur/internal/logger"
	"gitlab.com/pdhero/retur/internal/repository/postgresql"
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

	stg := storage.NewStorage(database, postgresql.NewReturnRepo(database), postgresql.NewOutboxTaskRepo(), cfg.KafkaTopic)
	svc := service.New(stg, log.With(zap.String("component", "service")), cfg.Timezone)

	h := handler.New(svc, os.Stdin, os.Stdout, cfg.Timezone, cfg.RefreshPause)
	if err := h.Run(ctx); err != nil {
		log.Error("Input error", zap.Error(err))
		os.Exit(1)
	}
}
