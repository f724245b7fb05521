package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hr-backoffice/internal/repositories"
	"hr-backoffice/internal/routes"
	"hr-backoffice/migrations"
	"hr-backoffice/pkg/config"
	"hr-backoffice/pkg/database/postgresql"
	"hr-backoffice/pkg/eventbus"
	applogger "hr-backoffice/pkg/logger"
	"hr-backoffice/seeders"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply migrations before seeding")
	rebuild := flag.Bool("rebuild", false, "rebuild department paths after seeding")
	flag.Parse()

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer dbPool.Close()

	if *migrate || cfg.Hierarchy.AutoMigrate {
		if err := migrations.Up(ctx, dbPool); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	bus := eventbus.New(logger)
	svc := routes.NewDepartmentService(routes.Dependencies{
		DB:       dbPool,
		Cache:    repositories.NewNoopCacheRepository(),
		EventBus: bus,
		Config:   cfg,
		Logger:   logger,
	})

	if _, err := seeders.SeedDepartments(ctx, svc, seeders.DefaultStructure, logger); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}

	if *rebuild {
		report, err := svc.RebuildDepartmentPaths(ctx)
		if err != nil {
			logger.Fatal("rebuild failed", zap.Error(err))
		}
		logger.Info("paths rebuilt", zap.Int("total", report.Total), zap.Int("updated", report.Updated))
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = bus.Wait(waitCtx)
}
