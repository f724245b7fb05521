package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"hr-backoffice/internal/listeners"
	"hr-backoffice/internal/repositories"
	"hr-backoffice/internal/routes"
	"hr-backoffice/migrations"
	"hr-backoffice/pkg/api"
	"hr-backoffice/pkg/config"
	"hr-backoffice/pkg/database/postgresql"
	apperrors "hr-backoffice/pkg/errors"
	"hr-backoffice/pkg/eventbus"
	applogger "hr-backoffice/pkg/logger"
	"hr-backoffice/pkg/middleware"
	"hr-backoffice/pkg/validation"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.Hierarchy.AutoMigrate {
		if err := migrations.Up(ctx, dbConn); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	cacheRepo := newCacheRepository(ctx, cfg.Redis, logger)

	bus := eventbus.New(logger)
	listeners.NewHierarchyAuditListener(logger).Register(bus)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Use(echomiddleware.RecoverWithConfig(echomiddleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				_ = api.ErrorResponse(c, apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil))
			}
			return err
		},
	}))
	e.Use(middleware.RequestID(), middleware.RequestLogger(logger), middleware.Actor())

	routes.InitRouter(e, routes.Dependencies{
		DB:       dbConn,
		Cache:    cacheRepo,
		EventBus: bus,
		Config:   cfg,
		Logger:   logger,
	})

	go func() {
		logger.Info("server started", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := bus.Wait(shutdownCtx); err != nil {
		logger.Warn("pending events were not handled", zap.Error(err))
	}
}

// newCacheRepository returns a Redis-backed cache, or a no-op one when Redis is not configured.
func newCacheRepository(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) repositories.CacheRepositoryInterface {
	if cfg.Address == "" {
		logger.Info("redis address not set, department tree cache disabled")
		return repositories.NewNoopCacheRepository()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, cache requests will fall through", zap.String("address", cfg.Address), zap.Error(err))
	}
	return repositories.NewRedisCacheRepository(client)
}
