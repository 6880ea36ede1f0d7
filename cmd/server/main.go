package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/profile-service/config"
	_ "github.com/d60-Lab/profile-service/docs"
	"github.com/d60-Lab/profile-service/internal/api"
	"github.com/d60-Lab/profile-service/internal/api/handler"
	"github.com/d60-Lab/profile-service/internal/cache"
	"github.com/d60-Lab/profile-service/internal/events"
	"github.com/d60-Lab/profile-service/internal/repository"
	"github.com/d60-Lab/profile-service/internal/service"
	"github.com/d60-Lab/profile-service/pkg/database"
	"github.com/d60-Lab/profile-service/pkg/logger"
	"github.com/d60-Lab/profile-service/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// @title Profile Service API
// @version 1.0
// @description User profiles and follow relationships.
// @BasePath /
func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			panic(err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Trace.Enabled {
		shutdownTracing := must(tracing.Init(ctx, "profile-service", cfg.Trace.Endpoint))
		defer shutdownTracing(context.Background())
	}

	db := must(database.InitDB(cfg))
	redisClient := must(cache.NewClient(cfg.Redis))
	defer redisClient.Close()

	publisher := events.NewKafkaPublisher(cfg.Kafka.BrokerList())
	defer publisher.Close()

	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)

	relSvc := service.NewRelationshipService(
		followRepo,
		cache.NewRedisInvalidator(redisClient),
		publisher,
		10000,
		cfg.Database.TxTimeout,
	)
	stopRunner := relSvc.Start(4)

	userSvc := service.NewUserService(userRepo, cache.NewRedisInvalidator(redisClient))
	router := api.NewRouter(cfg, handler.New(relSvc, userSvc, db))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// stop taking requests first, then let queued background jobs drain
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := stopRunner(shutdownCtx); err != nil {
		logger.Warn("runner shutdown", zap.Error(err))
	}
}
