package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zenith-backend/internal/config"
	"zenith-backend/internal/db"
	httpapi "zenith-backend/internal/http"
	"zenith-backend/internal/migrations"
	"zenith-backend/internal/realtime"
	"zenith-backend/internal/services"
	"zenith-backend/internal/store"
	"zenith-backend/internal/store/memstore"
	"zenith-backend/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	appLog, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logger.DefaultServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = appLog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.Fatal("server stopped", zap.Error(err))
	}
	appLog.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, appLog *zap.Logger) error {
	st, closeStore, err := openStore(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := realtime.NewHub(appLog.Named("realtime"))
	var notifier services.Notifier = hub
	var fanout *realtime.RedisNotifier
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		fanout = realtime.NewRedisNotifier(client, realtime.DefaultChannel, hub, appLog.Named("redis"))
		notifier = fanout
	}

	server := httpapi.NewServer(st, cfg, hub, notifier, appLog)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLog.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return server.Metrics.Run(ctx, time.Duration(cfg.MetricsSampleSeconds)*time.Second)
	})
	if fanout != nil {
		g.Go(func() error {
			return fanout.Run(ctx)
		})
	}
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, appLog *zap.Logger) (store.Store, func(), error) {
	if cfg.UsesMemoryStore() {
		appLog.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(ctx, database, appLog.Named("migrations")); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return store.NewPostgres(database), func() { _ = database.Close() }, nil
}
