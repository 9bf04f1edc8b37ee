package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-service/internal/config"
	apphttp "user-service/internal/http"
	"user-service/internal/metrics"
	"user-service/internal/repository"
	"user-service/internal/repository/postgres"
	"user-service/internal/repository/redis"
	"user-service/internal/repository/sqlite"
	"user-service/internal/service"
	"user-service/internal/worldtime"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := configureLogger(logger, cfg); err != nil {
		logger.Fatalf("configure logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open %s store: %v", cfg.Database.Driver, err)
	}
	defer closeStore()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.New()
	}

	clock, err := buildClock(cfg, registry, logger)
	if err != nil {
		logger.Fatalf("setup time provider: %v", err)
	}

	userService := service.NewUserService(userRepo, clock)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, logger, apphttp.Paging{
		DefaultSize: cfg.Pagination.DefaultSize,
		MaxSize:     cfg.Pagination.MaxSize,
	}, registry)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Log.Format) {
	case "", "text":
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres user store")
		return postgres.NewUserRepository(pool), pool.Close, nil
	case config.DriverRedis:
		client, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using redis user store at %s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)
		return redis.NewUserRepository(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	default:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using sqlite user store at %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), func() { _ = db.Close() }, nil
	}
}

func buildClock(cfg config.Config, registry *metrics.Registry, logger *logrus.Logger) (*worldtime.Resolver, error) {
	client, err := worldtime.NewClient(cfg.WorldTime.BaseURL, cfg.WorldTime.Timezone, cfg.WorldTime.Timeout)
	if err != nil {
		return nil, err
	}
	resolver, err := worldtime.NewResolver(client, worldtime.Config{
		Timezone: cfg.WorldTime.Timezone,
		Recorder: registry,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Infof("creation timestamps from %s (fallback zone %s)", client.Endpoint(), resolver.Location())
	return resolver, nil
}
