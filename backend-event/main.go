package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wafflestudio/moiming-web/backend-event/internal/di"
	"github.com/wafflestudio/moiming-web/backend-event/internal/handler"
	"github.com/wafflestudio/moiming-web/backend-event/migrations"
	"github.com/wafflestudio/moiming-web/pkg/config"
	"github.com/wafflestudio/moiming-web/pkg/database"
	"github.com/wafflestudio/moiming-web/pkg/kafka"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
	pkgredis "github.com/wafflestudio/moiming-web/pkg/redis"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backend-event: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       logLevel(cfg),
		ServiceName: cfg.OTel.ServiceName,
		Development: cfg.IsDevelopment(),
		OutputPath:  "stdout",
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		log.Warn("telemetry disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	metrics, err := telemetry.NewRegistrationMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	// Initialize infrastructure
	var db *database.PostgresDB
	if cfg.Registration.Store == config.StorePostgres {
		db, err = database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   2 * time.Second,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Up(ctx, db.Pool()); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		log.Info("connected to postgres", zap.String("host", cfg.Database.Host))
	} else {
		log.Warn("using in-memory store; data is lost on restart")
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			MaxRetries:   3,
		})
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))
	}

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:        cfg.Kafka.Brokers,
			ClientID:       cfg.Kafka.ClientID,
			ProduceTimeout: 5 * time.Second,
			Linger:         5 * time.Millisecond,
		})
		if err != nil {
			// registration does not depend on the event stream
			log.Warn("kafka unavailable, lifecycle events disabled", zap.Error(err))
		} else {
			publisher = producer
			defer producer.Close()
		}
	}

	jwtCfg := &middleware.JWTConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.AccessTokenTTL,
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		Publisher:       publisher,
		Metrics:         metrics,
		JWT:             jwtCfg,
		ServiceName:     cfg.OTel.ServiceName,
		Version:         cfg.App.Version,
		RedisLock:       cfg.Registration.LockBackend == config.LockRedis,
		LockTTL:         cfg.Registration.LockTTL,
		GuestPageSize:   cfg.Registration.GuestPageSize,
		GuestPreviewMax: cfg.Registration.GuestPreviewMax,
	})

	applyLimiter, err := newApplyLimiter(ctx, cfg, redisClient)
	if err != nil {
		return err
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(&handler.RouterConfig{
		Log:          log,
		JWT:          jwtCfg,
		AllowOrigins: cfg.Server.AllowedOrigins,
		ApplyLimiter: applyLimiter,
		Health:       container.HealthHandler,
		Auth:         container.AuthHandler,
		Event:        container.EventHandler,
		Registration: container.RegistrationHandler,
	})

	// WriteTimeout stays zero so position streams are not cut off
	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.Registration.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}

// newApplyLimiter returns nil when rate limiting is disabled
func newApplyLimiter(ctx context.Context, cfg *config.Config, redisClient *pkgredis.Client) (gin.HandlerFunc, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	rlCfg := middleware.DefaultRateLimitConfig()
	rlCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	rlCfg.BurstSize = cfg.RateLimit.BurstSize
	rlCfg.KeyPrefix = "moiming:ratelimit:apply:"

	if cfg.RateLimit.UseRedis && redisClient != nil {
		rlCfg.RedisClient = redisClient
		limiter, err := middleware.NewRedisRateLimiter(ctx, rlCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		return middleware.RateLimiter(limiter, rlCfg), nil
	}
	return middleware.RateLimiter(middleware.NewLocalRateLimiter(rlCfg), rlCfg), nil
}
