package di

import (
	"context"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/handler"
	"github.com/wafflestudio/moiming-web/backend-event/internal/repository"
	"github.com/wafflestudio/moiming-web/backend-event/internal/service"
	"github.com/wafflestudio/moiming-web/pkg/database"
	"github.com/wafflestudio/moiming-web/pkg/kafka"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
	pkgredis "github.com/wafflestudio/moiming-web/pkg/redis"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
)

// Container holds all dependencies for the event service
type Container struct {
	// Infrastructure
	DB        *database.PostgresDB
	Redis     *pkgredis.Client
	Publisher kafka.Publisher
	Notifier  service.Notifier

	// Repositories
	UserRepo         repository.UserRepository
	EventRepo        repository.EventRepository
	RegistrationRepo repository.RegistrationRepository
	Locker           repository.EventLocker

	// Services
	AuthService         service.AuthService
	EventService        service.EventService
	RegistrationService service.RegistrationService

	// Handlers
	HealthHandler       *handler.HealthHandler
	AuthHandler         *handler.AuthHandler
	EventHandler        *handler.EventHandler
	RegistrationHandler *handler.RegistrationHandler
}

// ContainerConfig contains configuration for building the container.
// A nil DB selects the in-memory store; a nil Redis keeps locking and
// stream notifications in process.
type ContainerConfig struct {
	DB        *database.PostgresDB
	Redis     *pkgredis.Client
	Publisher kafka.Publisher
	Metrics   *telemetry.RegistrationMetrics
	JWT       *middleware.JWTConfig

	ServiceName string
	Version     string
	// RedisLock serializes per-event work with a Redis lock in front of the store's own lock
	RedisLock       bool
	LockTTL         time.Duration
	GuestPageSize   int
	GuestPreviewMax int
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		Publisher: cfg.Publisher,
	}
	if c.Publisher == nil {
		c.Publisher = kafka.NopPublisher{}
	}

	// Initialize repositories
	if c.DB != nil {
		pool := c.DB.Pool()
		c.UserRepo = repository.NewPostgresUserRepository(pool)
		c.EventRepo = repository.NewPostgresEventRepository(pool)
		c.RegistrationRepo = repository.NewPostgresRegistrationRepository(pool)
		c.Locker = repository.NewPostgresEventLocker(pool)
	} else {
		store := repository.NewMemoryStore()
		c.UserRepo = store.Users()
		c.EventRepo = store.Events()
		c.RegistrationRepo = store.Registrations()
		c.Locker = store
	}

	if c.Redis != nil {
		c.Notifier = service.NewRedisNotifier(c.Redis)
		if cfg.RedisLock {
			c.Locker = repository.NewRedisEventLocker(c.Redis, c.Locker, cfg.LockTTL)
		}
	} else {
		c.Notifier = service.NewLocalNotifier()
	}

	// Initialize services
	deps := service.Deps{
		Users:           c.UserRepo,
		Events:          c.EventRepo,
		Registrations:   c.RegistrationRepo,
		Locker:          c.Locker,
		Publisher:       c.Publisher,
		Notifier:        c.Notifier,
		Metrics:         cfg.Metrics,
		GuestPageSize:   cfg.GuestPageSize,
		GuestPreviewMax: cfg.GuestPreviewMax,
	}
	c.AuthService = service.NewAuthService(c.UserRepo, cfg.JWT)
	c.EventService = service.NewEventService(deps)
	c.RegistrationService = service.NewRegistrationService(deps)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(cfg.ServiceName, cfg.Version, c.readinessChecks())
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.RegistrationHandler = handler.NewRegistrationHandler(c.RegistrationService)

	return c
}

func (c *Container) readinessChecks() map[string]handler.Pinger {
	checks := make(map[string]handler.Pinger)
	if c.DB != nil {
		checks["postgres"] = handler.PingFunc(c.DB.HealthCheck)
	}
	if c.Redis != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		})
	}
	return checks
}
