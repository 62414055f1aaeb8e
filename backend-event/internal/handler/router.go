package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/middleware"
)

// RouterConfig wires handlers and middleware into the HTTP router
type RouterConfig struct {
	Log          *logger.Logger
	JWT          *middleware.JWTConfig
	AllowOrigins []string
	// ApplyLimiter guards the apply endpoint; nil disables rate limiting
	ApplyLimiter gin.HandlerFunc

	Health       *HealthHandler
	Auth         *AuthHandler
	Event        *EventHandler
	Registration *RegistrationHandler
}

// NewRouter builds the gin engine with every route of the service
func NewRouter(cfg *RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	if cfg.Log != nil {
		r.Use(middleware.AccessLog(cfg.Log))
	}
	r.Use(middleware.CORS(cfg.AllowOrigins...))

	r.GET("/health", cfg.Health.Health)
	r.GET("/ready", cfg.Health.Ready)

	required := middleware.JWTMiddleware(cfg.JWT)
	optional := middleware.OptionalJWT(cfg.JWT)

	apply := []gin.HandlerFunc{optional}
	if cfg.ApplyLimiter != nil {
		apply = append(apply, cfg.ApplyLimiter)
	}
	apply = append(apply, cfg.Registration.Apply)

	auth := r.Group("/auth")
	{
		auth.POST("/signup", cfg.Auth.Signup)
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/logout", cfg.Auth.Logout)
		auth.GET("/me", required, cfg.Auth.Me)
	}

	users := r.Group("/users")
	{
		users.GET("/me", required, cfg.Auth.Me)
		users.PATCH("/me", required, cfg.Auth.UpdateMe)
	}

	events := r.Group("/events")
	{
		events.POST("", required, cfg.Event.Create)
		events.GET("/me", required, cfg.Event.ListMine)
		events.GET("/:publicId", optional, cfg.Event.Get)
		events.PUT("/:publicId", required, cfg.Event.Update)
		events.DELETE("/:publicId", required, cfg.Event.Delete)
		events.GET("/:publicId/registrations", optional, cfg.Registration.ListGuests)
		events.POST("/:publicId/registrations", apply...)
	}

	registrations := r.Group("/registrations")
	{
		registrations.GET("/me", required, cfg.Registration.ListMine)
		registrations.GET("/:id", optional, cfg.Registration.Get)
		registrations.PATCH("/:id", optional, cfg.Registration.Update)
		registrations.GET("/:id/stream", optional, cfg.Registration.Stream)
	}

	return r
}
