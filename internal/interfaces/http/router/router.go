// Package router assembles the HTTP API of the auth service.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/handlers"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/middleware"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"
)

// Dependencies are the components the router wires into routes.
type Dependencies struct {
	Config        *config.ServerConfig
	Logger        logger.Logger
	Metrics       *monitoring.Metrics
	Tracer        trace.Tracer
	Authenticator *middleware.Authenticator
	RateLimiter   service.RateLimitService // nil disables rate limiting
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	HealthHandler *handlers.HealthHandler

	// MetricsHandler serves /metrics. Defaults to the Prometheus default registry.
	MetricsHandler http.Handler
}

// Router is the HTTP server of the auth service.
type Router struct {
	engine *gin.Engine
	deps   Dependencies
	server *http.Server
}

// NewRouter creates the engine, installs the custom validation rules on gin's binding engine
// and registers every route.
func NewRouter(deps Dependencies) (*Router, error) {
	if deps.Config.Mode != "" {
		gin.SetMode(deps.Config.Mode)
	}
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := utils.RegisterCustomValidations(v); err != nil {
			return nil, fmt.Errorf("register validations: %w", err)
		}
	}
	if deps.MetricsHandler == nil {
		deps.MetricsHandler = promhttp.Handler()
	}

	r := &Router{engine: gin.New(), deps: deps}
	r.setupRoutes()
	return r, nil
}

func (r *Router) setupRoutes() {
	d := r.deps

	r.engine.Use(
		middleware.RequestID(),
		middleware.Observability(d.Tracer, d.Metrics),
		middleware.Logging(d.Logger),
		middleware.Recovery(d.Logger),
		cors.New(corsConfig(d.Config.CORSOrigins)),
	)

	r.engine.GET("/health", d.HealthHandler.Liveness)
	r.engine.GET("/health/ready", d.HealthHandler.Readiness)
	r.engine.GET("/metrics", gin.WrapH(d.MetricsHandler))

	if d.Config.PprofEnabled {
		pprof.Register(r.engine)
	}

	authn := d.Authenticator.Authenticate()
	requireAdmin := middleware.RequireAdmin(d.Metrics)

	auth := r.engine.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit(d.RateLimiter, "register", d.Metrics, d.Logger), d.AuthHandler.Register)
		auth.POST("/login", middleware.RateLimit(d.RateLimiter, "login", d.Metrics, d.Logger), d.AuthHandler.Login)
		auth.GET("/public-key", d.AuthHandler.PublicKey)
		auth.GET("/me", authn, d.AuthHandler.Me)
		auth.GET("/session", d.Authenticator.OptionalAuthenticate(), d.AuthHandler.Session)
	}

	users := r.engine.Group("/users", authn)
	{
		users.GET("/profile", d.UserHandler.Profile)
		users.PUT("/profile", d.UserHandler.UpdateProfile)
		users.GET("", requireAdmin, d.UserHandler.List)
		users.GET("/search", requireAdmin, d.UserHandler.Search)
		users.POST("", requireAdmin, d.UserHandler.Create)
		users.GET("/:id", d.UserHandler.Get)
		users.PUT("/:id", d.UserHandler.Update)
		users.DELETE("/:id", requireAdmin, d.UserHandler.Delete)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		dto.SendError(c, errors.New(errors.CodeNotFound, http.StatusNotFound, "Route not found"))
	})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Start serves HTTP until Stop is called. It returns nil after a graceful stop.
func (r *Router) Start() error {
	cfg := r.deps.Config
	r.server = &http.Server{
		Addr:           cfg.HTTPAddr(),
		Handler:        r.engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	r.deps.Logger.Info(context.Background(), "Starting HTTP server", logger.Fields{"address": cfg.HTTPAddr()})
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx expires.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.deps.Logger.Info(ctx, "Stopping HTTP server")
	return r.server.Shutdown(ctx)
}

// Engine returns the underlying gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
