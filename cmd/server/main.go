package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	appservice "github.com/Mateusz-G541/pokedex-auth-service/internal/application/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	domainservice "github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/audit"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/crypto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/persistence/postgres"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/persistence/redis"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/ratelimit"
	grpchandlers "github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/grpc"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/handlers"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/middleware"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/router"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// configEnv names the environment variable holding an explicit config file path.
const configEnv = "POKEDEX_AUTH_CONFIG"

func main() {
	if err := run(); err != nil {
		log.Fatalf("pokedex-auth-service: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	loader := config.NewLoader(os.Getenv(configEnv))
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			appLogger.Error(ctx, "Ignoring invalid config change", err)
			return
		}
		if next.Log.Level != appLogger.Level() {
			appLogger.SetLevel(next.Log.Level)
			appLogger.Info(ctx, "Log level changed", logger.Fields{"level": next.Log.Level})
		}
	})

	// Initialize tracing
	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(cfg.Server.ShutdownTimeout, tracing.Shutdown)

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Signing keys are required; a missing or mismatched pair stops the process here
	keySource, err := crypto.NewKeySource(cfg, appLogger)
	if err != nil {
		return err
	}
	keys, err := crypto.LoadKeyMaterial(ctx, keySource)
	if err != nil {
		appLogger.Error(ctx, "Failed to load signing keys", err, logger.Fields{"source": cfg.JWT.KeySource})
		return err
	}
	lifetime, err := cfg.JWT.Lifetime()
	if err != nil {
		return err
	}
	tokens, err := crypto.NewJWTManager(keys, lifetime, appLogger, crypto.WithMetrics(metrics))
	if err != nil {
		return err
	}

	// Initialize database
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	users := postgres.NewUserRepository(db.Pool(), appLogger)
	if cfg.Database.AutoMigrate {
		if err := users.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate users: %w", err)
		}
	}

	health := handlers.NewHealthHandler(appLogger).
		AddCheck("keys", func(context.Context) error {
			if tokens.PublicKey() == "" {
				return fmt.Errorf("signing keys not loaded")
			}
			return nil
		}).
		AddCheck("database", db.Ping)

	// Initialize Redis
	var redisConn *redis.RedisConnection
	if cfg.Redis.Enabled {
		redisConn = redis.NewRedisConnection(&cfg.Redis, appLogger)
		if err := redisConn.Connect(ctx); err != nil {
			return err
		}
		defer func() { _ = redisConn.Close() }()
		health.AddCheck("redis", redisConn.Ping)
	}

	limiter, err := newRateLimiter(cfg, redisConn, appLogger)
	if err != nil {
		return err
	}

	auditService, closeAudit, err := audit.New(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeAudit(); err != nil {
			appLogger.Error(context.Background(), "Failed to close audit sink", err)
		}
	}()

	// Initialize application services
	hasher := crypto.NewBcryptHasher(cfg.Security.BcryptRounds)
	authAppSvc := appservice.NewAuthAppService(users, tokens, hasher, auditService, appLogger)
	userAppSvc := appservice.NewUserAppService(users, hasher, auditService, appLogger)

	httpRouter, err := router.NewRouter(router.Dependencies{
		Config:        &cfg.Server,
		Logger:        appLogger,
		Metrics:       metrics,
		Tracer:        tracing.Tracer(),
		Authenticator: middleware.NewAuthenticator(tokens, metrics, appLogger),
		RateLimiter:   limiter,
		AuthHandler:   handlers.NewAuthHandler(authAppSvc),
		UserHandler:   handlers.NewUserHandler(userAppSvc),
		HealthHandler: health,
	})
	if err != nil {
		return err
	}

	grpcServer, grpcHealth := grpchandlers.NewServer(
		grpchandlers.NewKeyGRPCService(authAppSvc, tokens, appLogger),
		grpchandlers.NewInterceptorChain(appLogger, limiter),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpRouter.Start)
	if cfg.Server.GRPCPort > 0 {
		g.Go(func() error { return serveGRPC(gctx, grpcServer, cfg.Server.GRPCAddr(), appLogger) })
	}
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down")
		grpcHealth.Shutdown()
		stopGRPC(grpcServer, cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpRouter.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), "Server stopped with error", err)
		return err
	}
	appLogger.Info(context.Background(), "Server stopped")
	return nil
}

// newRateLimiter returns the limiter for cfg.RateLimit, or nil when limiting is disabled.
func newRateLimiter(cfg *config.Config, redisConn *redis.RedisConnection, log logger.Logger) (domainservice.RateLimitService, error) {
	if !cfg.RateLimit.Enabled {
		log.Warn(context.Background(), "Rate limiting is disabled")
		return nil, nil
	}
	rlCfg := ratelimit.Config{Limit: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}

	switch cfg.RateLimit.Backend {
	case "", config.RateLimitBackendMemory:
		return ratelimit.NewMemoryRateLimiter(rlCfg), nil
	case config.RateLimitBackendRedis:
		if redisConn == nil {
			return nil, fmt.Errorf("rate_limit.backend is redis but redis.enabled is false")
		}
		limiter, err := ratelimit.NewRedisRateLimiter(redisConn.GetClient(), rlCfg, log)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}
	return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
}

func serveGRPC(ctx context.Context, srv *grpc.Server, addr string, log logger.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for gRPC on %s: %w", addr, err)
	}
	log.Info(ctx, "Starting gRPC server", logger.Fields{"address": addr})
	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// stopGRPC drains in-flight calls, forcing the stop once timeout has passed.
func stopGRPC(srv *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		srv.Stop()
	}
}

func shutdownWithTimeout(timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = fn(ctx)
}
