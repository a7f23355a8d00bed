package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ssiitsupport/SSI360V2/internal/access"
	"github.com/ssiitsupport/SSI360V2/internal/bootstrap"
	"github.com/ssiitsupport/SSI360V2/internal/handler"
	"github.com/ssiitsupport/SSI360V2/internal/service"
	"github.com/ssiitsupport/SSI360V2/internal/store"
	"github.com/ssiitsupport/SSI360V2/pkg/config"
	"github.com/ssiitsupport/SSI360V2/pkg/database"
	"github.com/ssiitsupport/SSI360V2/pkg/jwtutil"
	"github.com/ssiitsupport/SSI360V2/pkg/logger"
	"github.com/ssiitsupport/SSI360V2/pkg/password"
	"github.com/ssiitsupport/SSI360V2/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "identity-service",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting identity service...", cfg.LogFields()...)

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established")

	prometheus.InitMetrics(cfg.Metrics.Version)

	s := store.New(db)
	hasher := password.NewHasher(cfg.Security.BcryptCost)
	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey: cfg.JWT.SigningKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		Expiration: cfg.JWT.Expiration(),
	})
	// users of the seed tenant administer every tenant
	engine := access.NewEngine(s, log.Named("access")).WithOperatorTenant(cfg.Seed.TenantDomain)

	if cfg.Seed.Enabled {
		if err := bootstrap.NewSeeder(s, hasher, cfg.Seed, log.Named("seed")).Seed(context.Background()); err != nil {
			log.Fatal("Failed to seed database", zap.Error(err))
		}
		log.Info("Seed data verified", zap.String("tenant_domain", cfg.Seed.TenantDomain))
	}

	auth := service.NewAuthService(s, engine, hasher, tokens, log.Named("auth"))
	permissions := service.NewPermissionService(s, engine, log.Named("permissions"))
	handlers := &handler.Handlers{
		Health:      handler.NewHealthHandler(db),
		Auth:        handler.NewAuthHandler(auth),
		Tenants:     handler.NewTenantHandler(service.NewTenantService(s, engine, log.Named("tenants"))),
		Users:       handler.NewUserHandler(service.NewUserService(s, engine, hasher, log.Named("users"))),
		Roles:       handler.NewRoleHandler(service.NewRoleService(s, engine, log.Named("roles")), permissions),
		Permissions: handler.NewPermissionHandler(permissions),
	}

	e := handler.NewEcho(log)
	handler.RegisterRoutes(e, handlers, cfg.Metrics.Path, auth, engine)

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
