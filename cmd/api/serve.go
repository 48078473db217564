package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/blog-service/internal/api/http"
	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/persistence"
	"github.com/spec-kit/blog-service/internal/repository"
	"github.com/spec-kit/blog-service/internal/service"
	"github.com/spec-kit/blog-service/internal/storage"
	"github.com/spec-kit/blog-service/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, rt.pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:              cfg.Auth.AccessSecret,
		AccessTTL:                 cfg.Auth.AccessTTL,
		RefreshSecret:             cfg.Auth.RefreshSecret,
		RefreshTTL:                cfg.Auth.RefreshTTL,
		RotationThresholdFraction: cfg.Auth.RotationThresholdFraction,
		Leeway:                    cfg.Auth.ClockLeeway,
	})
	if err != nil {
		return err
	}

	images, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pool := rt.pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	profiles := repository.NewProfileCache(redis.Client, cfg.Redis.ProfileCacheTTL)
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     userRepo,
		ProfileCache: profiles,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       logger,
	})
	postService := service.NewPostService(service.PostDependencies{
		PostRepo:   postRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		UserRepo:     userRepo,
		PostRepo:     postRepo,
		ProfileCache: profiles,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	mediaService := service.NewMediaService(service.MediaDependencies{
		Store:          images,
		PostRepo:       postRepo,
		UserRepo:       userRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})
	worker.StartImageCleanupWorker(ctx, mediaService, logger)

	sessions := auth.NewSessionMiddleware(
		auth.NewSessionResolver(tokens),
		auth.CookiePolicy{Secure: cfg.Auth.CookieSecure},
		logger,
		metrics,
	)

	routes := httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Check: rt.pg},
			handlers.Dependency{Name: "redis", Check: redis, Optional: true},
		),
		Auth:     handlers.NewAuthHandler(authService, sessions),
		Posts:    handlers.NewPostsHandler(postService),
		Admin:    handlers.NewAdminHandler(adminService),
		Media:    handlers.NewMediaHandler(mediaService),
		Sessions: sessions,
		Metrics:  adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}
	if local, ok := images.(*storage.LocalStore); ok {
		routes.Static = &httptransport.StaticDir{Prefix: local.URLPrefix(), Root: local.BaseDir()}
	}

	app := httptransport.NewServer(cfg.App, logger, metrics, routes)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	return app.Shutdown()
}
