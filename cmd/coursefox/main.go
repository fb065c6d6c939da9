package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/checkout"
	"github.com/ManuelReschke/CourseFox/internal/pkg/config"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logging"
	"github.com/ManuelReschke/CourseFox/internal/pkg/ratelimit"
	"github.com/ManuelReschke/CourseFox/internal/pkg/router"
	"github.com/ManuelReschke/CourseFox/internal/pkg/scheduler"
)

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	logging.Setup(cfg.App.LogLevel, cfg.IsDev())

	app, jobs := NewApplication(cfg)
	jobs.Start()

	go func() {
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)); err != nil {
			log.WithError(err).Fatal("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	jobs.Stop(ctx)
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func NewApplication(cfg *config.Config) (*fiber.App, *scheduler.Scheduler) {
	database.SetupDatabase(cfg.Database)
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache(cfg.Cache)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	if cfg.Checkout.WebhookSecret == "" {
		log.Warn("WEBHOOK_ENDPOINT_SECRET is not set, all webhook deliveries will be rejected")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkout.RegisterMetrics(registry)

	checkoutSvc := checkout.NewServiceFromDB(database.GetDB(), checkout.NewStripeGateway(cfg.Checkout.StripeSecretKey), checkout.Config{
		FrontendBaseURL:  cfg.FrontendBaseURL(),
		Currency:         cfg.Checkout.Currency,
		AllowedCountries: cfg.Checkout.AllowedCountries,
		WebhookSecret:    cfg.Checkout.WebhookSecret,
	})

	limiterStorage, memoryStore := ratelimit.NewStorage(cfg.RateLimit, cfg.Cache)

	app := fiber.New(router.ServerConfig(cfg))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// SWAGGER / OPENAPI
	if docs := findDocsFile(); docs != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: docs,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Config:         cfg,
		DB:             database.GetDB(),
		Repositories:   repository.GetGlobalFactory(),
		Checkout:       checkoutSvc,
		LimiterStorage: limiterStorage,
	})

	opts := scheduler.Options{
		Reconciler:      checkoutSvc,
		ReconcileEvery:  cfg.Reconcile.Interval,
		ReconcileMinAge: cfg.Reconcile.MinAge,
		ReconcileBatch:  cfg.Reconcile.Batch,
	}
	if memoryStore != nil {
		opts.Sweeper = memoryStore
		opts.SweepEvery = cfg.RateLimit.Window
	}
	jobs, err := scheduler.New(opts)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up scheduler")
	}

	return app, jobs
}

func findDocsFile() string {
	for _, base := range []string{"./", "../../", "../../../"} {
		path := base + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	log.Warn("OpenAPI document not found, docs route disabled")
	return ""
}
