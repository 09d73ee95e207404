package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-engine/api/routes"
	"github.com/angelmondragon/storefront-engine/internal/engine"
	"github.com/angelmondragon/storefront-engine/internal/payment"
	"github.com/angelmondragon/storefront-engine/pkg/backend"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
	"github.com/angelmondragon/storefront-engine/pkg/redis"
	"github.com/angelmondragon/storefront-engine/pkg/shiprate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "engine"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "engine",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	backendClient, err := backend.NewClient(cfg.Backend.BaseURL, backend.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create backend client", err)
		os.Exit(1)
	}

	ratesClient, err := shiprate.NewClient(cfg.RateAPI)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping rate client", err)
		os.Exit(1)
	}

	gateway, err := payment.New(cfg.Gateway, backendClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	svc, err := engine.NewService(engine.Params{
		Backend: backendClient,
		Rates:   ratesClient,
		RateCfg: cfg.RateAPI,
		Gateway: gateway,
		Redis:   redisClient,
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create engine service", err)
		os.Exit(1)
	}
	defer svc.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"gateway":  gateway.Name(),
		"instance": id,
	})
	logg.Info(ctx, "starting engine server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, backendClient, svc, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "engine server stopped unexpectedly", err)
		os.Exit(1)
	}
}
