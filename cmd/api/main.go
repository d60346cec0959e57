package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmcarrell/storefront-backend/api/routes"
	"github.com/dmcarrell/storefront-backend/internal/discounts"
	"github.com/dmcarrell/storefront-backend/internal/pricing"
	"github.com/dmcarrell/storefront-backend/internal/recalc"
	"github.com/dmcarrell/storefront-backend/internal/shipping"
	"github.com/dmcarrell/storefront-backend/internal/tax"
	"github.com/dmcarrell/storefront-backend/pkg/config"
	"github.com/dmcarrell/storefront-backend/pkg/db"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
	"github.com/dmcarrell/storefront-backend/pkg/metrics"
	"github.com/dmcarrell/storefront-backend/pkg/migrate"
	"github.com/dmcarrell/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

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

	discountService, err := discounts.NewService(discounts.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}

	resolver, err := pricing.NewResolver(pricing.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create price resolver", err)
		os.Exit(1)
	}

	taxProcessor, err := tax.NewRegistry().New(tax.Deps{
		Config: cfg.Tax,
		Rates:  tax.NewRepository(dbClient.DB()),
		Log:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tax processor", err)
		os.Exit(1)
	}

	locker, err := recalc.NewOrderLocker(redisClient, 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create order locker", err)
		os.Exit(1)
	}

	recalculator, err := recalc.NewService(recalc.Config{
		Repo:                recalc.NewRepository(dbClient.DB()),
		Discounts:           discountService,
		Resolver:            resolver,
		TaxProcessor:        taxProcessor,
		Adjusters:           shipping.NewAdjusterRegistry(),
		Tx:                  dbClient,
		Lock:                locker,
		Log:                 logg,
		Metrics:             metrics.NewRecalcMetrics(prometheus.DefaultRegisterer),
		CartQuantityTiering: cfg.Pricing.CartQuantityTiering,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recalculation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"tax_processor": taxProcessor.Name(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Log:          logg,
			DB:           dbClient,
			Redis:        redisClient,
			Recalculator: recalculator,
			TaxProcessor: taxProcessor,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
