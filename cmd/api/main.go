package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/crumbly-backend/api/routes"
	"github.com/angelmondragon/crumbly-backend/internal/calendar"
	"github.com/angelmondragon/crumbly-backend/internal/checkout"
	"github.com/angelmondragon/crumbly-backend/internal/discounts"
	"github.com/angelmondragon/crumbly-backend/internal/orders"
	"github.com/angelmondragon/crumbly-backend/internal/payments"
	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	"github.com/angelmondragon/crumbly-backend/internal/shippingrules"
	gatewaywebhook "github.com/angelmondragon/crumbly-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/crumbly-backend/pkg/config"
	"github.com/angelmondragon/crumbly-backend/pkg/db"
	"github.com/angelmondragon/crumbly-backend/pkg/instance"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/metrics"
	"github.com/angelmondragon/crumbly-backend/pkg/migrate"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/redis"
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

	loc, err := cfg.Checkout.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid checkout timezone", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	ordersRepo := orders.NewRepository(conn)

	calendarService, err := calendar.NewService(calendar.ServiceParams{
		Repo:            calendar.NewRepository(conn),
		Tx:              dbClient,
		Logger:          logg,
		Location:        loc,
		CutoffHour:      cfg.Checkout.CutoffHour,
		MaxDeliveryDays: cfg.Checkout.MaxDeliveryDays,
	})
	exitOnErr(logg, "calendar service", err)

	resolver, err := pricing.NewResolver(pricing.NewRepository(conn), pricing.DefaultShippingTable(cfg.Checkout.ShippingFallbackCost))
	exitOnErr(logg, "pricing resolver", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Calendar:        calendarService,
		Pricing:         resolver,
		DiscountPreview: cfg.FeatureFlags.DiscountPreview,
	})
	exitOnErr(logg, "checkout service", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Calendar: calendarService,
		Pricing:  resolver,
		Logger:   logg,
		Metrics:  settlementMetrics,
		Prefix:   cfg.Checkout.OrderNumberPrefix,
		Location: loc,
	})
	exitOnErr(logg, "orders service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:  ordersRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Gateway: cfg.Gateway,
		Logger:  logg,
	})
	exitOnErr(logg, "payments service", err)

	reconciler, err := gatewaywebhook.NewService(gatewaywebhook.ServiceParams{
		Orders:   ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Metrics:  settlementMetrics,
		Logger:   logg,
		Currency: cfg.Gateway.Currency,
	})
	exitOnErr(logg, "gateway reconciler", err)

	webhookGuard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, cfg.Gateway.WebhookEventTTL, "gateway_webhook")
	exitOnErr(logg, "webhook idempotency guard", err)

	discountService, err := discounts.NewService(discounts.ServiceParams{
		Repo:   discounts.NewRepository(conn),
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
	})
	exitOnErr(logg, "discounts service", err)

	shippingRulesService, err := shippingrules.NewService(shippingrules.NewRepository(conn))
	exitOnErr(logg, "shipping rules service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			calendarService,
			checkoutService,
			resolver,
			ordersService,
			paymentsService,
			reconciler,
			webhookGuard,
			settlementMetrics,
			discountService,
			shippingRulesService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnErr(logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+component, err)
	os.Exit(1)
}
