package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/crumbly-backend/pkg/config"
	"github.com/angelmondragon/crumbly-backend/pkg/db"
	"github.com/angelmondragon/crumbly-backend/pkg/instance"
	"github.com/angelmondragon/crumbly-backend/pkg/kafka"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/migrate"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox/registry"
	"github.com/angelmondragon/crumbly-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	sinkName, err := normalizeSink(cfg.Eventing.Sink)
	if err != nil {
		logg.Error(context.Background(), "invalid eventing sink", err)
		os.Exit(1)
	}

	var (
		eventSink sink
		topics    registry.Topics
	)
	switch sinkName {
	case sinkKafka:
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap kafka", err)
			os.Exit(1)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logg.Error(context.Background(), "error closing kafka producer", err)
			}
		}()
		eventSink, err = newKafkaSink(producer)
		if err != nil {
			logg.Error(context.Background(), "failed to create kafka sink", err)
			os.Exit(1)
		}
		topics = registry.Topics{Orders: cfg.Kafka.OrdersTopic, Payments: cfg.Kafka.PaymentsTopic}
	default:
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		eventSink, err = newPubSubSink(pubsubClient, nil)
		if err != nil {
			logg.Error(context.Background(), "failed to create pubsub sink", err)
			os.Exit(1)
		}
		topics = registry.Topics{Orders: cfg.PubSub.OrdersTopic, Payments: cfg.PubSub.PaymentsTopic}
	}

	eventRegistry, err := registry.NewEventRegistry(topics)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Sink:          eventSink,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"sink":        sinkName,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
