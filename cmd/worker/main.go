package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/resellsync/internal/notify"
	"github.com/angelmondragon/resellsync/pkg/config"
	"github.com/angelmondragon/resellsync/pkg/db"
	"github.com/angelmondragon/resellsync/pkg/instance"
	"github.com/angelmondragon/resellsync/pkg/logger"
	"github.com/angelmondragon/resellsync/pkg/migrate"
	"github.com/angelmondragon/resellsync/pkg/pubsub"
	"github.com/angelmondragon/resellsync/pkg/redis"
)

func main() {
	mode := flag.String("mode", modeMonitor, "worker mode: monitor|sync|reprice")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"mode":        *mode,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	notifier, closeNotifier, err := buildNotifier(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap notifier", err)
		os.Exit(1)
	}
	defer closeNotifier()

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Notifier: notifier,
		Registry: prometheus.DefaultRegisterer,
		Gatherer: prometheus.DefaultGatherer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx, *mode); err != nil {
		logg.Error(ctx, "worker stopped with error", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

// buildNotifier always logs alerts and fans out to the webhook and Pub/Sub
// channels when they are configured.
func buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notify.Notifier, func(), error) {
	channels := notify.Multi{notify.NewLogNotifier(logg)}
	closer := func() {}

	if cfg.Notifier.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.Notifier.WebhookURL, &http.Client{Timeout: cfg.Notifier.Timeout})
		if err != nil {
			return nil, closer, err
		}
		channels = append(channels, webhook)
	}

	if cfg.Notifier.PubSubTopic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, logg)
		if err != nil {
			return nil, closer, err
		}
		publisher := psClient.Publisher(cfg.Notifier.PubSubTopic)
		topicNotifier, err := notify.NewPubSubNotifier(publisher)
		if err != nil {
			_ = psClient.Close()
			return nil, closer, err
		}
		channels = append(channels, topicNotifier)
		closer = func() {
			publisher.Stop()
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}
	}

	return channels, closer, nil
}
