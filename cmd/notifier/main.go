// Command notifier consumes detection events and dispatches them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eldercare-platform/eldercare/internal/adapters/mq/mqtt"
	"github.com/eldercare-platform/eldercare/internal/adapters/mq/stream"
	"github.com/eldercare-platform/eldercare/internal/config"
	"github.com/eldercare-platform/eldercare/internal/notifier"
	"github.com/eldercare-platform/eldercare/internal/platform"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// readBatch is the maximum number of stream entries read per poll.
const readBatch = 50

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := platform.Init(ctx, "notifier")
	if err != nil {
		os.Stderr.WriteString("startup failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "notifier failed", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	opts := []notifier.Option{
		notifier.WithInterval(cfg.NotifierInterval()),
		notifier.WithLogger(log),
	}

	client, err := platform.OpenRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
		consumer := stream.NewConsumer(client, cfg.AlertStream, stream.StartFromNewest, cfg.NotifierInterval(), readBatch)
		opts = append(opts, notifier.WithSource(consumer))
	}

	if cfg.MQTTBroker != "" {
		pub, err := mqtt.Connect(mqtt.Options{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
		})
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, notifier.WithMQTT(pub))
		log.Info(ctx, "publishing alerts over mqtt", logger.String("broker", cfg.MQTTBroker))
	}

	if !cfg.OfflineOnly {
		store, err := platform.OpenStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, notifier.WithAlerts(store))
	}

	return notifier.New(opts...).Run(ctx)
}
