// Command detection runs the simulated fall-detection loop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/adapters/mq/stream"
	"github.com/eldercare-platform/eldercare/internal/config"
	"github.com/eldercare-platform/eldercare/internal/detection"
	"github.com/eldercare-platform/eldercare/internal/platform"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// streamMaxLen approximately caps the alert stream.
const streamMaxLen = 10_000

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := platform.Init(ctx, "detection")
	if err != nil {
		os.Stderr.WriteString("startup failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "detection failed", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	opts := []detection.Option{
		detection.WithInterval(cfg.DetectionInterval()),
		detection.WithProbability(cfg.DetectionProbability),
		detection.WithLogger(log),
	}

	var subjects detection.SubjectSource
	if cfg.OfflineOnly {
		provider := dataset.NewProvider(cfg.OfflineOutputsDir,
			dataset.WithFiles(dataset.MergedScored),
			dataset.WithLogger(log.Named("dataset")),
		)
		if err := provider.Load(ctx); err != nil {
			return err
		}
		subjects = detection.FromDataset(provider, dataset.MergedScored)
	} else {
		store, err := platform.OpenStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		subjects = detection.FromUsers(store)
		opts = append(opts, detection.WithStore(store))
	}

	client, err := platform.OpenRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
		opts = append(opts, detection.WithPublisher(stream.NewPublisher(client, cfg.AlertStream, streamMaxLen)))
	} else {
		log.Info(ctx, "redis not configured; events are only logged")
	}

	return detection.New(subjects, opts...).Run(ctx)
}
