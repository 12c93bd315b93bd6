// Command eldercare runs the API server: offline dataset views, users, devices,
// alerts, dashboards and reports.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/adapters/http/api"
	"github.com/eldercare-platform/eldercare/internal/adapters/http/site"
	"github.com/eldercare-platform/eldercare/internal/adapters/http/swagger"
	"github.com/eldercare-platform/eldercare/internal/adapters/session"
	service "github.com/eldercare-platform/eldercare/internal/app"
	"github.com/eldercare-platform/eldercare/internal/config"
	"github.com/eldercare-platform/eldercare/internal/platform"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := platform.Init(ctx, "api")
	if err != nil {
		os.Stderr.WriteString("startup failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "api server failed", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	provider := dataset.NewProvider(cfg.OfflineOutputsDir,
		dataset.WithFiles(cfg.OfflineDatasets...),
		dataset.WithLogger(log.Named("dataset")),
	)
	opts := []service.Option{
		service.WithOffline(cfg.OfflineOnly),
		service.WithTokenTTL(cfg.TokenTTL()),
		service.WithDeviceCacheSize(cfg.DeviceCacheSize),
		service.WithLogger(log.Named("service")),
	}

	if cfg.OfflineOnly {
		if err := provider.Load(ctx); err != nil {
			return err
		}
	} else {
		store, err := platform.OpenStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, service.WithStore(store))
	}

	client, err := platform.OpenRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
		opts = append(opts, service.WithSessions(session.NewRedisStore(client, cfg.TokenTTL())))
	}

	svc, err := service.New(provider, opts...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, log.Named("http")).Register(ctx, mux)
	swagger.Register(ctx, mux)
	if err := site.Register(ctx, mux, cfg.WebDir); err != nil {
		log.Warn(ctx, "web directory not mounted", logger.Error(err))
	}

	log.Info(ctx, "api configured",
		logger.Bool("offline_only", cfg.OfflineOnly),
		logger.Int("datasets", provider.Len()),
		logger.Bool("redis_sessions", client != nil))

	return platform.Serve(ctx, platform.NewHTTPServer(cfg.Addr, api.CORS(mux)), log)
}
