// Command ingestion accepts device readings, buffers them in a bounded queue and
// forwards them to the API with a worker pool.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eldercare-platform/eldercare/internal/adapters/forwarder"
	"github.com/eldercare-platform/eldercare/internal/adapters/http/api"
	"github.com/eldercare-platform/eldercare/internal/adapters/http/ingest"
	"github.com/eldercare-platform/eldercare/internal/adapters/mq/queue"
	"github.com/eldercare-platform/eldercare/internal/adapters/mq/worker"
	"github.com/eldercare-platform/eldercare/internal/config"
	"github.com/eldercare-platform/eldercare/internal/domain/dedupe"
	"github.com/eldercare-platform/eldercare/internal/platform"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := platform.Init(ctx, "ingestion")
	if err != nil {
		os.Stderr.WriteString("startup failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "ingestion failed", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize))
	fwd := forwarder.New(cfg.APIBase,
		forwarder.WithTimeout(cfg.ForwardTimeout()),
		forwarder.WithRetries(cfg.ForwardRetries),
		forwarder.WithLogger(log),
	)
	pool := worker.NewPool(cfg.WorkerCount, q, fwd, worker.WithLogger(log))

	// Workers outlive the request context so the queue drains on shutdown.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()
	pool.Start(workCtx)

	front := ingest.NewServer(q, pool,
		ingest.WithDeduper(dedupe.NewInMemoryDeduper()),
		ingest.WithLogger(log),
	)
	mux := http.NewServeMux()
	front.Register(ctx, mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	log.Info(ctx, "ingestion configured",
		logger.String("api_base", cfg.APIBase),
		logger.Int("queue_size", cfg.QueueSize),
		logger.Int("workers", pool.Size()))

	serveErr := platform.Serve(ctx, platform.NewHTTPServer(cfg.IngestionAddr, api.CORS(mux)), log)

	if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
		log.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	stats := pool.Stats()
	log.Info(ctx, "ingestion stopped",
		logger.Int64("forwarded", stats.Processed),
		logger.Int64("failed", stats.Failed))
	return serveErr
}
