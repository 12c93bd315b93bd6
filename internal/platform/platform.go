// Package platform holds the process wiring shared by the binaries: config and
// logger bootstrap, optional backing services and HTTP serving with graceful shutdown.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/eldercare-platform/eldercare/internal/adapters/redisconn"
	"github.com/eldercare-platform/eldercare/internal/adapters/repository"
	"github.com/eldercare-platform/eldercare/internal/config"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// HTTP server timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Init loads the configuration and initializes the global logger for service.
func Init(ctx context.Context, service string) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitWithOptions(logger.Options{
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Service: service,
	}); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

// OpenStore connects to Postgres. It returns nil, nil when no database is configured.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*repository.PostgresStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	store, err := repository.Open(ctx, cfg.DatabaseURL,
		repository.WithMaxOpenConns(cfg.DBMaxConns),
		repository.WithMaxIdleConns(cfg.DBMaxIdle),
		repository.WithLogger(log.Named("repository")),
	)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "connected to database")
	return store, nil
}

// OpenRedis connects to Redis. It returns nil, nil when no address is configured.
func OpenRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client, err := redisconn.Open(ctx, redisconn.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "connected to redis", logger.String("addr", cfg.RedisAddr))
	return client, nil
}

// NewHTTPServer returns a server with the shared timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Serve runs srv until ctx is canceled, then shuts it down gracefully.
// A listener failure is returned immediately.
func Serve(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}
