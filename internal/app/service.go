// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/adapters/repository"
	"github.com/eldercare-platform/eldercare/internal/adapters/session"
	"github.com/eldercare-platform/eldercare/internal/domain/scoring"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

const (
	defaultTokenTTL        = time.Hour
	defaultDeviceCacheSize = 4096
)

// Datasets is the read side of the offline table cache.
type Datasets interface {
	Table(name string) (*dataset.Table, bool)
	Names() []string
	Len() int
}

// Service implements the API dependencies for the eldercare platform.
type Service struct {
	offline  bool
	datasets Datasets
	store    repository.Store
	sessions session.Store
	devices  *deviceCache
	scorer   *scoring.Scorer

	tokenTTL        time.Duration
	deviceCacheSize int

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service over the loaded datasets.
func New(datasets Datasets, opts ...Option) (*Service, error) {
	if datasets == nil {
		datasets = dataset.NewStatic()
	}
	s := &Service{
		datasets:        datasets,
		scorer:          scoring.New(),
		tokenTTL:        defaultTokenTTL,
		deviceCacheSize: defaultDeviceCacheSize,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sessions == nil {
		s.sessions = session.NewMemoryStore(s.tokenTTL)
	}
	if s.store != nil {
		dc, err := newDeviceCache(s.store, s.deviceCacheSize)
		if err != nil {
			return nil, fmt.Errorf("device cache: %w", err)
		}
		s.devices = dc
	}
	return s, nil
}

// Offline reports whether the service runs in offline mode.
func (s *Service) Offline() bool { return s.offline }

// Health is the body of GET /health.
type Health struct {
	Status        string   `json:"status"`
	Mode          string   `json:"mode"`
	CacheLoaded   int      `json:"cache_loaded"`
	AvailableData []string `json:"available_data"`
	Database      string   `json:"database,omitempty"`
}

// Health reports the mode and which datasets are loaded.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{
		Status:        "healthy",
		Mode:          "online",
		CacheLoaded:   s.datasets.Len(),
		AvailableData: s.datasets.Names(),
	}
	if s.offline {
		h.Mode = "offline"
	}
	if s.store != nil {
		h.Database = "ok"
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "database ping failed", logger.Error(err))
			h.Database = "unavailable"
		}
	}
	return h
}

func (s *Service) requireStore() error {
	if s.store == nil {
		return ErrStoreUnavailable
	}
	return nil
}
