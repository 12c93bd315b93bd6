// Package dataset loads the offline batch-scoring outputs into an in-memory,
// read-only table cache.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// Well-known dataset names.
const (
	MergedScored    = "merged_scored.csv"
	QCSensorCounts  = "qc_sensor_counts.csv"
	defaultParallel = 4
)

// Provider holds the loaded tables. Load runs once; afterwards the provider is
// read-only and safe for concurrent readers.
type Provider struct {
	dir      string
	files    []string
	parallel int
	logger   logger.Logger

	once   sync.Once
	mu     sync.RWMutex
	tables map[string]*Table
}

// Option configures a Provider.
type Option func(*Provider)

// WithFiles sets the file names loaded from the directory.
func WithFiles(files ...string) Option {
	return func(p *Provider) {
		if len(files) > 0 {
			p.files = files
		}
	}
}

// WithParallelism bounds concurrent file parsing.
func WithParallelism(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.parallel = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a provider reading from dir. Nothing is read until Load.
func NewProvider(dir string, opts ...Option) *Provider {
	p := &Provider{
		dir:      dir,
		files:    []string{MergedScored, QCSensorCounts},
		parallel: defaultParallel,
		logger:   logger.Nop(),
		tables:   make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewStatic creates an already-loaded provider from tables. Used by tools and tests.
func NewStatic(tables ...*Table) *Provider {
	p := NewProvider("")
	p.once.Do(func() {})
	for _, t := range tables {
		p.tables[t.Name()] = t
	}
	return p
}

// Load reads every configured file once. Missing or malformed files are logged
// and skipped; only context cancellation is returned as an error.
func (p *Provider) Load(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		err = p.load(ctx)
	})
	return err
}

func (p *Provider) load(ctx context.Context) error {
	start := time.Now()
	p.logger.Info(ctx, "loading offline datasets", logger.String("dir", p.dir), logger.Int("files", len(p.files)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for _, name := range p.files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := p.readFile(name)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				p.logger.Warn(gctx, "dataset file not found", logger.String("path", filepath.Join(p.dir, name)))
				return nil
			case err != nil:
				p.logger.Error(gctx, "failed to load dataset", logger.String("dataset", name), logger.Error(err))
				metrics.RecordErrorByComponent("dataset", "load")
				return nil
			}

			p.mu.Lock()
			p.tables[name] = t
			p.mu.Unlock()

			metrics.UpdateDatasetRows(name, t.Len())
			p.logger.Info(gctx, "loaded dataset", logger.String("dataset", name), logger.Int("rows", t.Len()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}

	metrics.RecordDatasetLoadDuration(float64(time.Since(start).Milliseconds()))
	return nil
}

func (p *Provider) readFile(name string) (*Table, error) {
	f, err := os.Open(filepath.Join(p.dir, name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(name, f)
}

// Table returns the named dataset.
func (p *Provider) Table(name string) (*Table, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tables[name]
	return t, ok
}

// Lookup returns the named dataset or ErrMissingDataset.
func (p *Provider) Lookup(name string) (*Table, error) {
	t, ok := p.Table(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingDataset, name)
	}
	return t, nil
}

// Names returns the loaded dataset names, sorted.
func (p *Provider) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.tables))
	for name := range p.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of loaded datasets.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tables)
}
