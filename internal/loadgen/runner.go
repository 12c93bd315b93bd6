package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/eldercare-platform/eldercare/pkg/logger"
)

const directoryPermission = 0o750

// Run generates cfg.Readings readings, posts them with cfg.Workers senders and
// returns the tally. Per-reading failures are counted, not returned.
func Run(ctx context.Context, cfg Config, log logger.Logger) (Stats, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Nop()
	}
	stats := Stats{Start: time.Now()}

	log.Info(ctx, "starting load run",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("readings", cfg.Readings),
		logger.Int("workers", cfg.Workers),
		logger.Int("devices", cfg.Devices),
		logger.Float64("rate", cfg.Rate))

	c := newClient(cfg)
	if !cfg.SkipHealth {
		if err := c.health(ctx); err != nil {
			return stats, fmt.Errorf("ingestion health check: %w", err)
		}
	}

	readings := Generate(cfg, cfg.Readings, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	stats.Generated = len(readings)

	submit(ctx, c, cfg.Workers, limiter(cfg.Rate), readings, &stats)

	if cfg.OutputFile != "" {
		if err := save(cfg.OutputFile, readings); err != nil {
			log.Warn(ctx, "failed to save readings", logger.Error(err))
		}
	}

	stats.End = time.Now()
	stats.Duration = stats.End.Sub(stats.Start)
	log.Info(ctx, "load run finished",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("throttled", stats.Throttled),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("success_rate", stats.SuccessRate()),
		logger.Float64("per_second", stats.PerSecond()))
	return stats, ctx.Err()
}

// limiter paces the feed loop; burst 1 keeps the spacing even.
func limiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func submit(ctx context.Context, c *client, workers int, lim *rate.Limiter, readings []Reading, stats *Stats) {
	var counts [outcomeFailed + 1]atomic.Int64

	jobs := make(chan Reading, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				counts[c.send(ctx, r)].Add(1)
			}
		}()
	}

feed:
	for _, r := range readings {
		if err := lim.Wait(ctx); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- r:
		}
	}
	close(jobs)
	wg.Wait()

	stats.Accepted = int(counts[outcomeAccepted].Load())
	stats.Duplicate = int(counts[outcomeDuplicate].Load())
	stats.Throttled = int(counts[outcomeThrottled].Load())
	stats.Rejected = int(counts[outcomeRejected].Load())
	stats.Failed = int(counts[outcomeFailed].Load())
	stats.Submitted = stats.Accepted + stats.Duplicate + stats.Throttled + stats.Rejected + stats.Failed
}

func save(path string, readings []Reading) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	body, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}
