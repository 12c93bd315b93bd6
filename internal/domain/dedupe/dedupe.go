// Package dedupe tracks reading ids so a retried upload is accepted once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50_000

// Deduper records seen reading ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it if not.
	// The check and the insert happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a reading that could not be queued may be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// NewInMemoryDeduper returns a Deduper. With a positive max size the oldest ids
// are evicted first; otherwise the set grows without bound.
func NewInMemoryDeduper(opts ...Option) Deduper {
	cfg := config{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxSize <= 0 {
		return &setDeduper{seen: make(map[string]struct{})}
	}
	cache, err := lru.New[string, struct{}](cfg.maxSize)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &lruDeduper{cache: cache}
}

type lruDeduper struct {
	cache *lru.Cache[string, struct{}]
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) bool {
	seen, _ := d.cache.ContainsOrAdd(id, struct{}{})
	return seen
}

func (d *lruDeduper) Unrecord(_ context.Context, id string) { d.cache.Remove(id) }

func (d *lruDeduper) Size() int64 { return int64(d.cache.Len()) }

type setDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *setDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *setDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

func (d *setDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
