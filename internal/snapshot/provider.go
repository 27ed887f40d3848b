package snapshot

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/docgate/internal/cache"
)

const cacheNamespace = "snapshot"

// Provider hands out snapshots per project root, building each root once
// per cache lifetime. It is safe for concurrent use.
type Provider struct {
	cache cache.Cache
	ttl   time.Duration
	opts  Options

	mu    sync.Mutex
	roots map[string]*sync.Mutex
}

// NewProvider creates a provider backed by c; a nil cache disables caching
func NewProvider(c cache.Cache, ttl time.Duration, opts Options) *Provider {
	if c == nil {
		c = cache.Nop{}
	}
	return &Provider{
		cache: c,
		ttl:   ttl,
		opts:  opts,
		roots: make(map[string]*sync.Mutex),
	}
}

// Get returns the snapshot for root. An empty root yields nil (no project
// knowledge), which every lookup treats as "unknown".
func (p *Provider) Get(root string) (*Snapshot, error) {
	if root == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// serialize builds of the same root so concurrent callers share one scan
	lock := p.rootLock(abs)
	lock.Lock()
	defer lock.Unlock()

	key := cache.CacheKey(cacheNamespace, abs)
	if data, ok := p.cache.Get(key); ok {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return &snap, nil
		}
		_ = p.cache.Delete(key)
	}

	snap, err := Build(abs, p.opts)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snap); err == nil {
		_ = p.cache.Set(key, data, p.ttl)
	}

	return snap, nil
}

// Invalidate drops the cached snapshot for root
func (p *Provider) Invalidate(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	_ = p.cache.Delete(cache.CacheKey(cacheNamespace, abs))
}

func (p *Provider) rootLock(abs string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.roots[abs]
	if !ok {
		lock = &sync.Mutex{}
		p.roots[abs] = lock
	}
	return lock
}
