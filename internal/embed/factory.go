package embed

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/pkg/errors"
)

// Factory lazily constructs and caches one instance per embedder variant,
// mirroring the teacher's ServiceImpl.LoadModels/RWMutex-guarded lazy-init
// pattern in ml/service.go, generalized from a single ONNX-backed service to
// four independently-loaded variants.
type Factory struct {
	mu  sync.Mutex
	cfg config.EmbedConfig

	denseText *Dense
	denseCode *Dense
	sparse    *Sparse
	multi     *MultiVector

	cache *Cache
}

// NewFactory constructs a Factory. cache may be nil to disable result
// caching entirely.
func NewFactory(cfg config.EmbedConfig, cache *Cache) *Factory {
	return &Factory{cfg: cfg, cache: cache}
}

// NewCacheFromConfig builds a Cache from CacheConfig, returning a nil Cache
// (not an error) when caching is disabled or misconfigured for Redis, since
// the cache is an optimization only (§4.B).
func NewCacheFromConfig(cfg config.CacheConfig) *Cache {
	if cfg.Type != "redis" || cfg.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil
	}

	ttl := time.Duration(cfg.TTL) * time.Second
	return NewCache(redis.NewClient(opts), ttl)
}

// DenseText returns the shared dense-text encoder instance, constructing it
// on first use. It returns the DenseEncoder interface, not the concrete
// *Dense type, so callers (internal/search) can depend on a narrow interface
// satisfied structurally without importing this package's concrete types.
func (f *Factory) DenseText() (DenseEncoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denseText == nil {
		if f.cfg.ExternalURL == "" {
			return nil, errors.InternalError("dense-text encoder: no external url configured", nil)
		}
		f.denseText = NewDense("dense-text", f.cfg.ExternalURL+"/embed/dense-text", f.cache)
	}
	return f.denseText, nil
}

// DenseCode returns the shared dense-code encoder instance.
func (f *Factory) DenseCode() (DenseEncoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denseCode == nil {
		if f.cfg.ExternalURL == "" {
			return nil, errors.InternalError("dense-code encoder: no external url configured", nil)
		}
		f.denseCode = NewDense("dense-code", f.cfg.ExternalURL+"/embed/dense-code", f.cache)
	}
	return f.denseCode, nil
}

// Sparse returns the shared sparse-lexical encoder instance.
func (f *Factory) Sparse() (SparseEncoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sparse == nil {
		if f.cfg.ExternalURL == "" {
			return nil, errors.InternalError("sparse encoder: no external url configured", nil)
		}
		f.sparse = NewSparse(f.cfg.ExternalURL+"/embed/sparse", f.cache)
	}
	return f.sparse, nil
}

// MultiVector returns the shared late-interaction encoder instance.
func (f *Factory) MultiVector() (MultiVectorEncoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.multi == nil {
		if f.cfg.ExternalURL == "" {
			return nil, errors.InternalError("colbert encoder: no external url configured", nil)
		}
		f.multi = NewMultiVector(f.cfg.ExternalURL+"/embed/colbert", f.cache)
	}
	return f.multi, nil
}
