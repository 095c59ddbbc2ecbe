package rerank

import (
	"sync"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/llmclient"
	"github.com/convomem/retrieval-engine/internal/pkg/errors"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
	"github.com/convomem/retrieval-engine/internal/ratelimit"
)

// Factory lazily constructs and caches Tier instances by name, mirroring the
// teacher's single-mutex-guarded lazy-load map in ml/service.go generalized
// to a tagged set of five variants.
type Factory struct {
	mu    sync.Mutex
	cfg   config.RerankConfig
	log   *logger.Logger
	tiers map[string]Tier

	colbertEncoder MultiVectorEncoder
	llmClient      *llmclient.Client
	limiter        *ratelimit.Limiter
}

// NewFactory constructs a Factory. colbertEncoder and llmClient may be nil if
// those tiers are never requested; limiter may be nil to disable rate
// checking on the llm tier.
func NewFactory(cfg config.RerankConfig, log *logger.Logger, colbertEncoder MultiVectorEncoder, llmClient *llmclient.Client, limiter *ratelimit.Limiter) *Factory {
	return &Factory{
		cfg:            cfg,
		log:            log,
		tiers:          make(map[string]Tier),
		colbertEncoder: colbertEncoder,
		llmClient:      llmClient,
		limiter:        limiter,
	}
}

// Get returns the named tier, constructing it on first use. The same
// instance is returned on subsequent calls for the same name.
func (f *Factory) Get(name string) (Tier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.tiers[name]; ok {
		return t, nil
	}

	t, err := f.construct(name)
	if err != nil {
		return nil, err
	}

	f.tiers[name] = t
	return t, nil
}

func (f *Factory) construct(name string) (Tier, error) {
	switch name {
	case "fast":
		if f.cfg.FastModelURL == "" {
			return nil, errors.InternalError("fast tier: no model url configured", nil)
		}
		return NewCrossEncoderTier("fast", f.cfg.FastModelURL, 32, f.log), nil
	case "accurate":
		if f.cfg.AccurateModelURL == "" {
			return nil, errors.InternalError("accurate tier: no model url configured", nil)
		}
		return NewCrossEncoderTier("accurate", f.cfg.AccurateModelURL, 16, f.log), nil
	case "code":
		if f.cfg.CodeModelURL == "" {
			return nil, errors.InternalError("code tier: no model url configured", nil)
		}
		return NewCrossEncoderTier("code", f.cfg.CodeModelURL, 16, f.log), nil
	case "colbert":
		if f.colbertEncoder == nil {
			return nil, errors.InternalError("colbert tier: no multi-vector encoder configured", nil)
		}
		return NewColbertTier(f.colbertEncoder), nil
	case "llm":
		if f.llmClient == nil {
			return nil, errors.InternalError("llm tier: no llm client configured", nil)
		}
		return NewLLMTier(f.llmClient, f.limiter, f.cfg.LLMCostPerThousandTokensCents, f.cfg.LLMDocCharBudget), nil
	default:
		return nil, errors.BadInputError("unknown reranker tier: " + name)
	}
}
