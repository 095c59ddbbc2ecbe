// Package rerankrouter selects a reranker tier for a request and degrades
// gracefully on load failure, timeout, rate-limit denial, or any other
// scoring error, with at most one fallback hop per request.
package rerankrouter

import (
	"context"
	"time"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
	"github.com/convomem/retrieval-engine/internal/rerank"
)

// TierFactory resolves a tier by name, constructing it lazily. Satisfied by
// *rerank.Factory; declared as an interface so tests can stub it.
type TierFactory interface {
	Get(name string) (rerank.Tier, error)
}

// Config configures the router's defaults.
type Config struct {
	DefaultTimeout time.Duration
}

// DefaultConfig returns a 5 second default per-call timeout, matching the
// reference router's configured default.
func DefaultConfig() Config {
	return Config{DefaultTimeout: 5 * time.Second}
}

// Router routes rerank requests to a tier, retrying once on a distinct
// fallback tier and synthesizing a degraded result as a last resort.
type Router struct {
	factory TierFactory
	cfg     Config
	log     *logger.Logger
}

// New constructs a Router backed by factory.
func New(factory TierFactory, cfg Config, log *logger.Logger) *Router {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	return &Router{factory: factory, cfg: cfg, log: log}
}

// Request describes one rerank call.
type Request struct {
	Query        string
	Documents    []string
	Tier         string
	TopK         int           // 0 means "all documents"
	Timeout      time.Duration // 0 means use the router's configured default
	FallbackTier string        // empty disables fallback
}

// Result is the outcome of a routed rerank call.
type Result struct {
	Ranked   []rerank.RankedResult
	TierUsed string
	Degraded bool
}

// Rerank routes req to its requested tier, falling back at most once on
// load failure, timeout, or any scoring error.
func (r *Router) Rerank(ctx context.Context, req Request) (Result, error) {
	if len(req.Documents) == 0 {
		return Result{TierUsed: req.Tier}, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}

	tier, err := r.factory.Get(req.Tier)
	if err != nil {
		if r.log != nil {
			r.log.WithError(err).Warn("reranker tier load failed", "tier", req.Tier)
		}
		if req.FallbackTier != "" && req.FallbackTier != req.Tier {
			return r.fallback(ctx, req)
		}
		return Result{TierUsed: req.Tier, Degraded: true}, nil
	}

	ranked, runErr := r.runWithTimeout(ctx, tier, req, timeout)
	if runErr == nil {
		return Result{Ranked: ranked, TierUsed: req.Tier}, nil
	}

	if r.log != nil {
		r.log.WithError(runErr).Warn("reranking failed", "tier", req.Tier)
	}

	if req.FallbackTier != "" && req.FallbackTier != req.Tier {
		return r.fallback(ctx, req)
	}

	return Result{
		Ranked:   uniformDegradedResults(req.Documents, req.TopK),
		TierUsed: req.Tier,
		Degraded: true,
	}, nil
}

// fallback recurses into the fallback tier with further fallback disabled,
// matching the reference implementation's single-hop guarantee.
func (r *Router) fallback(ctx context.Context, req Request) (Result, error) {
	next := req
	next.Tier = req.FallbackTier
	next.FallbackTier = ""

	result, err := r.Rerank(ctx, next)
	if err != nil {
		return result, err
	}
	result.Degraded = true
	return result, nil
}

func (r *Router) runWithTimeout(ctx context.Context, tier rerank.Tier, req Request, timeout time.Duration) ([]rerank.RankedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		ranked []rerank.RankedResult
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		ranked, err := tier.Rerank(ctx, req.Query, req.Documents, req.TopK)
		done <- outcome{ranked: ranked, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.TimeoutErr("reranking")
	case o := <-done:
		return o.ranked, o.err
	}
}

func uniformDegradedResults(documents []string, topK int) []rerank.RankedResult {
	results := make([]rerank.RankedResult, len(documents))
	for i, doc := range documents {
		results[i] = rerank.RankedResult{Text: doc, Score: 0.5, OriginalIndex: i}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}
