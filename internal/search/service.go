// Package search implements the hybrid retriever: strategy resolution,
// dense/sparse/hybrid channel execution against the vector store, client-side
// RRF fusion as a fallback for server-side fusion, and reranker integration.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/embed"
	"github.com/convomem/retrieval-engine/internal/filter"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
	"github.com/convomem/retrieval-engine/internal/qdrant"
	"github.com/convomem/retrieval-engine/internal/rerank"
	"github.com/convomem/retrieval-engine/internal/rerankrouter"
	"github.com/convomem/retrieval-engine/internal/search/fusion"
)

// Strategy selects which channels a search executes.
type Strategy string

const (
	// StrategyAuto defers to the heuristic classifier.
	StrategyAuto Strategy = ""
	// StrategyDense executes only the dense channel.
	StrategyDense Strategy = "dense"
	// StrategySparse executes only the sparse channel.
	StrategySparse Strategy = "sparse"
	// StrategyHybrid executes both channels and fuses them.
	StrategyHybrid Strategy = "hybrid"
)

// Config configures the hybrid retriever.
type Config struct {
	// DefaultLimit is used when a request's Limit is negative; a Limit of 0
	// returns no results.
	DefaultLimit int

	// PrefetchDepthMultiplier is K in prefetch_depth = max(limit*K, 20),
	// applied when reranking is enabled. When reranking is disabled K is 1.
	PrefetchDepthMultiplier int

	// RRFK is the smoothing constant for client-side fusion.
	RRFK int

	// EnableReranking is the default reranking toggle; a Request can
	// override it per call.
	EnableReranking bool

	// DefaultRerankTier is used when a request does not specify one.
	DefaultRerankTier string

	// FallbackRerankTier is the one-hop fallback tier used when the
	// default tier fails to load or to run.
	FallbackRerankTier string

	// RerankDepthMultiplier and RerankDepthFloor compute
	// rerank_depth = max(limit*RerankDepthMultiplier, RerankDepthFloor).
	RerankDepthMultiplier int
	RerankDepthFloor      int
}

// DefaultConfig returns sensible hybrid retriever defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:            20,
		PrefetchDepthMultiplier: 4,
		RRFK:                    fusion.DefaultK,
		EnableReranking:         true,
		DefaultRerankTier:       "fast",
		FallbackRerankTier:      "accurate",
		RerankDepthMultiplier:   4,
		RerankDepthFloor:        20,
	}
}

// ConfigFromSearchConfig maps the loaded config.SearchConfig onto Config,
// leaving the fields it doesn't carry (rerank tier names, rerank depth) at
// their defaults.
func ConfigFromSearchConfig(c config.SearchConfig) Config {
	cfg := DefaultConfig()
	if c.DefaultLimit > 0 {
		cfg.DefaultLimit = c.DefaultLimit
	}
	if c.PrefetchDepthMultiplier > 0 {
		cfg.PrefetchDepthMultiplier = c.PrefetchDepthMultiplier
	}
	if c.RRFK > 0 {
		cfg.RRFK = c.RRFK
	}
	cfg.EnableReranking = c.EnableReranking
	return cfg
}

// Request is a single hybrid search request.
type Request struct {
	Query     string
	TenantID  string
	SessionID string
	Type      string
	Start     *time.Time
	End       *time.Time

	Limit    int
	Strategy Strategy

	EnableReranking    *bool
	RerankTier         string
	RerankFallbackTier string
}

// Result is a single ranked candidate.
type Result struct {
	ID      string
	Content string
	Score   float32

	SparseRank  int
	DenseRank   int
	SparseScore float32
	DenseScore  float32
	FusedScore  float32

	RerankerScore *float32
	RerankTier    string

	SessionID string
	Type      string
	Timestamp time.Time

	// Degraded and DegradedReason mirror the response-level fields onto
	// every candidate the response carries, so a consumer inspecting a
	// single Result can tell it came from a degraded search without
	// needing the enclosing Response.
	Degraded       bool
	DegradedReason *string
}

// Response is the outcome of a hybrid search.
type Response struct {
	Query          string
	Strategy       Strategy
	Results        []Result
	Degraded       bool
	DegradedReason string
}

// VectorStore is the subset of *qdrant.Client the hybrid retriever depends
// on, narrowed so tests can substitute a fake vector store.
type VectorStore interface {
	DenseSearch(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error)
	SparseSearch(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error)
	HybridSearch(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error)
}

// EmbedderSet is the subset of *embed.Factory the hybrid retriever depends
// on.
type EmbedderSet interface {
	DenseText() (embed.DenseEncoder, error)
	Sparse() (embed.SparseEncoder, error)
}

// Reranker is the subset of *rerankrouter.Router the hybrid retriever
// depends on.
type Reranker interface {
	Rerank(ctx context.Context, req rerankrouter.Request) (rerankrouter.Result, error)
}

// Service executes hybrid searches against a vector store collection.
type Service struct {
	qdrant     VectorStore
	embed      EmbedderSet
	router     Reranker
	collection string
	cfg        Config
	log        *logger.Logger
}

// NewService builds a hybrid retriever. router may be nil if reranking is
// never enabled for this service's callers.
func NewService(qc VectorStore, embedFactory EmbedderSet, router Reranker, collection string, cfg Config, log *logger.Logger) *Service {
	if cfg.DefaultLimit == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		qdrant:     qc,
		embed:      embedFactory,
		router:     router,
		collection: collection,
		cfg:        cfg,
		log:        log,
	}
}

// Search resolves a strategy, executes the matching channel(s), fuses
// multi-channel results, optionally reranks, and returns the top Limit
// candidates. Errors from retrieval itself are returned. Errors from any
// later stage (fusion degradation, reranking) are swallowed into a degraded
// response as long as retrieval produced at least one candidate.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	if req.Limit == 0 {
		return Response{Query: req.Query, Strategy: req.Strategy, Results: []Result{}}, nil
	}

	limit := req.Limit
	if limit < 0 {
		limit = s.cfg.DefaultLimit
	}

	enableRerank := s.cfg.EnableReranking
	if req.EnableReranking != nil {
		enableRerank = *req.EnableReranking
	}

	strategy := req.Strategy
	if strategy == StrategyAuto {
		strategy = classifyStrategy(req.Query)
	}

	k := 1
	if enableRerank {
		k = s.cfg.PrefetchDepthMultiplier
		if k <= 0 {
			k = 4
		}
	}
	prefetchDepth := maxInt(limit*k, 20)

	qf, err := filter.Build(filter.Input{
		TenantID:  req.TenantID,
		SessionID: req.SessionID,
		Type:      req.Type,
		Start:     req.Start,
		End:       req.End,
	})
	if err != nil {
		return Response{}, err
	}

	candidates, degraded, reason, err := s.retrieve(ctx, strategy, req.Query, prefetchDepth, qf)
	if err != nil {
		return Response{}, err
	}

	results := toResults(candidates)

	if enableRerank && len(results) > 0 {
		rerankDepth := maxInt(limit*s.cfg.RerankDepthMultiplier, s.cfg.RerankDepthFloor)
		if rerankDepth < len(results) {
			results = results[:rerankDepth]
		}

		tier := req.RerankTier
		if tier == "" {
			tier = s.cfg.DefaultRerankTier
		}
		fallback := req.RerankFallbackTier
		if fallback == "" {
			fallback = s.cfg.FallbackRerankTier
		}

		docs := make([]string, len(results))
		for i, r := range results {
			docs[i] = r.Content
		}

		if s.router == nil {
			degraded = true
			reason = "reranker_unavailable"
		} else {
			rerankResult, rerErr := s.router.Rerank(ctx, rerankrouter.Request{
				Query:        req.Query,
				Documents:    docs,
				Tier:         tier,
				TopK:         rerankDepth,
				FallbackTier: fallback,
			})
			if rerErr != nil {
				if s.log != nil {
					s.log.WithError(rerErr).Warn("reranking stage failed", "tier", tier)
				}
				degraded = true
				reason = "rerank_failed"
			} else {
				results = joinRerank(results, rerankResult.Ranked, rerankResult.TierUsed)
				if rerankResult.Degraded {
					degraded = true
					reason = "rerank_degraded"
				}
			}
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}

	applyDegraded(results, degraded, reason)

	return Response{
		Query:          req.Query,
		Strategy:       strategy,
		Results:        results,
		Degraded:       degraded,
		DegradedReason: reason,
	}, nil
}

// applyDegraded mirrors a response-level degraded verdict onto every
// candidate it carries, so Degraded/DegradedReason are checkable at the
// per-candidate field the data model names, not only on the response.
func applyDegraded(results []Result, degraded bool, reason string) {
	if !degraded {
		return
	}
	r := reason
	for i := range results {
		results[i].Degraded = true
		results[i].DegradedReason = &r
	}
}

// joinRerank joins reranked output back to its originating candidates by
// original index, carrying over the reranker score and tier actually used.
func joinRerank(original []Result, ranked []rerank.RankedResult, tier string) []Result {
	out := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		if r.OriginalIndex < 0 || r.OriginalIndex >= len(original) {
			continue
		}
		res := original[r.OriginalIndex]
		score := r.Score
		res.RerankerScore = &score
		res.RerankTier = tier
		out = append(out, res)
	}
	return out
}

// retrieve executes the channel(s) for the resolved strategy.
func (s *Service) retrieve(ctx context.Context, strategy Strategy, query string, depth int, qf *qdrant.SearchFilter) ([]qdrant.SearchResult, bool, string, error) {
	switch strategy {
	case StrategyDense:
		vec, err := s.encodeDense(ctx, query)
		if err != nil {
			return nil, false, "", err
		}
		res, err := s.qdrant.DenseSearch(ctx, s.collection, qdrant.SearchRequest{
			DenseVector: vec,
			Limit:       uint64(depth),
			Filter:      qf,
			WithPayload: true,
		})
		if err != nil {
			return nil, false, "", err
		}
		return res, false, "", nil

	case StrategySparse:
		idx, vals, err := s.encodeSparse(ctx, query)
		if err != nil {
			return nil, false, "", err
		}
		res, err := s.qdrant.SparseSearch(ctx, s.collection, qdrant.SearchRequest{
			SparseIndices: idx,
			SparseValues:  vals,
			Limit:         uint64(depth),
			Filter:        qf,
			WithPayload:   true,
		})
		if err != nil {
			return nil, false, "", err
		}
		return res, false, "", nil

	default:
		return s.retrieveHybrid(ctx, query, depth, qf)
	}
}

// retrieveHybrid embeds both channels concurrently and prefers a single
// server-side fused query; if the embedder for one channel fails, it
// degrades to the surviving channel rather than failing the whole search.
func (s *Service) retrieveHybrid(ctx context.Context, query string, depth int, qf *qdrant.SearchFilter) ([]qdrant.SearchResult, bool, string, error) {
	var denseVec []float32
	var sparseIdx []uint32
	var sparseVals []float32
	var denseErr, sparseErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		denseVec, denseErr = s.encodeDense(gctx, query)
		return nil
	})
	g.Go(func() error {
		sparseIdx, sparseVals, sparseErr = s.encodeSparse(gctx, query)
		return nil
	})
	_ = g.Wait()

	switch {
	case denseErr != nil && sparseErr != nil:
		return nil, false, "", denseErr

	case denseErr != nil:
		res, err := s.qdrant.SparseSearch(ctx, s.collection, qdrant.SearchRequest{
			SparseIndices: sparseIdx,
			SparseValues:  sparseVals,
			Limit:         uint64(depth),
			Filter:        qf,
			WithPayload:   true,
		})
		if err != nil {
			return nil, false, "", err
		}
		return res, true, "dense_embed_failed", nil

	case sparseErr != nil:
		res, err := s.qdrant.DenseSearch(ctx, s.collection, qdrant.SearchRequest{
			DenseVector: denseVec,
			Limit:       uint64(depth),
			Filter:      qf,
			WithPayload: true,
		})
		if err != nil {
			return nil, false, "", err
		}
		return res, true, "sparse_embed_failed", nil
	}

	req := qdrant.SearchRequest{
		DenseVector:   denseVec,
		SparseIndices: sparseIdx,
		SparseValues:  sparseVals,
		Limit:         uint64(depth),
		PrefetchLimit: uint64(depth),
		Filter:        qf,
		WithPayload:   true,
	}
	res, err := s.qdrant.HybridSearch(ctx, s.collection, req)
	if err == nil {
		return res, false, "", nil
	}

	if s.log != nil {
		s.log.WithError(err).Warn("server-side hybrid search failed, falling back to client-side fusion")
	}
	return s.fuseClientSide(ctx, depth, qf, denseVec, sparseIdx, sparseVals)
}

// fuseClientSide runs the dense and sparse channels separately and
// concurrently, then fuses them with the unweighted RRF formula. Used when
// server-side fusion is unavailable.
func (s *Service) fuseClientSide(ctx context.Context, depth int, qf *qdrant.SearchFilter, denseVec []float32, sparseIdx []uint32, sparseVals []float32) ([]qdrant.SearchResult, bool, string, error) {
	var denseRes, sparseRes []qdrant.SearchResult
	var denseErr, sparseErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		denseRes, denseErr = s.qdrant.DenseSearch(gctx, s.collection, qdrant.SearchRequest{
			DenseVector: denseVec,
			Limit:       uint64(depth),
			Filter:      qf,
			WithPayload: true,
		})
		return nil
	})
	g.Go(func() error {
		sparseRes, sparseErr = s.qdrant.SparseSearch(gctx, s.collection, qdrant.SearchRequest{
			SparseIndices: sparseIdx,
			SparseValues:  sparseVals,
			Limit:         uint64(depth),
			Filter:        qf,
			WithPayload:   true,
		})
		return nil
	})
	_ = g.Wait()

	if denseErr != nil && sparseErr != nil {
		return nil, false, "", denseErr
	}

	var channels []fusion.Channel
	degraded := false
	reason := ""

	if denseErr == nil {
		channels = append(channels, fusion.Channel{Name: "dense", Results: denseRes})
	} else {
		degraded = true
		reason = "dense_channel_failed"
	}
	if sparseErr == nil {
		channels = append(channels, fusion.Channel{Name: "sparse", Results: sparseRes})
	} else {
		degraded = true
		reason = "sparse_channel_failed"
	}

	fused := fusion.FuseChannels(channels, s.cfg.RRFK)
	out := make([]qdrant.SearchResult, len(fused))
	for i, f := range fused {
		out[i] = f.Result
		out[i].Score = f.FusedScore
	}
	return out, degraded, reason, nil
}

func toResults(candidates []qdrant.SearchResult) []Result {
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{
			ID:        c.ID,
			Content:   c.Payload.Content,
			Score:     c.Score,
			SessionID: c.Payload.SessionID,
			Type:      c.Payload.Type,
			Timestamp: c.Payload.Timestamp,
		}
	}
	return out
}

func (s *Service) encodeDense(ctx context.Context, query string) ([]float32, error) {
	enc, err := s.embed.DenseText()
	if err != nil {
		return nil, err
	}
	return enc.EncodeQuery(ctx, query)
}

func (s *Service) encodeSparse(ctx context.Context, query string) ([]uint32, []float32, error) {
	enc, err := s.embed.Sparse()
	if err != nil {
		return nil, nil, err
	}
	m, err := enc.EncodeQuery(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	type pair struct {
		idx uint32
		val float32
	}
	pairs := make([]pair, 0, len(m))
	for idx, val := range m {
		pairs = append(pairs, pair{idx, val})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].idx < pairs[j].idx })

	idx := make([]uint32, len(pairs))
	vals := make([]float32, len(pairs))
	for i, p := range pairs {
		idx[i] = p.idx
		vals[i] = p.val
	}
	return idx, vals, nil
}

// naturalLanguageMarkers are interrogatives and modal words whose presence
// routes a query to the hybrid strategy regardless of length.
var naturalLanguageMarkers = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "who": {}, "which": {},
	"can": {}, "does": {}, "do": {}, "is": {}, "are": {}, "should": {}, "would": {}, "could": {},
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "for": {}, "to": {},
	"and": {}, "or": {}, "with": {}, "at": {}, "by": {}, "from": {}, "about": {},
}

// classifyStrategy implements the heuristic classifier: natural-language
// markers and sentence-like queries route to hybrid; short, low-stopword-
// density queries (token-sparse, high IDF) route to sparse; the default is
// hybrid.
func classifyStrategy(query string) Strategy {
	trimmed := strings.TrimSpace(query)
	tokens := strings.Fields(trimmed)
	if len(tokens) == 0 {
		return StrategyHybrid
	}
	if strings.HasSuffix(trimmed, "?") {
		return StrategyHybrid
	}

	stopwordCount := 0
	for _, tok := range tokens {
		lower := strings.ToLower(strings.Trim(tok, ".,!?;:"))
		if _, ok := naturalLanguageMarkers[lower]; ok {
			return StrategyHybrid
		}
		if _, ok := stopwords[lower]; ok {
			stopwordCount++
		}
	}

	if len(tokens) <= 3 {
		density := float64(stopwordCount) / float64(len(tokens))
		if density < 0.5 {
			return StrategySparse
		}
	}
	return StrategyHybrid
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
