// Package session implements the hierarchical two-stage retriever: stage 1
// matches session summaries, stage 2 fans out to the turns within each
// matched session, and an optional reranking pass narrows the combined turns
// to a final top-K.
package session

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/embed"
	"github.com/convomem/retrieval-engine/internal/filter"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
	"github.com/convomem/retrieval-engine/internal/qdrant"
	"github.com/convomem/retrieval-engine/internal/rerankrouter"
	"github.com/convomem/retrieval-engine/internal/search"
)

// Config configures the session-aware retriever.
type Config struct {
	TopSessions           int
	TurnsPerSession       int
	FinalTopK             int
	SessionCollection     string
	TurnCollection        string
	SessionScoreThreshold float32
	ParallelTurnRetrieval bool
	RerankTier            string
}

// DefaultConfig returns the original's defaults: 5 sessions, 3 turns each,
// final top 10, threshold 0.3, parallel stage-2 fan-out.
func DefaultConfig() Config {
	return Config{
		TopSessions:           5,
		TurnsPerSession:       3,
		FinalTopK:             10,
		SessionCollection:     "sessions",
		TurnCollection:        "turns",
		SessionScoreThreshold: 0.3,
		ParallelTurnRetrieval: true,
		RerankTier:            "fast",
	}
}

// ConfigFromSearchConfig derives session-retriever settings from the shared
// search configuration block.
func ConfigFromSearchConfig(c config.SearchConfig) Config {
	cfg := DefaultConfig()
	if c.SessionScoreThreshold > 0 {
		cfg.SessionScoreThreshold = float32(c.SessionScoreThreshold)
	}
	return cfg
}

// Hit is a stage-1 session match.
type Hit struct {
	SessionID string
	Summary   string
	Score     float32
}

// Result is a stage-2 turn annotated with its parent session's context.
type Result struct {
	ID        string
	Content   string
	Score     float32
	Type      string
	SessionID string

	SessionSummary string
	SessionScore   float32

	RerankerScore *float32
	RerankTier    string

	// Degraded and DegradedReason mirror §3's per-candidate annotation:
	// set when the reranking stage fell back to a synthesized ranking.
	Degraded       bool
	DegradedReason *string
}

// VectorStore is the subset of *qdrant.Client the session retriever depends
// on.
type VectorStore interface {
	DenseSearch(ctx context.Context, collection string, req qdrant.SearchRequest) ([]qdrant.SearchResult, error)
}

// EmbedderSet is the subset of *embed.Factory the session retriever depends
// on.
type EmbedderSet interface {
	DenseText() (embed.DenseEncoder, error)
}

// Service is the session-aware retriever.
type Service struct {
	qdrant VectorStore
	embed  EmbedderSet
	router search.Reranker
	cfg    Config
	log    *logger.Logger
}

// NewService constructs a session-aware retriever. cfg nil selects
// DefaultConfig; a non-nil cfg is used verbatim, including an explicit
// TopSessions of 0 (which disables stage 1 entirely), since a zero-value
// Config passed by value would be indistinguishable from one. router may be
// nil, in which case the final stage always falls back to score-sorted
// truncation.
func NewService(qc VectorStore, embedFactory EmbedderSet, router search.Reranker, cfg *Config, log *logger.Logger) *Service {
	resolved := DefaultConfig()
	if cfg != nil {
		resolved = *cfg
	}
	return &Service{qdrant: qc, embed: embedFactory, router: router, cfg: resolved, log: log}
}

// Retrieve performs the two-stage lookup and returns the final ranked turns.
// Per §4.I step 6, a stage-1 or reranking failure surfaces an empty slice
// rather than partial results; a single stage-2 session's failure is
// isolated and simply contributes no turns. TopSessions = 0 skips stage 1
// outright, without issuing a vector-store call.
func (s *Service) Retrieve(ctx context.Context, query, tenantID string) []Result {
	if s.cfg.TopSessions == 0 {
		return []Result{}
	}

	encoder, err := s.embed.DenseText()
	if err != nil {
		s.warn("dense encoder unavailable", err)
		return []Result{}
	}
	vec, err := encoder.EncodeQuery(ctx, query)
	if err != nil {
		s.warn("query embedding failed", err)
		return []Result{}
	}

	hits, err := s.retrieveSessions(ctx, vec, tenantID)
	if err != nil {
		s.warn("stage 1 session retrieval failed", err)
		return []Result{}
	}
	if len(hits) == 0 {
		return []Result{}
	}

	turns := s.retrieveTurns(ctx, vec, tenantID, hits)
	if len(turns) == 0 {
		return []Result{}
	}

	if len(turns) > s.cfg.FinalTopK && s.router != nil {
		reranked, err := s.rerank(ctx, query, turns)
		if err != nil {
			s.warn("reranking failed", err)
			return []Result{}
		}
		return reranked
	}

	sort.SliceStable(turns, func(i, j int) bool { return turns[i].Score > turns[j].Score })
	if len(turns) > s.cfg.FinalTopK {
		turns = turns[:s.cfg.FinalTopK]
	}
	return turns
}

func (s *Service) retrieveSessions(ctx context.Context, vec []float32, tenantID string) ([]Hit, error) {
	if s.cfg.TopSessions == 0 {
		return nil, nil
	}

	qf, err := filter.Build(filter.Input{TenantID: tenantID})
	if err != nil {
		return nil, err
	}

	threshold := s.cfg.SessionScoreThreshold
	results, err := s.qdrant.DenseSearch(ctx, s.cfg.SessionCollection, qdrant.SearchRequest{
		DenseVector:    vec,
		Limit:          uint64(s.cfg.TopSessions),
		Filter:         qf,
		WithPayload:    true,
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{SessionID: r.Payload.SessionID, Summary: r.Payload.Content, Score: r.Score}
	}
	return hits, nil
}

// retrieveTurns runs stage 2 for every session hit, isolating per-session
// failures: a failing session contributes zero turns but does not abort the
// others.
func (s *Service) retrieveTurns(ctx context.Context, vec []float32, tenantID string, hits []Hit) []Result {
	perSession := make([][]Result, len(hits))

	if s.cfg.ParallelTurnRetrieval {
		g, gctx := errgroup.WithContext(ctx)
		for i, hit := range hits {
			i, hit := i, hit
			g.Go(func() error {
				perSession[i] = s.retrieveTurnsInSession(gctx, vec, tenantID, hit)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, hit := range hits {
			perSession[i] = s.retrieveTurnsInSession(ctx, vec, tenantID, hit)
		}
	}

	var all []Result
	for _, turns := range perSession {
		all = append(all, turns...)
	}
	return all
}

func (s *Service) retrieveTurnsInSession(ctx context.Context, vec []float32, tenantID string, hit Hit) []Result {
	qf, err := filter.Build(filter.Input{TenantID: tenantID, SessionID: hit.SessionID})
	if err != nil {
		s.warn("session filter build failed", err)
		return nil
	}

	results, err := s.qdrant.DenseSearch(ctx, s.cfg.TurnCollection, qdrant.SearchRequest{
		DenseVector: vec,
		Limit:       uint64(s.cfg.TurnsPerSession),
		Filter:      qf,
		WithPayload: true,
	})
	if err != nil {
		s.warn("turn retrieval failed for session "+hit.SessionID, err)
		return nil
	}

	turns := make([]Result, len(results))
	for i, r := range results {
		turns[i] = Result{
			ID:             r.ID,
			Content:        r.Payload.Content,
			Score:          r.Score,
			Type:           r.Payload.Type,
			SessionID:      hit.SessionID,
			SessionSummary: hit.Summary,
			SessionScore:   hit.Score,
		}
	}
	return turns
}

func (s *Service) rerank(ctx context.Context, query string, turns []Result) ([]Result, error) {
	documents := make([]string, len(turns))
	for i, t := range turns {
		documents[i] = t.Content
	}

	result, err := s.router.Rerank(ctx, rerankrouter.Request{
		Query:     query,
		Documents: documents,
		Tier:      s.cfg.RerankTier,
		TopK:      s.cfg.FinalTopK,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(result.Ranked))
	for i, ranked := range result.Ranked {
		r := turns[ranked.OriginalIndex]
		score := ranked.Score
		r.RerankerScore = &score
		r.RerankTier = result.TierUsed
		if result.Degraded {
			reason := "rerank_degraded"
			r.Degraded = true
			r.DegradedReason = &reason
		}
		out[i] = r
	}
	return out, nil
}

func (s *Service) warn(msg string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "error", err)
	}
}
