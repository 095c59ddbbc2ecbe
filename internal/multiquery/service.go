// Package multiquery wraps the hybrid retriever with LLM-based query
// expansion: a handful of semantically diverse rewrites of the original
// query are searched in parallel and fused with the same Reciprocal Rank
// Fusion formula the hybrid retriever uses across its dense/sparse channels.
package multiquery

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/llmclient"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
	"github.com/convomem/retrieval-engine/internal/qdrant"
	"github.com/convomem/retrieval-engine/internal/search"
	"github.com/convomem/retrieval-engine/internal/search/fusion"
)

const expansionSystemPrompt = `You are a search query expansion expert. Given a user query, generate alternative search queries that will help retrieve relevant documents.

Rules:
- Generate queries that are semantically different but target the same information need
- Each query should emphasize different aspects or use different vocabulary
- Return ONLY a JSON object with a "queries" array of query strings
- Example: {"queries": ["query 1", "query 2", "query 3"]}
- Do not include numbering, bullets, or markdown formatting`

var strategyInstructions = map[string]string{
	"paraphrase": "- Paraphrase: Rephrase the query using different words and synonyms",
	"keyword":    "- Keyword: Focus on key entities, names, and technical terms",
	"stepback":   "- Step-back: Generalize to a broader concept or category",
	"decompose":  "- Decompose: Break into simpler sub-questions (if the query is complex)",
}

// Config configures the multi-query retriever.
type Config struct {
	NumVariations             int
	Strategies                []string
	IncludeOriginal           bool
	RRFK                      int
	DefaultLimit              int
	CostPerMillionTokensCents float64
}

// DefaultConfig returns the DMQR-RAG defaults: three variations spanning
// paraphrase/keyword/stepback, original query included, k=60.
func DefaultConfig() Config {
	return Config{
		NumVariations:             3,
		Strategies:                []string{"paraphrase", "keyword", "stepback"},
		IncludeOriginal:           true,
		RRFK:                      fusion.DefaultK,
		DefaultLimit:              20,
		CostPerMillionTokensCents: 50,
	}
}

// ConfigFromSearchConfig derives multi-query settings from the shared search
// configuration block, falling back to DefaultConfig for anything unset.
func ConfigFromSearchConfig(c config.SearchConfig) Config {
	cfg := DefaultConfig()
	if c.MultiQueryExpansions > 0 {
		cfg.NumVariations = c.MultiQueryExpansions
	}
	if c.MultiQueryCostPerMillionTokensCents > 0 {
		cfg.CostPerMillionTokensCents = c.MultiQueryCostPerMillionTokensCents
	}
	if c.RRFK > 0 {
		cfg.RRFK = c.RRFK
	}
	if c.DefaultLimit > 0 {
		cfg.DefaultLimit = c.DefaultLimit
	}
	return cfg
}

// BaseRetriever is the subset of *search.Service the multi-query retriever
// wraps, narrowed so tests can substitute a fake.
type BaseRetriever interface {
	Search(ctx context.Context, req search.Request) (search.Response, error)
}

// Expander is the subset of *llmclient.Client used for query rewriting.
type Expander interface {
	Complete(ctx context.Context, messages []llmclient.Message, jsonMode bool) (llmclient.Response, error)
}

// Service is the multi-query retriever.
type Service struct {
	base BaseRetriever
	llm  Expander
	cfg  Config
	log  *logger.Logger

	mu             sync.Mutex
	totalTokens    int
	totalCostCents float64
}

// NewService constructs a multi-query retriever. llm may be nil, in which
// case expansion always falls back to searching the original query alone
// and every response is marked degraded.
func NewService(base BaseRetriever, llm Expander, cfg Config, log *logger.Logger) *Service {
	if cfg.NumVariations == 0 {
		cfg = DefaultConfig()
	}
	return &Service{base: base, llm: llm, cfg: cfg, log: log}
}

// Search expands req.Query into several variations, runs them through the
// base retriever in parallel, and fuses the result sets with RRF.
func (s *Service) Search(ctx context.Context, req search.Request) (search.Response, error) {
	if req.Limit == 0 {
		return search.Response{Query: req.Query, Strategy: req.Strategy, Results: []search.Result{}}, nil
	}

	variations, expansionDegraded := s.expandQuery(ctx, req.Query)

	limit := req.Limit
	if limit < 0 {
		limit = s.cfg.DefaultLimit
	}
	perQueryLimit := maxInt(2*limit, 20)

	responses := make([]search.Response, len(variations))
	errs := make([]error, len(variations))

	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variations {
		i, variant := i, variant
		g.Go(func() error {
			subReq := req
			subReq.Query = variant
			subReq.Limit = perQueryLimit
			responses[i], errs[i] = s.base.Search(gctx, subReq)
			return nil
		})
	}
	_ = g.Wait()

	channels := make([]fusion.Channel, 0, len(variations))
	variantFailed := false
	for i, variant := range variations {
		if errs[i] != nil {
			variantFailed = true
			continue
		}
		channels = append(channels, fusion.Channel{Name: variant, Results: toQdrantResults(responses[i].Results)})
	}
	if len(channels) == 0 {
		return search.Response{}, firstErr(errs)
	}

	fused := fusion.FuseChannels(channels, s.cfg.RRFK)
	if len(fused) > limit {
		fused = fused[:limit]
	}

	byID := indexResultsByID(responses)
	results := make([]search.Result, len(fused))
	for i, f := range fused {
		r := byID[f.Result.ID]
		r.FusedScore = f.FusedScore
		r.Score = f.FusedScore
		results[i] = r
	}

	degraded := expansionDegraded || variantFailed
	reason := ""
	switch {
	case expansionDegraded:
		reason = "multi_query_expansion_failed"
	case variantFailed:
		reason = "multi_query_variant_failed"
	}

	if degraded {
		r := reason
		for i := range results {
			results[i].Degraded = true
			results[i].DegradedReason = &r
		}
	}

	return search.Response{
		Query:          req.Query,
		Strategy:       req.Strategy,
		Results:        results,
		Degraded:       degraded,
		DegradedReason: reason,
	}, nil
}

// Usage reports accumulated LLM cost and token consumption for query
// expansion calls made through this instance.
func (s *Service) Usage() (totalTokens int, totalCostCents float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTokens, s.totalCostCents
}

// ResetUsage zeroes the accumulated usage counters.
func (s *Service) ResetUsage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTokens = 0
	s.totalCostCents = 0
}

// expandQuery generates up to cfg.NumVariations alternative phrasings of
// query. It returns degraded=true whenever the result is the unexpanded
// fallback because of an LLM, parse, or empty-result failure.
func (s *Service) expandQuery(ctx context.Context, query string) ([]string, bool) {
	var base []string
	if s.cfg.IncludeOriginal {
		base = append(base, query)
	}

	if s.llm == nil {
		return fallbackVariations(base, query), true
	}

	resp, err := s.llm.Complete(ctx, []llmclient.Message{
		{Role: "system", Content: expansionSystemPrompt},
		{Role: "user", Content: s.buildExpansionPrompt(query)},
	}, true)
	if err != nil {
		if s.log != nil {
			s.log.Warn("query expansion failed, using original query only", "error", err)
		}
		return fallbackVariations(base, query), true
	}
	s.recordUsage(resp.TotalTokens)

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err != nil {
		if s.log != nil {
			s.log.Warn("failed to parse query expansion response", "error", err)
		}
		return fallbackVariations(base, query), true
	}

	added := 0
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q == "" || q == query {
			continue
		}
		base = append(base, q)
		added++
		if added >= s.cfg.NumVariations {
			break
		}
	}
	if added == 0 {
		return fallbackVariations(base, query), true
	}
	return base, false
}

func (s *Service) buildExpansionPrompt(query string) string {
	var b strings.Builder
	b.WriteString("Generate ")
	b.WriteString(strconv.Itoa(s.cfg.NumVariations))
	b.WriteString(" alternative search queries for:\n\"")
	b.WriteString(query)
	b.WriteString("\"\n\nUse these strategies:\n")
	for _, strat := range s.cfg.Strategies {
		if instr, ok := strategyInstructions[strat]; ok {
			b.WriteString(instr)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nReturn ONLY a JSON object with a \"queries\" array. No explanations.")
	return b.String()
}

func (s *Service) recordUsage(totalTokens int) {
	if totalTokens == 0 {
		return
	}
	costCents := (float64(totalTokens) / 1_000_000) * s.cfg.CostPerMillionTokensCents
	s.mu.Lock()
	s.totalTokens += totalTokens
	s.totalCostCents += costCents
	s.mu.Unlock()
}

func fallbackVariations(base []string, query string) []string {
	if len(base) == 0 {
		return []string{query}
	}
	return base
}

func toQdrantResults(results []search.Result) []qdrant.SearchResult {
	out := make([]qdrant.SearchResult, len(results))
	for i, r := range results {
		out[i] = qdrant.SearchResult{
			ID:    r.ID,
			Score: r.Score,
			Payload: qdrant.PointPayload{
				Content:   r.Content,
				SessionID: r.SessionID,
				Type:      r.Type,
				Timestamp: r.Timestamp,
			},
		}
	}
	return out
}

func indexResultsByID(responses []search.Response) map[string]search.Result {
	m := make(map[string]search.Result)
	for _, resp := range responses {
		for _, r := range resp.Results {
			if _, ok := m[r.ID]; !ok {
				m[r.ID] = r
			}
		}
	}
	return m
}

func firstErr(errs []error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
