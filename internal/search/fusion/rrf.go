// Package fusion provides Reciprocal Rank Fusion across vector store result
// channels.
package fusion

import (
	"sort"

	"github.com/convomem/retrieval-engine/internal/qdrant"
)

const (
	// DefaultK is the RRF smoothing constant. Higher values reduce the
	// impact of rank position differences.
	DefaultK = 60
)

// RRFConfig configures Reciprocal Rank Fusion parameters.
type RRFConfig struct {
	// K is the smoothing constant (default: 60).
	K int

	// SparseWeight multiplies the sparse channel's contribution. Default 1.0
	// (the spec's unweighted RRF); set lower to de-emphasize lexical matches.
	SparseWeight float32

	// DenseWeight multiplies the dense channel's contribution. Default 1.0.
	DenseWeight float32
}

// DefaultRRFConfig returns the default RRF configuration: unweighted fusion
// with k=60, matching the canonical RRF formula.
func DefaultRRFConfig() RRFConfig {
	return RRFConfig{
		K:            DefaultK,
		SparseWeight: 1.0,
		DenseWeight:  1.0,
	}
}

// ScoredResult represents a result with its combined RRF score and the
// per-channel ranks/scores that produced it.
type ScoredResult struct {
	// Result is the underlying vector store result.
	Result qdrant.SearchResult

	// SparseRank is the rank in sparse-only results (1-based, 0 if absent).
	SparseRank int

	// DenseRank is the rank in dense-only results (1-based, 0 if absent).
	DenseRank int

	// SparseScore is the original sparse channel score.
	SparseScore float32

	// DenseScore is the original dense channel score.
	DenseScore float32

	// FusedScore is the combined RRF score.
	FusedScore float32

	// FirstRank is the earliest (smallest) rank this id achieved across any
	// channel, used as a tie-break for equal fused scores.
	FirstRank int
}

// Fuse combines sparse and dense results using Reciprocal Rank Fusion.
//
// score(id) = sparseWeight/(k + sparseRank) + denseWeight/(k + denseRank),
// with ranks 1-based and missing-channel contributions treated as zero.
// Results are sorted by FusedScore descending; ties break by the earliest
// rank the id achieved across channels, then by id.
func Fuse(sparseResults, denseResults []qdrant.SearchResult, cfg RRFConfig) []ScoredResult {
	if cfg.K == 0 {
		cfg.K = DefaultK
	}
	if cfg.SparseWeight == 0 && cfg.DenseWeight == 0 {
		cfg = DefaultRRFConfig()
	}

	scores := make(map[string]*ScoredResult)
	order := make([]string, 0)

	for rank, r := range sparseResults {
		id := r.ID
		if scores[id] == nil {
			scores[id] = &ScoredResult{Result: r, FirstRank: rank + 1}
			order = append(order, id)
		}
		scores[id].SparseRank = rank + 1
		scores[id].SparseScore = r.Score
		scores[id].FusedScore += cfg.SparseWeight / float32(cfg.K+rank+1)
	}

	for rank, r := range denseResults {
		id := r.ID
		if scores[id] == nil {
			scores[id] = &ScoredResult{Result: r, FirstRank: rank + 1}
			order = append(order, id)
		} else if rank+1 < scores[id].FirstRank {
			scores[id].FirstRank = rank + 1
		}
		scores[id].DenseRank = rank + 1
		scores[id].DenseScore = r.Score
		scores[id].FusedScore += cfg.DenseWeight / float32(cfg.K+rank+1)
	}

	results := make([]ScoredResult, 0, len(order))
	for _, id := range order {
		results = append(results, *scores[id])
	}

	sortFused(results)
	return results
}

// Channel is one ranked result set participating in an N-way fusion, such
// as a dense, sparse, or multi-vector prefetch, or a single variant query's
// hybrid result set in multi-query expansion.
type Channel struct {
	Name    string
	Results []qdrant.SearchResult
}

// FuseChannels combines an arbitrary number of ranked result sets using the
// unweighted RRF formula from §4.G: score(id) = Σ 1/(k + rank_i(id)), ranks
// 1-based, missing-channel contributions zero. This is the entry point used
// by the hybrid retriever (dense+sparse+colbert) and the multi-query
// retriever (N query variants).
func FuseChannels(channels []Channel, k int) []ScoredResult {
	if k == 0 {
		k = DefaultK
	}

	scores := make(map[string]*ScoredResult)
	order := make([]string, 0)

	for _, ch := range channels {
		for rank, r := range ch.Results {
			id := r.ID
			sr, ok := scores[id]
			if !ok {
				sr = &ScoredResult{Result: r, FirstRank: rank + 1}
				scores[id] = sr
				order = append(order, id)
			} else if rank+1 < sr.FirstRank {
				sr.FirstRank = rank + 1
			}
			sr.FusedScore += 1.0 / float32(k+rank+1)
		}
	}

	results := make([]ScoredResult, 0, len(order))
	for _, id := range order {
		results = append(results, *scores[id])
	}

	sortFused(results)
	return results
}

func sortFused(results []ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		if results[i].FirstRank != results[j].FirstRank {
			return results[i].FirstRank < results[j].FirstRank
		}
		return results[i].Result.ID < results[j].Result.ID
	})
}

// IsBalanced returns true if weights are approximately equal (both ~1.0).
func (cfg RRFConfig) IsBalanced() bool {
	const epsilon = 0.05
	return abs(cfg.SparseWeight-cfg.DenseWeight) < epsilon
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
