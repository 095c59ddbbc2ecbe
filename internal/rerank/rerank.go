// Package rerank implements the reranker tier set: fast, accurate, code,
// colbert, and llm, each scoring a query against a batch of documents behind
// a uniform contract.
package rerank

import (
	"context"
	"sort"
)

// RankedResult is one scored document, tagged with its position in the
// caller's original document slice so joins survive the sort.
type RankedResult struct {
	Text          string
	Score         float32
	OriginalIndex int
}

// Tier scores query-document pairs and returns the top results sorted by
// score descending, ties broken by original index ascending. topK <= 0 means
// "return all documents".
type Tier interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedResult, error)
}

// sortAndTruncate applies the tier contract's ordering and top-k rule to a
// slice of scores aligned with documents by index.
func sortAndTruncate(documents []string, scores []float32, topK int) []RankedResult {
	results := make([]RankedResult, len(documents))
	for i, doc := range documents {
		results[i] = RankedResult{Text: doc, Score: scores[i], OriginalIndex: i}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].OriginalIndex < results[j].OriginalIndex
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}

// uniformResults synthesizes a degraded result set: documents keep their
// original order, each scored 0.5, per §4.C / §4.E of the degraded-synthesis
// contract used by the router.
func uniformResults(documents []string, topK int) []RankedResult {
	results := make([]RankedResult, len(documents))
	for i, doc := range documents {
		results[i] = RankedResult{Text: doc, Score: 0.5, OriginalIndex: i}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}
