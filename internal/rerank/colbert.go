package rerank

import (
	"context"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
)

// MultiVectorEncoder produces late-interaction token vectors for a query or
// a document. Implemented by the late-interaction embedder variant; declared
// here (rather than imported) so this package has no dependency on the
// embedder set's concrete types.
type MultiVectorEncoder interface {
	EncodeQuery(ctx context.Context, text string) ([][]float32, error)
	EncodeDocument(ctx context.Context, text string) ([][]float32, error)
}

// ColbertTier reranks by MaxSim aggregation over late-interaction token
// vectors: each query token vector is matched against its single most
// similar document token vector, and the per-token maxima are summed.
type ColbertTier struct {
	encoder MultiVectorEncoder
}

// NewColbertTier constructs a colbert tier backed by encoder.
func NewColbertTier(encoder MultiVectorEncoder) *ColbertTier {
	return &ColbertTier{encoder: encoder}
}

// Name returns the tier's identifying tag.
func (c *ColbertTier) Name() string { return "colbert" }

// Rerank embeds the query and every document into token-vector sets and
// scores each document by MaxSim.
func (c *ColbertTier) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	queryVecs, err := c.encoder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, errors.UnavailableError("colbert query encoder", err)
	}
	if len(queryVecs) == 0 {
		return nil, errors.InternalError("colbert tier: empty query encoding", nil)
	}

	scores := make([]float32, len(documents))
	for i, doc := range documents {
		docVecs, err := c.encoder.EncodeDocument(ctx, doc)
		if err != nil {
			return nil, errors.UnavailableError("colbert document encoder", err)
		}
		scores[i] = maxSim(queryVecs, docVecs)
	}

	return sortAndTruncate(documents, scores, topK), nil
}

// maxSim computes the MaxSim late-interaction score: for each query token
// vector, the highest dot product against any document token vector, summed
// across query tokens.
func maxSim(queryVecs, docVecs [][]float32) float32 {
	if len(docVecs) == 0 {
		return 0
	}
	var total float32
	for _, q := range queryVecs {
		var best float32 = -1
		for _, d := range docVecs {
			if s := dot(q, d); s > best {
				best = s
			}
		}
		total += best
	}
	return total
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
