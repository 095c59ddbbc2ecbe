// Package embed implements the embedder set: dense-text, dense-code,
// sparse-lexical, and late-interaction multi-vector, each lazily constructed
// and cached behind a capability interface.
package embed

import "context"

// DenseEncoder produces fixed-dimension unit-norm vectors, with distinct
// query and document encodings (prefix or pooling may differ by role).
type DenseEncoder interface {
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	EncodeDocument(ctx context.Context, text string) ([]float32, error)
	EncodeQueryBatch(ctx context.Context, texts []string) ([][]float32, error)
	EncodeDocumentBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SparseEncoder produces a mapping from token id to a positive weight, with
// a sparsity target of at least 95% of the vocabulary.
type SparseEncoder interface {
	EncodeQuery(ctx context.Context, text string) (map[uint32]float32, error)
	EncodeDocument(ctx context.Context, text string) (map[uint32]float32, error)
	EncodeQueryBatch(ctx context.Context, texts []string) ([]map[uint32]float32, error)
	EncodeDocumentBatch(ctx context.Context, texts []string) ([]map[uint32]float32, error)
}

// MultiVectorEncoder produces one unit-norm vector per input token. This
// signature intentionally matches internal/rerank.MultiVectorEncoder so a
// *MultiVector satisfies it without importing internal/rerank.
type MultiVectorEncoder interface {
	EncodeQuery(ctx context.Context, text string) ([][]float32, error)
	EncodeDocument(ctx context.Context, text string) ([][]float32, error)
}
