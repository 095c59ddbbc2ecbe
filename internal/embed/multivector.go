package embed

import "context"

// MultiVector is the late-interaction (ColBERT-style) encoder, producing one
// unit-norm vector per input token. Its EncodeQuery/EncodeDocument signatures
// are shared with internal/rerank.MultiVectorEncoder so a *MultiVector can be
// passed directly to rerank.NewColbertTier without internal/embed importing
// internal/rerank.
type MultiVector struct {
	remote *remoteClient
	cache  *Cache
}

// NewMultiVector constructs a late-interaction encoder reaching the remote
// model at url.
func NewMultiVector(url string, cache *Cache) *MultiVector {
	return &MultiVector{remote: newRemoteClient("colbert", url), cache: cache}
}

// EncodeQuery returns the cached token-vector set if present, otherwise
// computes and caches it.
func (m *MultiVector) EncodeQuery(ctx context.Context, text string) ([][]float32, error) {
	return m.encode(ctx, roleQuery, text)
}

// EncodeDocument is EncodeQuery for the document role.
func (m *MultiVector) EncodeDocument(ctx context.Context, text string) ([][]float32, error) {
	return m.encode(ctx, roleDocument, text)
}

func (m *MultiVector) encode(ctx context.Context, r role, text string) ([][]float32, error) {
	if v, ok, err := cacheGet[[][]float32](ctx, m.cache, "colbert", string(r), text); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}

	vectors, err := m.remote.encodeMultiVector(ctx, r, []string{text})
	if err != nil {
		return nil, err
	}

	cacheSet(ctx, m.cache, "colbert", string(r), text, vectors[0])
	return vectors[0], nil
}

// EncodeQueryBatch encodes texts for the query role.
func (m *MultiVector) EncodeQueryBatch(ctx context.Context, texts []string) ([][][]float32, error) {
	return m.encodeBatch(ctx, roleQuery, texts)
}

// EncodeDocumentBatch is EncodeQueryBatch for the document role.
func (m *MultiVector) EncodeDocumentBatch(ctx context.Context, texts []string) ([][][]float32, error) {
	return m.encodeBatch(ctx, roleDocument, texts)
}

func (m *MultiVector) encodeBatch(ctx context.Context, r role, texts []string) ([][][]float32, error) {
	results := make([][][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		v, ok, err := cacheGet[[][]float32](ctx, m.cache, "colbert", string(r), text)
		if err != nil {
			return nil, err
		}
		if ok {
			results[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := m.remote.encodeMultiVector(ctx, r, missTexts)
	if err != nil {
		return nil, err
	}

	for i, idx := range missIdx {
		results[idx] = computed[i]
		cacheSet(ctx, m.cache, "colbert", string(r), missTexts[i], computed[i])
	}

	return results, nil
}
