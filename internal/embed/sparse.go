package embed

import "context"

// Sparse is the sparse-lexical encoder.
type Sparse struct {
	remote *remoteClient
	cache  *Cache
}

// NewSparse constructs a sparse encoder reaching the remote model at url.
func NewSparse(url string, cache *Cache) *Sparse {
	return &Sparse{remote: newRemoteClient("sparse", url), cache: cache}
}

// EncodeQuery returns the cached sparse vector if present, otherwise
// computes and caches it.
func (s *Sparse) EncodeQuery(ctx context.Context, text string) (map[uint32]float32, error) {
	return s.encode(ctx, roleQuery, text)
}

// EncodeDocument is EncodeQuery for the document role.
func (s *Sparse) EncodeDocument(ctx context.Context, text string) (map[uint32]float32, error) {
	return s.encode(ctx, roleDocument, text)
}

func (s *Sparse) encode(ctx context.Context, r role, text string) (map[uint32]float32, error) {
	if v, ok, err := cacheGet[map[uint32]float32](ctx, s.cache, "sparse", string(r), text); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}

	vectors, err := s.remote.encodeSparse(ctx, r, []string{text})
	if err != nil {
		return nil, err
	}

	cacheSet(ctx, s.cache, "sparse", string(r), text, vectors[0])
	return vectors[0], nil
}

// EncodeQueryBatch encodes texts for the query role, serving cache hits
// individually and batching the uncached remainder.
func (s *Sparse) EncodeQueryBatch(ctx context.Context, texts []string) ([]map[uint32]float32, error) {
	return s.encodeBatch(ctx, roleQuery, texts)
}

// EncodeDocumentBatch is EncodeQueryBatch for the document role.
func (s *Sparse) EncodeDocumentBatch(ctx context.Context, texts []string) ([]map[uint32]float32, error) {
	return s.encodeBatch(ctx, roleDocument, texts)
}

func (s *Sparse) encodeBatch(ctx context.Context, r role, texts []string) ([]map[uint32]float32, error) {
	results := make([]map[uint32]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		v, ok, err := cacheGet[map[uint32]float32](ctx, s.cache, "sparse", string(r), text)
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

	computed, err := s.remote.encodeSparse(ctx, r, missTexts)
	if err != nil {
		return nil, err
	}

	for i, idx := range missIdx {
		results[idx] = computed[i]
		cacheSet(ctx, s.cache, "sparse", string(r), missTexts[i], computed[i])
	}

	return results, nil
}
