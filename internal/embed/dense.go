package embed

import "context"

// Dense is a dense-vector encoder (text or code variant, distinguished only
// by which remote endpoint and cache namespace it is constructed with).
type Dense struct {
	variant string
	remote  *remoteClient
	cache   *Cache
}

// NewDense constructs a dense encoder named variant (used as the cache
// namespace and error context, e.g. "dense-text" or "dense-code"), reaching
// the remote model at url.
func NewDense(variant, url string, cache *Cache) *Dense {
	return &Dense{variant: variant, remote: newRemoteClient(variant, url), cache: cache}
}

// EncodeQuery returns the cached vector if present, otherwise computes and
// caches it, matching the teacher's cache-first-else-compute branch.
func (d *Dense) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	return d.encode(ctx, roleQuery, text)
}

// EncodeDocument is EncodeQuery for the document role.
func (d *Dense) EncodeDocument(ctx context.Context, text string) ([]float32, error) {
	return d.encode(ctx, roleDocument, text)
}

func (d *Dense) encode(ctx context.Context, r role, text string) ([]float32, error) {
	if v, ok, err := cacheGet[[]float32](ctx, d.cache, d.variant, string(r), text); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}

	vectors, err := d.remote.encodeDense(ctx, r, []string{text})
	if err != nil {
		return nil, err
	}

	cacheSet(ctx, d.cache, d.variant, string(r), text, vectors[0])
	return vectors[0], nil
}

// EncodeQueryBatch encodes texts for the query role. Cached entries are
// served individually; only the uncached remainder is sent to the remote
// encoder in one batched call.
func (d *Dense) EncodeQueryBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return d.encodeBatch(ctx, roleQuery, texts)
}

// EncodeDocumentBatch is EncodeQueryBatch for the document role.
func (d *Dense) EncodeDocumentBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return d.encodeBatch(ctx, roleDocument, texts)
}

func (d *Dense) encodeBatch(ctx context.Context, r role, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		v, ok, err := cacheGet[[]float32](ctx, d.cache, d.variant, string(r), text)
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

	computed, err := d.remote.encodeDense(ctx, r, missTexts)
	if err != nil {
		return nil, err
	}

	for i, idx := range missIdx {
		results[idx] = computed[i]
		cacheSet(ctx, d.cache, d.variant, string(r), missTexts[i], computed[i])
	}

	return results, nil
}
