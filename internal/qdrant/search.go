package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// HybridSearch performs a hybrid search using sparse and dense vectors
// (and, when present, the colbert multi-vector) with server-side RRF fusion.
func (c *Client) HybridSearch(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	prefetch := make([]*qdrant.PrefetchQuery, 0, 3)

	prefetchLimit := req.PrefetchLimit
	if prefetchLimit == 0 {
		prefetchLimit = 100
	}

	if len(req.SparseIndices) > 0 && len(req.SparseValues) > 0 {
		sparsePrefetch := &qdrant.PrefetchQuery{
			Query: qdrant.NewQuerySparse(req.SparseIndices, req.SparseValues),
			Using: qdrant.PtrOf("sparse"),
			Limit: qdrant.PtrOf(prefetchLimit),
		}
		if req.Filter != nil {
			sparsePrefetch.Filter = buildSearchFilter(req.Filter)
		}
		prefetch = append(prefetch, sparsePrefetch)
	}

	if len(req.DenseVector) > 0 {
		densePrefetch := &qdrant.PrefetchQuery{
			Query: qdrant.NewQueryDense(req.DenseVector),
			Using: qdrant.PtrOf("dense"),
			Limit: qdrant.PtrOf(prefetchLimit),
		}
		if req.Filter != nil {
			densePrefetch.Filter = buildSearchFilter(req.Filter)
		}
		prefetch = append(prefetch, densePrefetch)
	}

	if len(req.MultiVector) > 0 {
		colbertPrefetch := &qdrant.PrefetchQuery{
			Query: qdrant.NewQueryMulti(req.MultiVector),
			Using: qdrant.PtrOf("colbert"),
			Limit: qdrant.PtrOf(prefetchLimit),
		}
		if req.Filter != nil {
			colbertPrefetch.Filter = buildSearchFilter(req.Filter)
		}
		prefetch = append(prefetch, colbertPrefetch)
	}

	if len(prefetch) == 0 {
		return nil, fmt.Errorf("at least one of sparse, dense, or multi-vector must be provided")
	}

	limit := req.Limit
	if limit == 0 {
		limit = 20
	}

	queryPoints := &qdrant.QueryPoints{
		CollectionName: collectionName(collection),
		Prefetch:       prefetch,
		Query:          qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
	}

	if req.ScoreThreshold != nil {
		queryPoints.ScoreThreshold = req.ScoreThreshold
	}

	results, err := c.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}

	return scoredPointsToResults(results)
}

// DenseSearch performs a dense-only vector search.
func (c *Client) DenseSearch(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	if len(req.DenseVector) == 0 {
		return nil, fmt.Errorf("dense vector is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	limit := req.Limit
	if limit == 0 {
		limit = 20
	}

	queryPoints := &qdrant.QueryPoints{
		CollectionName: collectionName(collection),
		Query:          qdrant.NewQueryDense(req.DenseVector),
		Using:          qdrant.PtrOf("dense"),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
	}

	if req.Filter != nil {
		queryPoints.Filter = buildSearchFilter(req.Filter)
	}

	if req.ScoreThreshold != nil {
		queryPoints.ScoreThreshold = req.ScoreThreshold
	}

	results, err := c.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}

	return scoredPointsToResults(results)
}

// SparseSearch performs a sparse-only vector search.
func (c *Client) SparseSearch(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	if len(req.SparseIndices) == 0 || len(req.SparseValues) == 0 {
		return nil, fmt.Errorf("sparse indices and values are required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	limit := req.Limit
	if limit == 0 {
		limit = 20
	}

	queryPoints := &qdrant.QueryPoints{
		CollectionName: collectionName(collection),
		Query:          qdrant.NewQuerySparse(req.SparseIndices, req.SparseValues),
		Using:          qdrant.PtrOf("sparse"),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
	}

	if req.Filter != nil {
		queryPoints.Filter = buildSearchFilter(req.Filter)
	}

	if req.ScoreThreshold != nil {
		queryPoints.ScoreThreshold = req.ScoreThreshold
	}

	results, err := c.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, fmt.Errorf("sparse search failed: %w", err)
	}

	return scoredPointsToResults(results)
}

// MultiVectorSearch performs a colbert late-interaction (MaxSim) search.
func (c *Client) MultiVectorSearch(ctx context.Context, collection string, req SearchRequest) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	if len(req.MultiVector) == 0 {
		return nil, fmt.Errorf("multi-vector is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	limit := req.Limit
	if limit == 0 {
		limit = 20
	}

	queryPoints := &qdrant.QueryPoints{
		CollectionName: collectionName(collection),
		Query:          qdrant.NewQueryMulti(req.MultiVector),
		Using:          qdrant.PtrOf("colbert"),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(req.WithPayload),
	}

	if req.Filter != nil {
		queryPoints.Filter = buildSearchFilter(req.Filter)
	}

	if req.ScoreThreshold != nil {
		queryPoints.ScoreThreshold = req.ScoreThreshold
	}

	results, err := c.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, fmt.Errorf("multi-vector search failed: %w", err)
	}

	return scoredPointsToResults(results)
}

// buildSearchFilter builds a Qdrant filter from SearchFilter. The tenant-id
// conjunct is emitted whenever TenantID is set; internal/filter is
// responsible for guaranteeing it always is before a SearchFilter reaches
// this layer.
func buildSearchFilter(f *SearchFilter) *qdrant.Filter {
	if f == nil {
		return nil
	}

	var conditions []*qdrant.Condition

	if f.TenantID != "" {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "tenant_id",
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{
							Keyword: f.TenantID,
						},
					},
				},
			},
		})
	}

	if f.SessionID != "" {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "session_id",
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{
							Keyword: f.SessionID,
						},
					},
				},
			},
		})
	}

	if f.Type != "" {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "type",
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{
							Keyword: f.Type,
						},
					},
				},
			},
		})
	}

	if f.TimeRange != nil {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "timestamp",
					Range: &qdrant.Range{
						Gte: qdrant.PtrOf(float64(f.TimeRange.Start.Unix())),
						Lte: qdrant.PtrOf(float64(f.TimeRange.End.Unix())),
					},
				},
			},
		})
	}

	if len(conditions) == 0 {
		return nil
	}

	return &qdrant.Filter{
		Must: conditions,
	}
}

// scoredPointsToResults converts Qdrant scored points to SearchResults.
func scoredPointsToResults(points []*qdrant.ScoredPoint) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(points))

	for _, p := range points {
		result, err := scoredPointToResult(p)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// scoredPointToResult converts a single scored point to SearchResult.
func scoredPointToResult(p *qdrant.ScoredPoint) (SearchResult, error) {
	var id string
	switch v := p.Id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		id = v.Uuid
	case *qdrant.PointId_Num:
		id = fmt.Sprintf("%d", v.Num)
	}

	payload := extractPayload(p.Payload)

	return SearchResult{
		ID:      id,
		Score:   p.Score,
		Payload: payload,
	}, nil
}

// extractPayload extracts PointPayload from Qdrant payload map.
func extractPayload(payload map[string]*qdrant.Value) PointPayload {
	result := PointPayload{}

	if v := getStringValue(payload, "tenant_id"); v != "" {
		result.TenantID = v
	}
	if v := getStringValue(payload, "session_id"); v != "" {
		result.SessionID = v
	}
	if v := getStringValue(payload, "type"); v != "" {
		result.Type = v
	}
	if v := getStringValue(payload, "content"); v != "" {
		result.Content = v
	}
	if v := getIntValue(payload, "timestamp"); v != 0 {
		result.Timestamp = unixToTime(v)
	}

	return result
}

// Helper functions to extract values from Qdrant payload.

func getStringValue(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return sv.StringValue
		}
	}
	return ""
}

func getIntValue(payload map[string]*qdrant.Value, key string) int {
	if v, ok := payload[key]; ok {
		if iv, ok := v.Kind.(*qdrant.Value_IntegerValue); ok {
			return int(iv.IntegerValue)
		}
	}
	return 0
}

func unixToTime(seconds int) time.Time {
	return time.Unix(int64(seconds), 0).UTC()
}
