package grpcserver

import (
	"github.com/convomem/retrieval-engine/internal/retrievalpb"
	"github.com/convomem/retrieval-engine/internal/search"
	"github.com/convomem/retrieval-engine/internal/session"
)

func searchRequestFromProto(req *retrievalpb.SearchRequest) search.Request {
	sr := search.Request{
		Query:              req.Query,
		TenantID:           req.TenantId,
		SessionID:          req.SessionId,
		Type:               req.Type,
		Limit:              int(req.Limit),
		Strategy:           search.Strategy(req.Strategy),
		RerankTier:         req.RerankTier,
		RerankFallbackTier: req.RerankFallbackTier,
	}
	if req.EnableReranking {
		enabled := true
		sr.EnableReranking = &enabled
	}
	return sr
}

func searchResponseToProto(resp search.Response) *retrievalpb.SearchResponse {
	results := make([]*retrievalpb.SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = searchResultToProto(r)
	}
	return &retrievalpb.SearchResponse{
		Query:          resp.Query,
		Strategy:       string(resp.Strategy),
		Results:        results,
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}
}

func searchResultToProto(r search.Result) *retrievalpb.SearchResult {
	out := &retrievalpb.SearchResult{
		Id:         r.ID,
		Content:    r.Content,
		Score:      r.Score,
		FusedScore: r.FusedScore,
		RerankTier: r.RerankTier,
		SessionId:  r.SessionID,
		Type:       r.Type,
		Degraded:   r.Degraded,
	}
	if r.RerankerScore != nil {
		out.RerankerScore = *r.RerankerScore
		out.HasRerankerScore = true
	}
	if r.DegradedReason != nil {
		out.DegradedReason = *r.DegradedReason
	}
	return out
}

func sessionResultToProto(r session.Result) *retrievalpb.SessionSearchResult {
	out := &retrievalpb.SessionSearchResult{
		Id:             r.ID,
		Content:        r.Content,
		Score:          r.Score,
		Type:           r.Type,
		SessionId:      r.SessionID,
		SessionSummary: r.SessionSummary,
		SessionScore:   r.SessionScore,
		RerankTier:     r.RerankTier,
		Degraded:       r.Degraded,
	}
	if r.RerankerScore != nil {
		out.RerankerScore = *r.RerankerScore
		out.HasRerankerScore = true
	}
	if r.DegradedReason != nil {
		out.DegradedReason = *r.DegradedReason
	}
	return out
}
