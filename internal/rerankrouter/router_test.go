package rerankrouter

import (
	"context"
	"testing"
	"time"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
	"github.com/convomem/retrieval-engine/internal/rerank"
)

// fakeTier scores every document with a fixed score, optionally sleeping or
// erroring to exercise the router's timeout and fallback paths.
type fakeTier struct {
	score float32
	sleep time.Duration
	err   error
}

func (f *fakeTier) Rerank(ctx context.Context, query string, documents []string, topK int) ([]rerank.RankedResult, error) {
	if f.sleep > 0 {
		select {
		case <-time.After(f.sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	results := make([]rerank.RankedResult, len(documents))
	for i, d := range documents {
		results[i] = rerank.RankedResult{Text: d, Score: f.score, OriginalIndex: i}
	}
	return results, nil
}

type fakeFactory struct {
	tiers map[string]rerank.Tier
	err   map[string]error
}

func (f *fakeFactory) Get(name string) (rerank.Tier, error) {
	if err, ok := f.err[name]; ok {
		return nil, err
	}
	if t, ok := f.tiers[name]; ok {
		return t, nil
	}
	return nil, errors.BadInputError("unknown tier: " + name)
}

func TestRouter_Rerank_HappyPath(t *testing.T) {
	factory := &fakeFactory{tiers: map[string]rerank.Tier{"fast": &fakeTier{score: 0.9}}}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{Query: "q", Documents: []string{"a", "b"}, Tier: "fast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Degraded {
		t.Error("expected non-degraded result on happy path")
	}
	if result.TierUsed != "fast" {
		t.Errorf("TierUsed = %s, want fast", result.TierUsed)
	}
	if len(result.Ranked) != 2 {
		t.Fatalf("expected 2 ranked results, got %d", len(result.Ranked))
	}
}

func TestRouter_Rerank_EmptyDocumentsShortCircuits(t *testing.T) {
	factory := &fakeFactory{tiers: map[string]rerank.Tier{}}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{Query: "q", Tier: "fast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Ranked) != 0 || result.Degraded {
		t.Errorf("expected empty, non-degraded result, got %+v", result)
	}
}

func TestRouter_Rerank_LoadFailureNoFallbackReturnsEmpty(t *testing.T) {
	factory := &fakeFactory{err: map[string]error{"fast": errors.InternalError("boom", nil)}}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{Query: "q", Documents: []string{"a"}, Tier: "fast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded=true")
	}
	if len(result.Ranked) != 0 {
		t.Errorf("expected empty ranked list on load failure with no fallback, got %v", result.Ranked)
	}
}

func TestRouter_Rerank_LoadFailureFallsBackToConfiguredTier(t *testing.T) {
	factory := &fakeFactory{
		err:   map[string]error{"fast": errors.InternalError("boom", nil)},
		tiers: map[string]rerank.Tier{"accurate": &fakeTier{score: 0.7}},
	}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{
		Query: "q", Documents: []string{"a"}, Tier: "fast", FallbackTier: "accurate",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded=true after fallback")
	}
	if result.TierUsed != "accurate" {
		t.Errorf("TierUsed = %s, want accurate", result.TierUsed)
	}
	if len(result.Ranked) != 1 {
		t.Fatalf("expected 1 ranked result from fallback tier, got %d", len(result.Ranked))
	}
}

func TestRouter_Rerank_TierErrorNoFallbackSynthesizesUniformScores(t *testing.T) {
	factory := &fakeFactory{tiers: map[string]rerank.Tier{"fast": &fakeTier{err: errors.UnavailableError("model", nil)}}}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{Query: "q", Documents: []string{"a", "b"}, Tier: "fast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded=true")
	}
	if len(result.Ranked) != 2 {
		t.Fatalf("expected 2 synthesized results, got %d", len(result.Ranked))
	}
	for _, r := range result.Ranked {
		if r.Score != 0.5 {
			t.Errorf("expected uniform score 0.5, got %v", r.Score)
		}
	}
	if result.Ranked[0].Text != "a" || result.Ranked[1].Text != "b" {
		t.Errorf("expected original order preserved, got %+v", result.Ranked)
	}
}

func TestRouter_Rerank_TimeoutFallsBack(t *testing.T) {
	factory := &fakeFactory{
		tiers: map[string]rerank.Tier{
			"fast":     &fakeTier{sleep: 50 * time.Millisecond},
			"accurate": &fakeTier{score: 0.8},
		},
	}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{
		Query: "q", Documents: []string{"a"}, Tier: "fast",
		Timeout: 5 * time.Millisecond, FallbackTier: "accurate",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TierUsed != "accurate" || !result.Degraded {
		t.Errorf("expected degraded fallback to accurate, got %+v", result)
	}
}

func TestRouter_Rerank_AtMostOneFallbackHop(t *testing.T) {
	factory := &fakeFactory{
		err: map[string]error{
			"fast":     errors.InternalError("boom", nil),
			"accurate": errors.InternalError("boom too", nil),
		},
	}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{
		Query: "q", Documents: []string{"a"}, Tier: "fast", FallbackTier: "accurate",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TierUsed != "accurate" {
		t.Errorf("expected terminal tier to be the fallback tier, got %s", result.TierUsed)
	}
	if len(result.Ranked) != 0 {
		t.Errorf("expected empty ranked list (load failure, no further fallback), got %v", result.Ranked)
	}
}

func TestRouter_Rerank_TopKAppliedToDegradedResults(t *testing.T) {
	factory := &fakeFactory{tiers: map[string]rerank.Tier{"fast": &fakeTier{err: errors.UnavailableError("model", nil)}}}
	router := New(factory, DefaultConfig(), nil)

	result, err := router.Rerank(t.Context(), Request{
		Query: "q", Documents: []string{"a", "b", "c"}, Tier: "fast", TopK: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Ranked) != 2 {
		t.Errorf("expected top_k=2 applied to degraded synthesis, got %d", len(result.Ranked))
	}
}
