package rerank

import (
	"context"
	"testing"
)

type fakeMultiVectorEncoder struct {
	queryVecs map[string][][]float32
	docVecs   map[string][][]float32
}

func (f *fakeMultiVectorEncoder) EncodeQuery(_ context.Context, text string) ([][]float32, error) {
	return f.queryVecs[text], nil
}

func (f *fakeMultiVectorEncoder) EncodeDocument(_ context.Context, text string) ([][]float32, error) {
	return f.docVecs[text], nil
}

func TestColbertTier_Rerank_PrefersHigherMaxSim(t *testing.T) {
	encoder := &fakeMultiVectorEncoder{
		queryVecs: map[string][][]float32{
			"q": {{1, 0}, {0, 1}},
		},
		docVecs: map[string][][]float32{
			"exact":   {{1, 0}, {0, 1}},
			"partial": {{1, 0}, {0, 0}},
			"unrelated": {{0, 0}, {0, 0}},
		},
	}

	tier := NewColbertTier(encoder)
	results, err := tier.Rerank(t.Context(), "q", []string{"unrelated", "partial", "exact"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Text != "exact" {
		t.Errorf("expected 'exact' to rank first, got %s", results[0].Text)
	}
	if results[len(results)-1].Text != "unrelated" {
		t.Errorf("expected 'unrelated' to rank last, got %s", results[len(results)-1].Text)
	}
}

func TestColbertTier_Rerank_EmptyDocuments(t *testing.T) {
	tier := NewColbertTier(&fakeMultiVectorEncoder{})
	results, err := tier.Rerank(t.Context(), "q", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestMaxSim_EmptyDocVectorsScoresZero(t *testing.T) {
	score := maxSim([][]float32{{1, 0}}, nil)
	if score != 0 {
		t.Errorf("maxSim with no document vectors = %v, want 0", score)
	}
}
