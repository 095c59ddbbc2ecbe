package rerank

import "testing"

func TestParseScores_ValidArray(t *testing.T) {
	scores := parseScores("[95, 72, 88]", 3)
	want := []float32{0.95, 0.72, 0.88}
	for i := range want {
		if diff := scores[i] - want[i]; diff > 0.0001 || diff < -0.0001 {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}

func TestParseScores_IgnoresSurroundingText(t *testing.T) {
	scores := parseScores("Here are the scores: [10, 20] as requested.", 2)
	if scores[0] != 0.1 || scores[1] != 0.2 {
		t.Errorf("scores = %v, want [0.1 0.2]", scores)
	}
}

func TestParseScores_ClampsOutOfRangeValues(t *testing.T) {
	scores := parseScores("[150, -20]", 2)
	if scores[0] != 1.0 || scores[1] != 0 {
		t.Errorf("scores = %v, want [1.0 0]", scores)
	}
}

func TestParseScores_NoArrayFallsBackToUniform(t *testing.T) {
	scores := parseScores("no array here", 3)
	for _, s := range scores {
		if s != 0.5 {
			t.Errorf("expected uniform 0.5 fallback, got %v", scores)
		}
	}
}

func TestParseScores_LengthMismatchFallsBackToUniform(t *testing.T) {
	scores := parseScores("[1, 2, 3]", 5)
	if len(scores) != 5 {
		t.Fatalf("expected 5 scores, got %d", len(scores))
	}
	for _, s := range scores {
		if s != 0.5 {
			t.Errorf("expected uniform 0.5 fallback on length mismatch, got %v", scores)
		}
	}
}

func TestParseScores_MalformedJSONFallsBackToUniform(t *testing.T) {
	scores := parseScores("[1, 2,]", 2)
	for _, s := range scores {
		if s != 0.5 {
			t.Errorf("expected uniform 0.5 fallback on malformed JSON, got %v", scores)
		}
	}
}

func TestLLMTier_EstimateCost(t *testing.T) {
	tier := NewLLMTier(nil, nil, 50, 500)
	cost := tier.estimateCost("two words", []string{"three word doc", "one"})
	// tokens: 2 (query) + 3 + 1 = 6; cost = 6/1000 * 50 = 0.3
	if diff := cost - 0.3; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("estimateCost = %v, want 0.3", cost)
	}
}

func TestLLMTier_Rerank_EmptyDocuments(t *testing.T) {
	tier := NewLLMTier(nil, nil, 50, 500)
	results, err := tier.Rerank(t.Context(), "q", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}
