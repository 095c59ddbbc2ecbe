package rerank

import (
	"testing"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/pkg/errors"
)

func TestFactory_Get_UnknownTierIsBadInput(t *testing.T) {
	f := NewFactory(config.RerankConfig{}, nil, nil, nil, nil)
	_, err := f.Get("nonexistent")
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.CodeBadInput {
		t.Fatalf("expected BadInput error, got %v", err)
	}
}

func TestFactory_Get_MissingConfigReturnsError(t *testing.T) {
	f := NewFactory(config.RerankConfig{}, nil, nil, nil, nil)
	if _, err := f.Get("fast"); err == nil {
		t.Fatal("expected error when no fast model url configured")
	}
}

func TestFactory_Get_ReturnsStableInstance(t *testing.T) {
	cfg := config.RerankConfig{FastModelURL: "http://example.invalid"}
	f := NewFactory(cfg, nil, nil, nil, nil)

	t1, err := f.Get("fast")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t2, err := f.Get("fast")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if t1 != t2 {
		t.Error("expected the same tier instance across calls")
	}
}

func TestFactory_Get_ColbertRequiresEncoder(t *testing.T) {
	f := NewFactory(config.RerankConfig{}, nil, nil, nil, nil)
	if _, err := f.Get("colbert"); err == nil {
		t.Fatal("expected error when no colbert encoder configured")
	}

	f2 := NewFactory(config.RerankConfig{}, nil, &fakeMultiVectorEncoder{}, nil, nil)
	if _, err := f2.Get("colbert"); err != nil {
		t.Fatalf("unexpected error with encoder configured: %v", err)
	}
}
