package embed

import "testing"

func TestCacheGet_NilCacheAlwaysMisses(t *testing.T) {
	v, ok, err := cacheGet[[]float32](t.Context(), nil, "dense-text", "query", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected a nil cache to always miss")
	}
	if v != nil {
		t.Errorf("expected zero value on miss, got %v", v)
	}
}

func TestCacheGet_DisabledClientAlwaysMisses(t *testing.T) {
	c := NewCache(nil, 0)
	_, ok, err := cacheGet[[]float32](t.Context(), c, "dense-text", "query", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected a disabled-client cache to always miss")
	}
}

func TestCacheSet_NilCacheIsNoOp(t *testing.T) {
	// Must not panic.
	cacheSet(t.Context(), nil, "dense-text", "query", "hello", []float32{1, 2, 3})
	cacheSet(t.Context(), NewCache(nil, 0), "dense-text", "query", "hello", []float32{1, 2, 3})
}

func TestCacheKey_DistinguishesVariantAndRole(t *testing.T) {
	a := cacheKey("dense-text", "query", "hello")
	b := cacheKey("dense-code", "query", "hello")
	c := cacheKey("dense-text", "document", "hello")
	if a == b || a == c || b == c {
		t.Errorf("expected distinct keys per (variant, role), got %q %q %q", a, b, c)
	}
}
