package embed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDense_EncodeQuery_CallsRemoteOnMiss(t *testing.T) {
	var gotRole string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotRole = req.Role
		_ = json.NewEncoder(w).Encode(denseEmbedResponse{Vectors: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer server.Close()

	d := NewDense("dense-text", server.URL, nil)
	vec, err := d.EncodeQuery(t.Context(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}
	if gotRole != "query" {
		t.Errorf("role = %s, want query", gotRole)
	}
}

func TestDense_EncodeDocument_UsesDocumentRole(t *testing.T) {
	var gotRole string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotRole = req.Role
		_ = json.NewEncoder(w).Encode(denseEmbedResponse{Vectors: [][]float32{{1}}})
	}))
	defer server.Close()

	d := NewDense("dense-text", server.URL, nil)
	if _, err := d.EncodeDocument(t.Context(), "doc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotRole != "document" {
		t.Errorf("role = %s, want document", gotRole)
	}
}

func TestDense_EncodeQueryBatch_OnlySendsUncachedTexts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		vecs := make([][]float32, len(req.Texts))
		for i := range vecs {
			vecs[i] = []float32{float32(i)}
		}
		_ = json.NewEncoder(w).Encode(denseEmbedResponse{Vectors: vecs})
	}))
	defer server.Close()

	d := NewDense("dense-text", server.URL, nil)
	vecs, err := d.EncodeQueryBatch(t.Context(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	if calls != 1 {
		t.Errorf("expected 1 remote call for uncached batch, got %d", calls)
	}
}

func TestDense_Encode_RemoteErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	d := NewDense("dense-text", server.URL, nil)
	if _, err := d.EncodeQuery(t.Context(), "hello"); err == nil {
		t.Fatal("expected error from remote failure")
	}
}
