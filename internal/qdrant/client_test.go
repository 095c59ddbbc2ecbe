package qdrant

import (
	"testing"
	"time"
)

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()

	if cfg.Host != DefaultHost {
		t.Errorf("expected host %s, got %s", DefaultHost, cfg.Host)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
}

func TestDefaultCollectionConfig(t *testing.T) {
	cfg := DefaultCollectionConfig("test")

	if cfg.Name != "test" {
		t.Errorf("expected name 'test', got %s", cfg.Name)
	}

	if cfg.DenseVectorSize != 1536 {
		t.Errorf("expected dense vector size 1536, got %d", cfg.DenseVectorSize)
	}

	if !cfg.OnDiskPayload {
		t.Error("expected OnDiskPayload to be true")
	}

	if cfg.EnableMultiVector {
		t.Error("expected EnableMultiVector to default to false")
	}
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"default", "memory_default"},
		{"conversations", "memory_conversations"},
		{"test-tenant", "memory_test-tenant"},
	}

	for _, tt := range tests {
		result := collectionName(tt.input)
		if result != tt.expected {
			t.Errorf("collectionName(%s) = %s, expected %s", tt.input, result, tt.expected)
		}
	}
}

func TestPointPayload(t *testing.T) {
	now := time.Now()
	payload := PointPayload{
		TenantID:  "tenant-a",
		SessionID: "session-1",
		Type:      "turn",
		Content:   "the user asked about refunds",
		Timestamp: now,
	}

	if payload.TenantID != "tenant-a" {
		t.Errorf("expected tenant_id 'tenant-a', got %s", payload.TenantID)
	}

	if payload.SessionID != "session-1" {
		t.Errorf("expected session_id 'session-1', got %s", payload.SessionID)
	}
}

func TestPoint(t *testing.T) {
	point := Point{
		ID:            "turn_abc123",
		DenseVector:   make([]float32, 1536),
		SparseIndices: []uint32{1, 2, 3},
		SparseValues:  []float32{0.1, 0.2, 0.3},
		MultiVector:   [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		Payload: PointPayload{
			TenantID: "tenant-a",
			Type:     "turn",
		},
	}

	if point.ID != "turn_abc123" {
		t.Errorf("expected ID 'turn_abc123', got %s", point.ID)
	}

	if len(point.DenseVector) != 1536 {
		t.Errorf("expected dense vector of size 1536, got %d", len(point.DenseVector))
	}

	if len(point.SparseIndices) != len(point.SparseValues) {
		t.Error("sparse indices and values should have same length")
	}

	if len(point.MultiVector) != 2 {
		t.Errorf("expected 2 multi-vector tokens, got %d", len(point.MultiVector))
	}
}

func TestSearchRequest(t *testing.T) {
	req := SearchRequest{
		DenseVector:   make([]float32, 1536),
		SparseIndices: []uint32{1, 2, 3},
		SparseValues:  []float32{0.1, 0.2, 0.3},
		Limit:         20,
		PrefetchLimit: 100,
		WithPayload:   true,
		Filter: &SearchFilter{
			TenantID:  "tenant-a",
			SessionID: "session-1",
		},
	}

	if req.Limit != 20 {
		t.Errorf("expected limit 20, got %d", req.Limit)
	}

	if req.Filter == nil {
		t.Error("expected filter to be set")
	}

	if req.Filter.TenantID != "tenant-a" {
		t.Errorf("expected tenant_id 'tenant-a', got %s", req.Filter.TenantID)
	}

	if req.Filter.SessionID != "session-1" {
		t.Errorf("expected session_id 'session-1', got %s", req.Filter.SessionID)
	}
}

func TestDeleteFilter(t *testing.T) {
	filterByIDs := DeleteFilter{
		IDs: []string{"id1", "id2"},
	}
	if len(filterByIDs.IDs) != 2 {
		t.Errorf("expected 2 IDs, got %d", len(filterByIDs.IDs))
	}

	filterByTenant := DeleteFilter{
		TenantID: "tenant-a",
	}
	if filterByTenant.TenantID != "tenant-a" {
		t.Errorf("expected tenant_id 'tenant-a', got %s", filterByTenant.TenantID)
	}

	filterBySession := DeleteFilter{
		SessionID: "session-1",
	}
	if filterBySession.SessionID != "session-1" {
		t.Errorf("expected session_id 'session-1', got %s", filterBySession.SessionID)
	}
}

func TestCollectionInfo(t *testing.T) {
	info := CollectionInfo{
		Name:          "default",
		PointsCount:   1000,
		VectorsCount:  1000,
		Status:        "green",
		SegmentsCount: 4,
	}

	if info.Name != "default" {
		t.Errorf("expected name 'default', got %s", info.Name)
	}

	if info.PointsCount != 1000 {
		t.Errorf("expected points count 1000, got %d", info.PointsCount)
	}

	if info.Status != "green" {
		t.Errorf("expected status 'green', got %s", info.Status)
	}
}

func TestBuildDeleteFilter(t *testing.T) {
	emptyFilter := DeleteFilter{}
	result := buildDeleteFilter(emptyFilter)
	if result != nil {
		t.Error("expected nil for empty filter")
	}

	tenantFilter := DeleteFilter{TenantID: "tenant-a"}
	result = buildDeleteFilter(tenantFilter)
	if result == nil {
		t.Error("expected non-nil for tenant filter")
	}
	if len(result.Must) != 1 {
		t.Errorf("expected 1 condition, got %d", len(result.Must))
	}

	sessionFilter := DeleteFilter{SessionID: "session-1"}
	result = buildDeleteFilter(sessionFilter)
	if result == nil {
		t.Error("expected non-nil for session filter")
	}
}

func TestBuildSearchFilter(t *testing.T) {
	result := buildSearchFilter(nil)
	if result != nil {
		t.Error("expected nil for nil filter")
	}

	emptyFilter := &SearchFilter{}
	result = buildSearchFilter(emptyFilter)
	if result != nil {
		t.Error("expected nil for empty filter")
	}

	tenantFilter := &SearchFilter{TenantID: "tenant-a"}
	result = buildSearchFilter(tenantFilter)
	if result == nil {
		t.Error("expected non-nil for tenant filter")
	}

	typeFilter := &SearchFilter{Type: "turn"}
	result = buildSearchFilter(typeFilter)
	if result == nil {
		t.Error("expected non-nil for type filter")
	}

	combinedFilter := &SearchFilter{
		TenantID:  "tenant-a",
		SessionID: "session-1",
	}
	result = buildSearchFilter(combinedFilter)
	if result == nil {
		t.Error("expected non-nil for combined filter")
	}
	if len(result.Must) != 2 {
		t.Errorf("expected 2 conditions, got %d", len(result.Must))
	}

	rangeFilter := &SearchFilter{
		TenantID: "tenant-a",
		TimeRange: &TimeRange{
			Start: time.Unix(1000, 0),
			End:   time.Unix(2000, 0),
		},
	}
	result = buildSearchFilter(rangeFilter)
	if len(result.Must) != 2 {
		t.Errorf("expected 2 conditions for tenant+range filter, got %d", len(result.Must))
	}
}
