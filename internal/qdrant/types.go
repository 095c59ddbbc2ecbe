// Package qdrant provides a wrapper around the Qdrant Go client with
// simplified APIs for the retrieval engine's vector store operations.
package qdrant

import (
	"time"
)

// CollectionConfig defines the configuration for creating a Qdrant collection.
type CollectionConfig struct {
	// Name is the collection name (will be prefixed with CollectionPrefix).
	Name string

	// DenseVectorSize is the dimension of dense vectors.
	DenseVectorSize uint64

	// EnableMultiVector wires a third named vector field for the
	// late-interaction (colbert) embedder, using MaxSim comparison.
	EnableMultiVector bool

	// MultiVectorSize is the per-token dimension of the late-interaction
	// vectors, typically 128.
	MultiVectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool

	// IndexingThreshold is the number of vectors before HNSW index is built.
	IndexingThreshold uint64

	// MemmapThreshold is the number of vectors before memory-mapping is used.
	MemmapThreshold uint64
}

// DefaultCollectionConfig returns sensible defaults for a conversational
// memory collection.
func DefaultCollectionConfig(name string) CollectionConfig {
	return CollectionConfig{
		Name:              name,
		DenseVectorSize:   1536,
		EnableMultiVector: false,
		MultiVectorSize:   128,
		OnDiskPayload:     true,
		IndexingThreshold: 20000,
		MemmapThreshold:   50000,
	}
}

// Point represents a point to upsert into Qdrant.
type Point struct {
	// ID is the unique point identifier.
	ID string

	// DenseVector is the semantic embedding vector.
	DenseVector []float32

	// SparseIndices are the token IDs for sparse vector.
	SparseIndices []uint32

	// SparseValues are the token weights for sparse vector.
	SparseValues []float32

	// MultiVector holds the per-token late-interaction vectors, one per
	// source token, each of length CollectionConfig.MultiVectorSize. Nil
	// when the collection does not carry a multi-vector field.
	MultiVector [][]float32

	// Payload is the metadata associated with this point.
	Payload PointPayload
}

// PointPayload contains the searchable metadata for a conversation turn or
// session summary.
type PointPayload struct {
	TenantID  string    `json:"tenant_id"`
	SessionID string    `json:"session_id,omitempty"`
	Type      string    `json:"type,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchRequest defines parameters for a vector store query.
type SearchRequest struct {
	// DenseVector for dense vector search.
	DenseVector []float32

	// SparseIndices for sparse vector search.
	SparseIndices []uint32

	// SparseValues for sparse vector search.
	SparseValues []float32

	// MultiVector for late-interaction (colbert) search.
	MultiVector [][]float32

	// Limit is the maximum number of results to return.
	Limit uint64

	// PrefetchLimit is the number of candidates to retrieve from each retriever
	// before fusion, in a hybrid query.
	PrefetchLimit uint64

	// Filter constrains the search to matching points. Always carries a
	// tenant-id predicate when built via internal/filter.
	Filter *SearchFilter

	// WithPayload includes payload in results.
	WithPayload bool

	// WithVectors includes dense vectors in results.
	WithVectors bool

	// ScoreThreshold filters results below this score.
	ScoreThreshold *float32
}

// TimeRange is a closed-inclusive range on the indexed timestamp field.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// SearchFilter defines filter conditions for a vector store query. TenantID
// is expected to always be set by callers; internal/filter is responsible
// for enforcing that invariant before a SearchFilter is constructed.
type SearchFilter struct {
	// TenantID filters to a single tenant. Mandatory in practice.
	TenantID string

	// SessionID filters by session.
	SessionID string

	// Type filters by point type (e.g. "turn", "session_summary").
	Type string

	// TimeRange filters by closed-inclusive timestamp range.
	TimeRange *TimeRange
}

// SearchResult represents a single search result.
type SearchResult struct {
	// ID is the point identifier.
	ID string

	// Score is the relevance score.
	Score float32

	// Payload contains the point metadata.
	Payload PointPayload

	// DenseVector is the dense embedding (only populated if WithVectors=true).
	DenseVector []float32
}

// DeleteFilter defines conditions for deleting points.
type DeleteFilter struct {
	// IDs deletes specific point IDs.
	IDs []string

	// TenantID deletes all points for a tenant.
	TenantID string

	// SessionID deletes all points for a session.
	SessionID string
}

// CollectionInfo contains information about a collection.
type CollectionInfo struct {
	// Name is the collection name (without prefix).
	Name string

	// PointsCount is the total number of points.
	PointsCount uint64

	// VectorsCount is the total number of vectors.
	VectorsCount uint64

	// Status is the collection health status.
	Status string

	// SegmentsCount is the number of segments.
	SegmentsCount uint64
}
