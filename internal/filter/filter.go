// Package filter builds tenant-mandatory search filters for every vector
// store query issued by the retrievers.
package filter

import (
	"time"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
	"github.com/convomem/retrieval-engine/internal/qdrant"
)

// Input is the set of optional predicate sources a caller may supply. Only
// TenantID is mandatory.
type Input struct {
	TenantID  string
	SessionID string
	Type      string
	Start     *time.Time
	End       *time.Time
}

// Build constructs a qdrant.SearchFilter whose first (and only mandatory)
// conjunct is the tenant-id equality predicate. It fails closed: a missing or
// empty tenant id is an Invariant error that is never recovered by any
// caller, per §4.F.
func Build(in Input) (*qdrant.SearchFilter, error) {
	if in.TenantID == "" {
		return nil, errors.InvariantError("filter: tenant id is required")
	}

	f := &qdrant.SearchFilter{TenantID: in.TenantID}

	if in.SessionID != "" {
		f.SessionID = in.SessionID
	}
	if in.Type != "" {
		f.Type = in.Type
	}
	if in.Start != nil && in.End != nil {
		f.TimeRange = &qdrant.TimeRange{Start: *in.Start, End: *in.End}
	}

	return f, nil
}
