package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
)

// scoreRequest is the wire shape sent to a remote cross-encoder endpoint.
type scoreRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type scoreResponse struct {
	Scores []float32 `json:"scores"`
}

// CrossEncoderTier scores query-document pairs via a remote cross-encoder
// endpoint, batching requests the way the teacher's in-process reranker
// batched ONNX inference calls.
type CrossEncoderTier struct {
	name      string
	url       string
	batchSize int
	client    *http.Client
	log       *logger.Logger
}

// NewCrossEncoderTier constructs a tier named name (for logging and the
// degraded-tier tag) that scores batches of at most batchSize documents
// against the endpoint at url.
func NewCrossEncoderTier(name, url string, batchSize int, log *logger.Logger) *CrossEncoderTier {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &CrossEncoderTier{
		name:      name,
		url:       url,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

// Name returns the tier's identifying tag.
func (c *CrossEncoderTier) Name() string { return c.name }

// Rerank scores all documents in batches of c.batchSize and returns the
// sorted, truncated result.
func (c *CrossEncoderTier) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	scores := make([]float32, len(documents))
	for start := 0; start < len(documents); start += c.batchSize {
		end := start + c.batchSize
		if end > len(documents) {
			end = len(documents)
		}
		batchScores, err := c.scoreBatch(ctx, query, documents[start:end])
		if err != nil {
			return nil, err
		}
		copy(scores[start:end], batchScores)
	}

	return sortAndTruncate(documents, scores, topK), nil
}

func (c *CrossEncoderTier) scoreBatch(ctx context.Context, query string, batch []string) ([]float32, error) {
	body, err := json.Marshal(scoreRequest{Query: query, Documents: batch})
	if err != nil {
		return nil, errors.InternalError(fmt.Sprintf("%s tier: encode request", c.name), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.InternalError(fmt.Sprintf("%s tier: build request", c.name), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.UnavailableError(fmt.Sprintf("%s reranker", c.name), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.UnavailableError(fmt.Sprintf("%s reranker returned status %d", c.name, resp.StatusCode), nil)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.InternalError(fmt.Sprintf("%s tier: decode response", c.name), err)
	}
	if len(out.Scores) != len(batch) {
		return nil, errors.InternalError(
			fmt.Sprintf("%s tier: response length mismatch (got %d, want %d)", c.name, len(out.Scores), len(batch)), nil)
	}

	return out.Scores, nil
}
