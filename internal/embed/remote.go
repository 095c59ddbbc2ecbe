package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
)

// role distinguishes a query-side encode from a document-side encode, since
// some embedders apply a different prefix or pooling per role.
type role string

const (
	roleQuery    role = "query"
	roleDocument role = "document"
)

// remoteClient calls a single remote embedding endpoint that accepts a batch
// of texts for one role and returns one vector-of-T per text, in order.
type remoteClient struct {
	name   string
	url    string
	client *http.Client
}

func newRemoteClient(name, url string) *remoteClient {
	return &remoteClient{name: name, url: url, client: &http.Client{Timeout: 30 * time.Second}}
}

type embedRequest struct {
	Role  string   `json:"role"`
	Texts []string `json:"texts"`
}

type denseEmbedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

type sparseEmbedResponse struct {
	Vectors []map[string]float32 `json:"vectors"`
}

type multiVectorEmbedResponse struct {
	Vectors [][][]float32 `json:"vectors"`
}

func (c *remoteClient) encodeDense(ctx context.Context, r role, texts []string) ([][]float32, error) {
	var out denseEmbedResponse
	if err := c.call(ctx, r, texts, &out); err != nil {
		return nil, err
	}
	if len(out.Vectors) != len(texts) {
		return nil, errors.InternalError(fmt.Sprintf("%s encoder: response length mismatch", c.name), nil)
	}
	return out.Vectors, nil
}

func (c *remoteClient) encodeSparse(ctx context.Context, r role, texts []string) ([]map[uint32]float32, error) {
	var out sparseEmbedResponse
	if err := c.call(ctx, r, texts, &out); err != nil {
		return nil, err
	}
	if len(out.Vectors) != len(texts) {
		return nil, errors.InternalError(fmt.Sprintf("%s encoder: response length mismatch", c.name), nil)
	}

	results := make([]map[uint32]float32, len(out.Vectors))
	for i, v := range out.Vectors {
		converted := make(map[uint32]float32, len(v))
		for tokenStr, weight := range v {
			var tokenID uint32
			if _, err := fmt.Sscanf(tokenStr, "%d", &tokenID); err != nil {
				continue
			}
			converted[tokenID] = weight
		}
		results[i] = converted
	}
	return results, nil
}

func (c *remoteClient) encodeMultiVector(ctx context.Context, r role, texts []string) ([][][]float32, error) {
	var out multiVectorEmbedResponse
	if err := c.call(ctx, r, texts, &out); err != nil {
		return nil, err
	}
	if len(out.Vectors) != len(texts) {
		return nil, errors.InternalError(fmt.Sprintf("%s encoder: response length mismatch", c.name), nil)
	}
	return out.Vectors, nil
}

func (c *remoteClient) call(ctx context.Context, r role, texts []string, out any) error {
	body, err := json.Marshal(embedRequest{Role: string(r), Texts: texts})
	if err != nil {
		return errors.InternalError(fmt.Sprintf("%s encoder: encode request", c.name), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.InternalError(fmt.Sprintf("%s encoder: build request", c.name), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.UnavailableError(fmt.Sprintf("%s encoder", c.name), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.UnavailableError(fmt.Sprintf("%s encoder returned status %d", c.name, resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.InternalError(fmt.Sprintf("%s encoder: decode response", c.name), err)
	}
	return nil
}
