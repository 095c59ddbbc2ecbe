// Package grpcclient provides a gRPC client for the retrieval engine's
// Search, MultiQuerySearch, SessionSearch, and HealthCheck operations.
package grpcclient

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/convomem/retrieval-engine/internal/retrievalpb"
)

// Config holds the client configuration.
type Config struct {
	// ServerAddress is the server address. Supports "host:port" (TCP),
	// "unix:///path/to.sock", or "auto" (try the Unix socket first, fall
	// back to TCP).
	ServerAddress string

	// UnixSocketPath is the default Unix socket path for auto-detection.
	UnixSocketPath string

	// TCPAddress is the default TCP address for auto-detection.
	TCPAddress string

	// Timeout is the connection timeout.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServerAddress:  "auto",
		UnixSocketPath: "/tmp/retrieval-engine.sock",
		TCPAddress:     "localhost:50051",
		Timeout:        10 * time.Second,
	}
}

// Client is a gRPC client for the retrieval engine.
type Client struct {
	cfg    Config
	conn   *grpc.ClientConn
	client retrievalpb.RetrievalServiceClient
}

// New creates a new gRPC client.
func New(cfg Config) (*Client, error) {
	if cfg.ServerAddress == "" {
		cfg = DefaultConfig()
	}

	addr := cfg.resolveAddress()

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	if strings.HasPrefix(addr, "unix://") {
		socketPath := strings.TrimPrefix(addr, "unix://")
		opts = append(opts, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return net.DialTimeout("unix", socketPath, cfg.Timeout)
		}))
		addr = socketPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	opts = append(opts, grpc.WithBlock())
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	conn.Connect()
	select {
	case <-ctx.Done():
		conn.Close()
		return nil, fmt.Errorf("connection timeout to %s", addr)
	default:
	}

	return &Client{
		cfg:    cfg,
		conn:   conn,
		client: retrievalpb.NewRetrievalServiceClient(conn),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// resolveAddress resolves the server address based on configuration.
func (cfg *Config) resolveAddress() string {
	if cfg.ServerAddress != "auto" {
		return cfg.ServerAddress
	}

	if runtime.GOOS != "windows" && cfg.UnixSocketPath != "" {
		if _, err := os.Stat(cfg.UnixSocketPath); err == nil {
			return "unix://" + cfg.UnixSocketPath
		}
	}

	return cfg.TCPAddress
}

// SearchOptions holds the subset of search.Request a remote caller can set.
type SearchOptions struct {
	SessionID          string
	Type               string
	Limit              int
	Strategy           string
	EnableReranking    bool
	RerankTier         string
	RerankFallbackTier string
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID             string
	Content        string
	Score          float32
	FusedScore     float32
	RerankerScore  *float32
	RerankTier     string
	SessionID      string
	Type           string
	Degraded       bool
	DegradedReason string
}

// SearchResponse represents a search response.
type SearchResponse struct {
	Query          string
	Strategy       string
	Results        []SearchResult
	Degraded       bool
	DegradedReason string
}

// Search performs a hybrid search.
func (c *Client) Search(ctx context.Context, tenantID, query string, opts SearchOptions) (*SearchResponse, error) {
	resp, err := c.client.Search(ctx, searchRequestToProto(tenantID, query, opts))
	if err != nil {
		return nil, err
	}
	return searchResponseFromProto(resp), nil
}

// MultiQuerySearch performs the LLM-expanded, RRF-fused search variant.
func (c *Client) MultiQuerySearch(ctx context.Context, tenantID, query string, opts SearchOptions) (*SearchResponse, error) {
	resp, err := c.client.MultiQuerySearch(ctx, searchRequestToProto(tenantID, query, opts))
	if err != nil {
		return nil, err
	}
	return searchResponseFromProto(resp), nil
}

// SessionSearchResult represents a single ranked turn returned by the
// session-aware retriever.
type SessionSearchResult struct {
	ID             string
	Content        string
	Score          float32
	Type           string
	SessionID      string
	SessionSummary string
	SessionScore   float32
	RerankerScore  *float32
	RerankTier     string
	Degraded       bool
	DegradedReason string
}

// SessionSearch performs the two-stage, session-aware retrieval.
func (c *Client) SessionSearch(ctx context.Context, tenantID, query string) ([]SessionSearchResult, error) {
	resp, err := c.client.SessionSearch(ctx, &retrievalpb.SessionSearchRequest{Query: query, TenantId: tenantID})
	if err != nil {
		return nil, err
	}

	out := make([]SessionSearchResult, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = sessionSearchResultFromProto(r)
	}
	return out, nil
}

// HealthCheck checks reachability of the vector store behind the server.
func (c *Client) HealthCheck(ctx context.Context) (healthy bool, message string, err error) {
	resp, err := c.client.HealthCheck(ctx, &retrievalpb.HealthCheckRequest{})
	if err != nil {
		return false, "", err
	}
	return resp.Healthy, resp.Message, nil
}

func searchRequestToProto(tenantID, query string, opts SearchOptions) *retrievalpb.SearchRequest {
	return &retrievalpb.SearchRequest{
		Query:              query,
		TenantId:           tenantID,
		SessionId:          opts.SessionID,
		Type:               opts.Type,
		Limit:              int32(opts.Limit),
		Strategy:           opts.Strategy,
		EnableReranking:    opts.EnableReranking,
		RerankTier:         opts.RerankTier,
		RerankFallbackTier: opts.RerankFallbackTier,
	}
}

func searchResponseFromProto(resp *retrievalpb.SearchResponse) *SearchResponse {
	results := make([]SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = searchResultFromProto(r)
	}
	return &SearchResponse{
		Query:          resp.Query,
		Strategy:       resp.Strategy,
		Results:        results,
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}
}

func searchResultFromProto(r *retrievalpb.SearchResult) SearchResult {
	out := SearchResult{
		ID:             r.Id,
		Content:        r.Content,
		Score:          r.Score,
		FusedScore:     r.FusedScore,
		RerankTier:     r.RerankTier,
		SessionID:      r.SessionId,
		Type:           r.Type,
		Degraded:       r.Degraded,
		DegradedReason: r.DegradedReason,
	}
	if r.HasRerankerScore {
		score := r.RerankerScore
		out.RerankerScore = &score
	}
	return out
}

func sessionSearchResultFromProto(r *retrievalpb.SessionSearchResult) SessionSearchResult {
	out := SessionSearchResult{
		ID:             r.Id,
		Content:        r.Content,
		Score:          r.Score,
		Type:           r.Type,
		SessionID:      r.SessionId,
		SessionSummary: r.SessionSummary,
		SessionScore:   r.SessionScore,
		RerankTier:     r.RerankTier,
		Degraded:       r.Degraded,
		DegradedReason: r.DegradedReason,
	}
	if r.HasRerankerScore {
		score := r.RerankerScore
		out.RerankerScore = &score
	}
	return out
}
