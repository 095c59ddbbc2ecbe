// Package main provides the retrieval engine's CLI: an operational tool for
// manual verification and smoke-testing a deployment. It builds the full
// component graph in-process from loaded configuration and issues a single
// retrieval per invocation, the same way the teacher's CLI builds a gRPC
// client per invocation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/convomem/retrieval-engine/internal/bus"
	"github.com/convomem/retrieval-engine/internal/chunk"
	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/embed"
	"github.com/convomem/retrieval-engine/internal/grpcclient"
	"github.com/convomem/retrieval-engine/internal/grpcserver"
	"github.com/convomem/retrieval-engine/internal/llmclient"
	"github.com/convomem/retrieval-engine/internal/multiquery"
	"github.com/convomem/retrieval-engine/internal/pkg/logger"
	"github.com/convomem/retrieval-engine/internal/qdrant"
	"github.com/convomem/retrieval-engine/internal/ratelimit"
	"github.com/convomem/retrieval-engine/internal/rerank"
	"github.com/convomem/retrieval-engine/internal/rerankrouter"
	"github.com/convomem/retrieval-engine/internal/search"
	"github.com/convomem/retrieval-engine/internal/session"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// defaultCollection is the vector store collection searched by the plain
// and multi-query retrievers: the conversational turns the system indexes.
const defaultCollection = "turns"

func main() {
	rootCmd := &cobra.Command{
		Use:   "rice-search",
		Short: "retrieval engine CLI",
		Long: `rice-search builds the retrieval component graph from local
configuration and runs a single search, for manual verification and
smoke-testing a deployment.

Examples:
  rice-search search --query "what did we discuss about billing" --tenant acme
  rice-search search --query "refund policy" --tenant acme --strategy hybrid
  rice-search chunk --text "long document text..."
  rice-search health
  rice-search serve
  rice-search remote search --query "refund policy" --tenant acme`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(versionCmd(), searchCmd(), healthCmd(), chunkCmd(), serveCmd(), remoteCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("rice-search %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check connectivity to the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			qc, err := newQdrantClient(appCfg.Qdrant)
			if err != nil {
				return fmt.Errorf("connecting to qdrant: %w", err)
			}
			defer func() { _ = qc.Close() }()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := qc.HealthCheck(ctx); err != nil {
				return fmt.Errorf("qdrant health check failed: %w", err)
			}

			log.Info("qdrant reachable")
			fmt.Println("ok")
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "run a single retrieval against the configured deployment",
		RunE:  runSearch,
	}

	cmd.Flags().String("query", "", "query text (required)")
	cmd.Flags().String("tenant", "", "tenant id (required)")
	cmd.Flags().Int("limit", 20, "maximum number of results")
	cmd.Flags().String("strategy", "", "auto, dense, sparse, or hybrid")
	cmd.Flags().String("rerank-tier", "", "fast, accurate, code, colbert, or llm")
	cmd.Flags().String("mode", "plain", "plain, multiquery, or session")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "split text into embedding-ready chunks using the configured splitter",
		RunE:  runChunk,
	}
	cmd.Flags().String("text", "", "text to chunk (required)")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the retrieval engine as a standalone gRPC server",
		RunE:  runServe,
	}
	cmd.Flags().String("unix-socket", "", "Unix socket path to also listen on (optional)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	unixSocket, _ := cmd.Flags().GetString("unix-socket")

	appCfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	graph, err := buildGraph(appCfg, log)
	if err != nil {
		return fmt.Errorf("building component graph: %w", err)
	}
	defer func() { _ = graph.qdrant.Close() }()
	defer func() { _ = graph.bus.Close() }()

	grpcCfg := grpcserver.DefaultConfig()
	grpcCfg.TCPAddr = appCfg.Address()
	grpcCfg.Version = version
	if unixSocket != "" {
		grpcCfg.UnixSocketPath = unixSocket
	} else if appCfg.UnixSocketPath != "" {
		grpcCfg.UnixSocketPath = appCfg.UnixSocketPath
	}

	srv := grpcserver.New(grpcCfg, log, graph.qdrant, graph.search, graph.multiQuery, graph.session)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting gRPC server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	srv.Stop()
	return nil
}

func remoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "talk to a running rice-search server over gRPC",
	}
	cmd.PersistentFlags().String("address", "auto", `server address: "auto", "host:port", or "unix:///path/to.sock"`)
	cmd.AddCommand(remoteSearchCmd(), remoteHealthCmd())
	return cmd
}

func remoteSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "run a search against a remote rice-search server",
		RunE:  runRemoteSearch,
	}
	cmd.Flags().String("query", "", "query text (required)")
	cmd.Flags().String("tenant", "", "tenant id (required)")
	cmd.Flags().Int("limit", 20, "maximum number of results")
	cmd.Flags().String("strategy", "", "auto, dense, sparse, or hybrid")
	cmd.Flags().String("rerank-tier", "", "fast, accurate, code, colbert, or llm")
	cmd.Flags().String("mode", "plain", "plain, multiquery, or session")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func remoteHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check connectivity to a remote rice-search server",
		RunE:  runRemoteHealth,
	}
}

func newRemoteClient(cmd *cobra.Command) (*grpcclient.Client, error) {
	address, _ := cmd.Flags().GetString("address")

	clientCfg := grpcclient.DefaultConfig()
	if address != "" {
		clientCfg.ServerAddress = address
	}
	return grpcclient.New(clientCfg)
}

func runRemoteSearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	tenant, _ := cmd.Flags().GetString("tenant")
	limit, _ := cmd.Flags().GetInt("limit")
	strategy, _ := cmd.Flags().GetString("strategy")
	rerankTier, _ := cmd.Flags().GetString("rerank-tier")
	mode, _ := cmd.Flags().GetString("mode")

	client, err := newRemoteClient(cmd)
	if err != nil {
		return fmt.Errorf("connecting to remote server: %w", err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := grpcclient.SearchOptions{
		Limit:      limit,
		Strategy:   strategy,
		RerankTier: rerankTier,
	}

	var out any
	switch mode {
	case "multiquery":
		resp, err := client.MultiQuerySearch(ctx, tenant, query, opts)
		if err != nil {
			return fmt.Errorf("remote search failed: %w", err)
		}
		out = resp
	case "session":
		resp, err := client.SessionSearch(ctx, tenant, query)
		if err != nil {
			return fmt.Errorf("remote search failed: %w", err)
		}
		out = resp
	default:
		resp, err := client.Search(ctx, tenant, query, opts)
		if err != nil {
			return fmt.Errorf("remote search failed: %w", err)
		}
		out = resp
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runRemoteHealth(cmd *cobra.Command, args []string) error {
	client, err := newRemoteClient(cmd)
	if err != nil {
		return fmt.Errorf("connecting to remote server: %w", err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	healthy, message, err := client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("remote health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("remote server unhealthy: %s", message)
	}

	fmt.Println("ok")
	return nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")

	appCfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	graph, err := buildGraph(appCfg, log)
	if err != nil {
		return fmt.Errorf("building component graph: %w", err)
	}
	defer func() { _ = graph.qdrant.Close() }()
	defer func() { _ = graph.bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chunks, err := graph.chunker.Chunk(ctx, text)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(chunks)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	tenant, _ := cmd.Flags().GetString("tenant")
	limit, _ := cmd.Flags().GetInt("limit")
	strategy, _ := cmd.Flags().GetString("strategy")
	rerankTier, _ := cmd.Flags().GetString("rerank-tier")
	mode, _ := cmd.Flags().GetString("mode")

	appCfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	graph, err := buildGraph(appCfg, log)
	if err != nil {
		return fmt.Errorf("building component graph: %w", err)
	}
	defer func() { _ = graph.qdrant.Close() }()
	defer func() { _ = graph.bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	correlationID := strconv.FormatInt(time.Now().UnixNano(), 36)
	_ = graph.bus.Publish(ctx, bus.TopicSearchRequest, bus.Event{
		ID:            correlationID,
		Type:          bus.TopicSearchRequest,
		Source:        "cli",
		Timestamp:     time.Now().Unix(),
		CorrelationID: correlationID,
		Payload:       map[string]any{"query": query, "tenant": tenant, "mode": mode},
	})

	req := search.Request{
		Query:      query,
		TenantID:   tenant,
		Limit:      limit,
		Strategy:   search.Strategy(strategy),
		RerankTier: rerankTier,
	}

	var out any
	switch mode {
	case "multiquery":
		resp, err := graph.multiQuery.Search(ctx, req)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		out = resp
	case "session":
		out = graph.session.Retrieve(ctx, query, tenant)
	default:
		resp, err := graph.search.Search(ctx, req)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		out = resp
	}

	_ = graph.bus.Publish(ctx, bus.TopicSearchResponse, bus.Event{
		ID:            strconv.FormatInt(time.Now().UnixNano(), 36),
		Type:          bus.TopicSearchResponse,
		Source:        "cli",
		Timestamp:     time.Now().Unix(),
		CorrelationID: correlationID,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	appCfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := appCfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New(level, appCfg.Log.Format)

	return appCfg, log, nil
}

// componentGraph holds the constructed retrieval stack so the search command
// can pick the plain, multi-query, or session-aware entrypoint.
type componentGraph struct {
	qdrant     *qdrant.Client
	embed      *embed.Factory
	bus        bus.Bus
	chunker    *chunk.Chunker
	search     *search.Service
	multiQuery *multiquery.Service
	session    *session.Service
}

func buildGraph(appCfg *config.Config, log *logger.Logger) (*componentGraph, error) {
	qc, err := newQdrantClient(appCfg.Qdrant)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	innerBus, err := bus.NewBus(appCfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("constructing event bus: %w", err)
	}
	eventBus := bus.NewInstrumentedBus(innerBus, nil)

	cache := embed.NewCacheFromConfig(appCfg.Cache)
	embedFactory := embed.NewFactory(appCfg.Embed, cache)

	var llmClient *llmclient.Client
	if appCfg.Embed.LLMAPIKey != "" {
		llmClient = llmclient.New(appCfg.Embed.LLMAPIKey, appCfg.Embed.LLMBaseURL, appCfg.Embed.LLMModel)
	}

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests:  appCfg.Rerank.RequestBudgetPerWindow,
		MaxCostCents: appCfg.Rerank.CostBudgetCentsPerWindow,
		Window:       time.Duration(appCfg.Rerank.WindowSeconds) * time.Second,
	})

	colbertEncoder, err := embedFactory.MultiVector()
	if err != nil {
		// The colbert tier is only exercised on request; a missing external
		// URL here just means that tier fails lazily when selected.
		colbertEncoder = nil
	}

	rerankFactory := rerank.NewFactory(appCfg.Rerank, log, colbertEncoder, llmClient, limiter)
	router := rerankrouter.New(rerankFactory, rerankrouter.Config{
		DefaultTimeout: time.Duration(appCfg.Rerank.PerCallTimeoutMillis) * time.Millisecond,
	}, log)

	searchSvc := search.NewService(qc, embedFactory, router, defaultCollection, search.ConfigFromSearchConfig(appCfg.Search), log)

	// llmClient must only become a non-nil multiquery.Expander when it is
	// actually non-nil: assigning a nil *llmclient.Client to an interface
	// parameter directly would produce a non-nil interface wrapping a nil
	// pointer, defeating the service's own nil check.
	var expander multiquery.Expander
	if llmClient != nil {
		expander = llmClient
	}
	multiQuerySvc := multiquery.NewService(searchSvc, expander, multiquery.ConfigFromSearchConfig(appCfg.Search), log)

	sessionCfg := session.ConfigFromSearchConfig(appCfg.Search)
	sessionSvc := session.NewService(qc, embedFactory, router, &sessionCfg, log)

	chunker := chunk.NewChunker(embedFactory, chunk.ConfigFromSearchConfig(appCfg.Search))

	return &componentGraph{
		qdrant:     qc,
		embed:      embedFactory,
		bus:        eventBus,
		chunker:    chunker,
		search:     searchSvc,
		multiQuery: multiQuerySvc,
		session:    sessionSvc,
	}, nil
}

// newQdrantClient bridges the config package's single connection URL to the
// client's separate host/port fields.
func newQdrantClient(cfg config.QdrantConfig) (*qdrant.Client, error) {
	clientCfg := qdrant.DefaultClientConfig()
	if cfg.URL != "" {
		host, port, err := parseQdrantURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant url: %w", err)
		}
		clientCfg.Host = host
		clientCfg.Port = port
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}
	return qdrant.NewClient(clientCfg)
}

// parseQdrantURL extracts host and gRPC port from a Qdrant URL. Qdrant's
// gRPC port is conventionally the configured HTTP port plus one.
func parseQdrantURL(rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, err
	}

	host := u.Hostname()
	if host == "" {
		host = qdrant.DefaultHost
	}

	httpPort := qdrant.DefaultPort - 1
	if portStr := u.Port(); portStr != "" {
		httpPort, err = strconv.Atoi(portStr)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port: %s", portStr)
		}
	}

	return host, httpPort + 1, nil
}
