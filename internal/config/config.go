// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration for the gRPC surface the serve command exposes.
	Host           string `envconfig:"MEMORY_HOST" yaml:"host"`
	Port           int    `envconfig:"MEMORY_PORT" yaml:"port"`
	UnixSocketPath string `envconfig:"MEMORY_UNIX_SOCKET_PATH" yaml:"unix_socket_path"`

	Qdrant        QdrantConfig        `yaml:"qdrant"`
	Embed         EmbedConfig         `yaml:"embed"`
	Cache         CacheConfig         `yaml:"cache"`
	Bus           BusConfig           `yaml:"bus"`
	Rerank        RerankConfig        `yaml:"rerank"`
	Search        SearchConfig        `yaml:"search"`
	Log           LogConfig           `yaml:"log"`
	Security      SecurityConfig      `yaml:"security"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	URL               string `envconfig:"QDRANT_URL" yaml:"url"`
	APIKey            string `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	CollectionPrefix  string `envconfig:"QDRANT_COLLECTION_PREFIX" yaml:"collection_prefix"`
	EnableMultiVector bool   `envconfig:"QDRANT_ENABLE_MULTI_VECTOR" yaml:"enable_multi_vector"`
}

// EmbedConfig holds embedding and inference settings for the dense-text,
// dense-code, sparse-lexical, and late-interaction capabilities.
type EmbedConfig struct {
	DenseTextModel   string `envconfig:"MEMORY_DENSE_TEXT_MODEL" yaml:"dense_text_model"`
	DenseCodeModel   string `envconfig:"MEMORY_DENSE_CODE_MODEL" yaml:"dense_code_model"`
	SparseModel      string `envconfig:"MEMORY_SPARSE_MODEL" yaml:"sparse_model"`
	ColbertModel     string `envconfig:"MEMORY_COLBERT_MODEL" yaml:"colbert_model"`
	EmbedDim         int    `envconfig:"MEMORY_EMBED_DIM" yaml:"embed_dim"`
	BatchSize        int    `envconfig:"MEMORY_EMBED_BATCH_SIZE" yaml:"embed_batch_size"`
	MaxSeqLength     int    `envconfig:"MEMORY_MAX_SEQ_LENGTH" yaml:"max_seq_length"`
	ExternalURL      string `envconfig:"MEMORY_EMBED_URL" yaml:"external_url"`
	LLMModel         string `envconfig:"MEMORY_LLM_MODEL" yaml:"llm_model"`
	LLMProvider      string `envconfig:"MEMORY_LLM_PROVIDER" yaml:"llm_provider"`
	LLMAPIKey        string `envconfig:"MEMORY_LLM_API_KEY" yaml:"llm_api_key"`
	LLMBaseURL       string `envconfig:"MEMORY_LLM_BASE_URL" yaml:"llm_base_url"`
}

// CacheConfig holds embedding result cache settings.
type CacheConfig struct {
	Type     string `envconfig:"MEMORY_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"MEMORY_CACHE_SIZE" yaml:"size"`
	TTL      int    `envconfig:"MEMORY_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
	RedisURL string `envconfig:"MEMORY_REDIS_URL" yaml:"redis_url"`
}

// BusConfig selects the event bus backend and holds its Kafka connection
// settings.
type BusConfig struct {
	Type         string `envconfig:"MEMORY_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"MEMORY_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"MEMORY_KAFKA_GROUP" yaml:"kafka_group"`
}

// RerankConfig holds reranker router and sliding-window limiter settings.
type RerankConfig struct {
	DefaultTier          string  `envconfig:"MEMORY_RERANK_DEFAULT_TIER" yaml:"default_tier"`
	FallbackChain        string `envconfig:"MEMORY_RERANK_FALLBACK_CHAIN" yaml:"fallback_chain"` // comma-separated
	PerCallTimeoutMillis int     `envconfig:"MEMORY_RERANK_TIMEOUT_MS" yaml:"per_call_timeout_millis"`
	LLMCostPerThousandTokensCents float64 `envconfig:"MEMORY_RERANK_LLM_COST_CENTS" yaml:"llm_cost_per_1k_tokens_cents"`
	RequestBudgetPerWindow int    `envconfig:"MEMORY_RERANK_REQUEST_BUDGET" yaml:"request_budget_per_window"`
	CostBudgetCentsPerWindow float64 `envconfig:"MEMORY_RERANK_COST_BUDGET_CENTS" yaml:"cost_budget_cents_per_window"`
	WindowSeconds        int     `envconfig:"MEMORY_RERANK_WINDOW_SECONDS" yaml:"window_seconds"`

	// FastModelURL, AccurateModelURL, and CodeModelURL are the remote
	// cross-encoder scoring endpoints for the fast, accurate, and code
	// tiers respectively. Each accepts a JSON {query, documents} request and
	// returns {scores: [f32]} in document order.
	FastModelURL     string `envconfig:"MEMORY_RERANK_FAST_URL" yaml:"fast_model_url"`
	AccurateModelURL string `envconfig:"MEMORY_RERANK_ACCURATE_URL" yaml:"accurate_model_url"`
	CodeModelURL     string `envconfig:"MEMORY_RERANK_CODE_URL" yaml:"code_model_url"`

	// LLMDocCharBudget bounds how many characters of each document are
	// placed into the llm tier's prompt.
	LLMDocCharBudget int `envconfig:"MEMORY_RERANK_LLM_DOC_CHAR_BUDGET" yaml:"llm_doc_char_budget"`
}

// SearchConfig holds hybrid retrieval settings.
type SearchConfig struct {
	DefaultLimit            int     `envconfig:"MEMORY_DEFAULT_LIMIT" yaml:"default_limit"`
	PrefetchDepthMultiplier int     `envconfig:"MEMORY_PREFETCH_DEPTH_MULTIPLIER" yaml:"prefetch_depth_multiplier"` // K in max(limit*K, 20)
	RRFK                    int     `envconfig:"MEMORY_RRF_K" yaml:"rrf_k"`
	EnableReranking         bool    `envconfig:"MEMORY_ENABLE_RERANKING" yaml:"enable_reranking"`
	MultiQueryExpansions    int     `envconfig:"MEMORY_MULTI_QUERY_EXPANSIONS" yaml:"multi_query_expansions"`
	MultiQueryCostPerMillionTokensCents float64 `envconfig:"MEMORY_MULTI_QUERY_COST_CENTS" yaml:"multi_query_cost_per_million_tokens_cents"`
	SessionScoreThreshold   float64 `envconfig:"MEMORY_SESSION_SCORE_THRESHOLD" yaml:"session_score_threshold"`
	ChunkSimilarityThreshold float64 `envconfig:"MEMORY_CHUNK_SIMILARITY_THRESHOLD" yaml:"chunk_similarity_threshold"`
	ChunkMinChars           int     `envconfig:"MEMORY_CHUNK_MIN_CHARS" yaml:"chunk_min_chars"`
	ChunkMaxChars           int     `envconfig:"MEMORY_CHUNK_MAX_CHARS" yaml:"chunk_max_chars"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"MEMORY_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"MEMORY_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds settings for the pluggable, out-of-scope auth
// collaborator.
type SecurityConfig struct {
	APIKey      string `envconfig:"MEMORY_API_KEY" yaml:"api_key"`
	CORSOrigins string `envconfig:"MEMORY_CORS_ORIGINS" yaml:"cors_origins"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `envconfig:"MEMORY_METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPath    string `envconfig:"MEMORY_METRICS_PATH" yaml:"metrics_path"`
}

// Load loads configuration from defaults, then an optional YAML file, then
// environment variables, in ascending precedence.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Qdrant = QdrantConfig{
		URL:              "http://localhost:6333",
		CollectionPrefix: "memory_",
	}

	cfg.Embed = EmbedConfig{
		DenseTextModel: "jina-embeddings-v3",
		DenseCodeModel: "jina-embeddings-v3-code",
		SparseModel:    "splade-v3",
		ColbertModel:   "colbert-v2",
		EmbedDim:       1536,
		BatchSize:      32,
		MaxSeqLength:   8192,
		LLMModel:       "gemini-3-flash-preview",
		LLMProvider:    "google",
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     10000,
		TTL:      3600,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Rerank = RerankConfig{
		DefaultTier:                    "fast",
		FallbackChain:                  "accurate,fast",
		PerCallTimeoutMillis:           2000,
		LLMCostPerThousandTokensCents:  50,
		RequestBudgetPerWindow:         100,
		CostBudgetCentsPerWindow:       500,
		WindowSeconds:                  60,
		LLMDocCharBudget:               500,
	}

	cfg.Search = SearchConfig{
		DefaultLimit:                         20,
		PrefetchDepthMultiplier:              4,
		RRFK:                                 60,
		EnableReranking:                      true,
		MultiQueryExpansions:                 3,
		MultiQueryCostPerMillionTokensCents:  50,
		SessionScoreThreshold:                0.3,
		ChunkSimilarityThreshold:             0.7,
		ChunkMinChars:                        100,
		ChunkMaxChars:                        2000,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		CORSOrigins: "*",
	}

	cfg.Observability = ObservabilityConfig{
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// Validate validates the configuration, accumulating every violation rather
// than failing on the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Embed.EmbedDim < 1 {
		errs = append(errs, "embed_dim must be positive")
	}

	if c.Embed.BatchSize < 1 {
		errs = append(errs, "embed_batch_size must be positive")
	}

	validCacheTypes := map[string]bool{"memory": true, "redis": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory or redis)", c.Cache.Type))
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Rerank.PerCallTimeoutMillis < 1 {
		errs = append(errs, "rerank.per_call_timeout_millis must be positive")
	}

	if strings.TrimSpace(c.Rerank.FallbackChain) == "" {
		errs = append(errs, "rerank.fallback_chain must not be empty")
	}

	if c.Rerank.WindowSeconds < 1 {
		errs = append(errs, "rerank.window_seconds must be positive")
	}

	if c.Search.DefaultLimit < 1 {
		errs = append(errs, "search.default_limit must be positive")
	}

	if c.Search.PrefetchDepthMultiplier < 1 {
		errs = append(errs, "search.prefetch_depth_multiplier must be positive")
	}

	if c.Search.RRFK < 1 {
		errs = append(errs, "search.rrf_k must be positive")
	}

	if c.Search.ChunkSimilarityThreshold < 0 || c.Search.ChunkSimilarityThreshold > 1 {
		errs = append(errs, "search.chunk_similarity_threshold must be between 0 and 1")
	}

	if c.Search.ChunkMinChars >= c.Search.ChunkMaxChars {
		errs = append(errs, "search.chunk_min_chars must be less than search.chunk_max_chars")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}

// FallbackChainTiers splits the configured fallback chain into an ordered
// list of tier names.
func (c *RerankConfig) FallbackChainTiers() []string {
	parts := strings.Split(c.FallbackChain, ",")
	tiers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tiers = append(tiers, p)
		}
	}
	return tiers
}
