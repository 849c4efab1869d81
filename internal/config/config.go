// Package config loads the TOML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/askbase/internal/core/domain"
)

// Config is the full application configuration.
type Config struct {
	Query     QueryConfig    `toml:"query"`
	Chunking  ChunkingConfig `toml:"chunking"`
	Embedding ProviderConfig `toml:"embedding"`
	Chat      ProviderConfig `toml:"chat"`
	Storage   StorageConfig  `toml:"storage"`
	Vector    VectorConfig   `toml:"vector"`
	Sessions  SessionsConfig `toml:"sessions"`
	Watch     WatchConfig    `toml:"watch"`
}

// QueryConfig controls the query pipeline.
type QueryConfig struct {
	// Flow picks the pipeline: "pre_retrieval" or "tool_calling".
	Flow string `toml:"flow"`

	// TopK is how many chunks retrieval returns.
	TopK int `toml:"top_k"`

	// Threshold is the minimum cosine similarity for relevance.
	Threshold float64 `toml:"threshold"`

	// Metric is "cosine", "l2" or "inner_product".
	Metric string `toml:"metric"`

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int `toml:"max_tokens"`

	// Temperature controls completion randomness.
	Temperature float64 `toml:"temperature"`
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	ChunkSize int `toml:"chunk_size"`
	Overlap   int `toml:"overlap"`
}

// ProviderConfig selects and configures one model provider.
type ProviderConfig struct {
	// Provider names the adapter: "ollama", "openai", "anthropic" or
	// "synthetic" (embedding only).
	Provider string `toml:"provider"`

	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Dimensions     int    `toml:"dimensions"`
}

// Timeout returns the configured timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// StorageConfig selects the metadata store.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `toml:"backend"`

	// DataDir holds the SQLite database. Empty means the default
	// under the user's home directory.
	DataDir string `toml:"data_dir"`
}

// VectorConfig selects the vector index.
type VectorConfig struct {
	// Backend is "memory" or "pgvector".
	Backend string `toml:"backend"`

	// PgvectorDSN is the Postgres connection string for pgvector.
	PgvectorDSN string `toml:"pgvector_dsn"`
}

// SessionsConfig controls conversation lifecycle.
type SessionsConfig struct {
	SweepIntervalSeconds     int `toml:"sweep_interval_seconds"`
	ReconcileIntervalMinutes int `toml:"reconcile_interval_minutes"`
	MaxIdleMinutes           int `toml:"max_idle_minutes"`
}

// SweepInterval returns the sweep cadence as a duration.
func (s SessionsConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// ReconcileInterval returns the slow sweep cadence as a duration.
func (s SessionsConfig) ReconcileInterval() time.Duration {
	return time.Duration(s.ReconcileIntervalMinutes) * time.Minute
}

// MaxIdle returns the idle expiry as a duration.
func (s SessionsConfig) MaxIdle() time.Duration {
	return time.Duration(s.MaxIdleMinutes) * time.Minute
}

// WatchConfig controls the ingest directory watcher.
type WatchConfig struct {
	Enabled    bool     `toml:"enabled"`
	Dir        string   `toml:"dir"`
	Extensions []string `toml:"extensions"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Query: QueryConfig{
			Flow:      string(domain.FlowPreRetrieval),
			TopK:      5,
			Threshold: 0.3,
			Metric:    string(domain.MetricCosine),
		},
		Chunking: ChunkingConfig{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Embedding: ProviderConfig{
			Provider:       "ollama",
			TimeoutSeconds: 30,
		},
		Chat: ProviderConfig{
			Provider:       "openai",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Vector: VectorConfig{
			Backend: "memory",
		},
		Sessions: SessionsConfig{
			SweepIntervalSeconds:     15,
			ReconcileIntervalMinutes: 30,
			MaxIdleMinutes:           30,
		},
		Watch: WatchConfig{
			Extensions: []string{".txt", ".md"},
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// API keys may come from the environment instead of the file.
	if cfg.Chat.APIKey == "" {
		cfg.Chat.APIKey = keyFromEnv(cfg.Chat.Provider)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = keyFromEnv(cfg.Embedding.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if !domain.FlowMode(c.Query.Flow).Valid() {
		return fmt.Errorf("unknown query flow %q", c.Query.Flow)
	}
	if !domain.Metric(c.Query.Metric).Valid() {
		return fmt.Errorf("unknown metric %q", c.Query.Metric)
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Query.TopK)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("overlap must be in [0, chunk_size), got %d", c.Chunking.Overlap)
	}
	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Vector.Backend {
	case "memory":
	case "pgvector":
		if c.Vector.PgvectorDSN == "" {
			return fmt.Errorf("pgvector backend needs pgvector_dsn")
		}
	default:
		return fmt.Errorf("unknown vector backend %q", c.Vector.Backend)
	}
	if c.Watch.Enabled && c.Watch.Dir == "" {
		return fmt.Errorf("watch is enabled but watch.dir is empty")
	}
	return nil
}

// keyFromEnv maps a provider name to its conventional API key variable.
func keyFromEnv(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
