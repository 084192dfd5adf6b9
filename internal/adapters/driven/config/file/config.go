// Package file loads the piolet configuration from a TOML file, filling in
// defaults for anything the file leaves out. Secrets (API key, database URL)
// come from the environment, never from the file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration.
type Config struct {
	Ingest    IngestConfig    `toml:"ingest"`
	Search    SearchConfig    `toml:"search"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Storage   StorageConfig   `toml:"storage"`
}

// IngestConfig tunes the chunking pipeline.
type IngestConfig struct {
	// MaxChars is the chunk window size in characters.
	MaxChars int `toml:"max_chars"`

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int `toml:"overlap"`

	// Workers bounds concurrent document ingestion.
	Workers int `toml:"workers"`

	// Locale is the locale tag stamped on chunks whose source does not
	// declare one.
	Locale string `toml:"locale"`
}

// SearchConfig tunes the retrieval engine.
type SearchConfig struct {
	// TopK is the default result count.
	TopK int `toml:"top_k"`

	// Locale is the locale filter applied when a query does not set one.
	// Empty disables the default filter.
	Locale string `toml:"locale"`

	// DegradeGracefully makes a failing sub-search contribute an empty
	// result instead of failing the whole query.
	DegradeGracefully bool `toml:"degrade_gracefully"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Model             string  `toml:"model"`
	BaseURL           string  `toml:"base_url"`
	MaxBatchSize      int     `toml:"max_batch_size"`
	MaxRetries        int     `toml:"max_retries"`
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// APIKey is read from OPENAI_API_KEY, never from the file.
	APIKey string `toml:"-"`
}

// LLMConfig configures the chat completion client.
type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`

	// APIKey is read from OPENAI_API_KEY, never from the file.
	APIKey string `toml:"-"`
}

// StorageConfig selects and configures the chunk store backend.
type StorageConfig struct {
	// Backend is "postgres" or "memory".
	Backend string `toml:"backend"`

	// DataDir holds the ingest state database and the source manifest.
	// Empty means ~/.piolet/data.
	DataDir string `toml:"data_dir"`

	// DatabaseURL is read from DATABASE_URL, never from the file.
	DatabaseURL string `toml:"-"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Ingest: IngestConfig{
			MaxChars: 1200,
			Overlap:  150,
			Workers:  4,
			Locale:   "es",
		},
		Search: SearchConfig{
			TopK:              5,
			Locale:            "es",
			DegradeGracefully: true,
		},
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			MaxBatchSize:      80,
			MaxRetries:        3,
			RequestsPerSecond: 5,
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Storage: StorageConfig{
			Backend: "postgres",
		},
	}
}

// DefaultPath returns ~/.piolet/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".piolet", "config.toml"), nil
}

// Load reads the config file at path, overlaying it on the defaults and
// pulling secrets from the environment. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No config file yet, defaults apply.
	case err != nil:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.LLM.APIKey = cfg.Embedding.APIKey
	cfg.Storage.DatabaseURL = os.Getenv("DATABASE_URL")

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Ingest.MaxChars <= 0 {
		return fmt.Errorf("ingest.max_chars must be positive, got %d", c.Ingest.MaxChars)
	}
	if c.Ingest.Overlap < 0 {
		return fmt.Errorf("ingest.overlap must not be negative, got %d", c.Ingest.Overlap)
	}
	if c.Ingest.Overlap >= c.Ingest.MaxChars {
		return fmt.Errorf("ingest.overlap (%d) must be smaller than ingest.max_chars (%d)",
			c.Ingest.Overlap, c.Ingest.MaxChars)
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Storage.Backend != "postgres" && c.Storage.Backend != "memory" {
		return fmt.Errorf("storage.backend must be postgres or memory, got %q", c.Storage.Backend)
	}
	return nil
}
