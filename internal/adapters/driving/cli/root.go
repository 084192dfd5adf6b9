// Package cli wires the adapters to the core services and exposes them as
// cobra commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piolet-labs/piolet-cli/internal/adapters/driven/config/file"
	openaiembed "github.com/piolet-labs/piolet-cli/internal/adapters/driven/embedding/openai"
	openaillm "github.com/piolet-labs/piolet-cli/internal/adapters/driven/llm/openai"
	"github.com/piolet-labs/piolet-cli/internal/adapters/driven/state/sqlite"
	"github.com/piolet-labs/piolet-cli/internal/adapters/driven/storage/memory"
	"github.com/piolet-labs/piolet-cli/internal/adapters/driven/storage/postgres"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
	"github.com/piolet-labs/piolet-cli/internal/core/services"
	"github.com/piolet-labs/piolet-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
	cfg     file.Config
)

var rootCmd = &cobra.Command{
	Use:   "piolet",
	Short: "Ingest documents and search them with hybrid retrieval",
	Long: `piolet ingests local documents (PDF, Markdown, plain text, HTML) into a
chunked, embedded corpus and answers queries over it with hybrid
vector plus trigram retrieval.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		var err error
		cfg, err = file.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.piolet/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newChunkStore opens the configured chunk store backend.
func newChunkStore(ctx context.Context) (driven.ChunkStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		logger.Debug("using in-memory chunk store")
		return memory.NewStore(), nil
	default:
		if cfg.Storage.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		return postgres.NewStore(ctx, cfg.Storage.DatabaseURL)
	}
}

// newEmbedder builds the embedding client from config.
func newEmbedder() (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            cfg.Embedding.APIKey,
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		MaxBatchSize:      cfg.Embedding.MaxBatchSize,
		MaxRetries:        cfg.Embedding.MaxRetries,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
}

// newLLM builds the chat completion client from config.
func newLLM() (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
}

// newStateStore opens the ingest state database.
func newStateStore() (driven.IngestStateStore, error) {
	return sqlite.NewStore(cfg.Storage.DataDir)
}

// newSearcher assembles the retrieval engine over a chunk store.
func newSearcher(store driven.ChunkStore, embedder driven.EmbeddingService) *services.SearchService {
	return services.NewSearchService(store, embedder,
		services.WithGracefulDegradation(cfg.Search.DegradeGracefully))
}
