package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

var (
	searchLimit    int
	searchJSON     bool
	searchLocale   string
	searchDocTypes []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the ingested corpus",
	Long: `Runs hybrid retrieval over the chunk store: semantic (vector) and
lexical (trigram) search, merged and ranked by similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchLocale, "locale", "", `locale filter (default from config, "all" disables it)`)
	searchCmd.Flags().StringSliceVar(&searchDocTypes, "type", nil, "restrict results to document types")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := newChunkStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := newEmbedder()
	if err != nil {
		return err
	}
	defer embedder.Close()

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Search.TopK
	}
	opts := domain.SearchOptions{
		TopK:     limit,
		Locale:   effectiveLocale(searchLocale, cfg.Search.Locale),
		DocTypes: searchDocTypes,
	}

	results, err := newSearcher(store, embedder).Search(ctx, args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range results {
		cmd.Printf("[%d] %s (%.3f, %s)\n", i+1, r.Chunk.Title, r.Similarity, r.Source)
		cmd.Printf("    %s#%d\n", r.Chunk.DocID, r.Chunk.ChunkIndex)
		if r.Chunk.URL != nil {
			cmd.Printf("    %s\n", *r.Chunk.URL)
		}
		cmd.Printf("    %s\n", snippet(r.Chunk.Text, 200))
		if i < len(results)-1 {
			cmd.Println()
		}
	}
	return nil
}

// effectiveLocale resolves the locale filter: an unset flag falls back to
// the configured default, "all" disables the filter entirely.
func effectiveLocale(flagValue, configured string) string {
	switch flagValue {
	case "":
		return configured
	case "all":
		return ""
	default:
		return flagValue
	}
}

// snippet truncates text at a rune boundary.
func snippet(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
