package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piolet-labs/piolet-cli/internal/core/services"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the ingested corpus",
	Long: `Retrieves the nearest chunks for the question by vector distance and
asks the configured model for an answer grounded in them. The sources
used are listed with the reply.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "limit", "n", 0, "context chunks to retrieve (default from config)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	llm, err := newLLM()
	if err != nil {
		return err
	}
	defer llm.Close()

	topK := askTopK
	if topK <= 0 {
		topK = cfg.Search.TopK
	}

	answerer := services.NewAnswerService(newSearcher(store, embedder), llm)
	answer, err := answerer.Answer(ctx, args[0], topK)
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	cmd.Println(answer.Reply)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Fuentes:")
		for _, src := range answer.Sources {
			cmd.Printf("  - %s\n", src)
		}
	}
	return nil
}
