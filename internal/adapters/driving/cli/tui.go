package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/piolet-labs/piolet-cli/internal/adapters/driving/tui"
	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive search UI",
	Long: `Launch the interactive terminal interface for searching the corpus.

Controls:
  Enter   - Search
  ↑/↓     - Navigate results
  Esc, q  - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
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

	searcher := newSearcher(store, embedder)
	model := tui.New(searcher, domain.SearchOptions{
		TopK:   cfg.Search.TopK,
		Locale: cfg.Search.Locale,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
