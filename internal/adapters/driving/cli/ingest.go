package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/piolet-labs/piolet-cli/internal/connectors/filesystem"
	"github.com/piolet-labs/piolet-cli/internal/core/services"
	"github.com/piolet-labs/piolet-cli/internal/extractors"
	"github.com/piolet-labs/piolet-cli/internal/extractors/html"
	"github.com/piolet-labs/piolet-cli/internal/extractors/pdf"
	"github.com/piolet-labs/piolet-cli/internal/extractors/plaintext"
	"github.com/piolet-labs/piolet-cli/internal/logger"
	"github.com/piolet-labs/piolet-cli/internal/postprocessors"
	"github.com/piolet-labs/piolet-cli/internal/postprocessors/chunker"
)

var (
	ingestWatch    bool
	ingestManifest string
	ingestWorkers  int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents from a directory",
	Long: `Walks a directory, extracts text from every supported file (.pdf, .md,
.txt, .html), chunks it, embeds the chunks and writes them to the chunk
store. Unchanged documents are skipped.

Per-file metadata (title, document type, locale, public URL) can be
supplied in a TOML manifest; by default piolet.toml inside the directory.

With --watch the command keeps running and re-ingests files as they
change.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory for changes")
	ingestCmd.Flags().StringVar(&ingestManifest, "manifest", "", "metadata manifest (default <directory>/piolet.toml)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "concurrent documents (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	state, err := newStateStore()
	if err != nil {
		return err
	}
	defer state.Close()

	manifestPath := ingestManifest
	if manifestPath == "" {
		manifestPath = filepath.Join(dir, "piolet.toml")
	}
	manifest, err := filesystem.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	registry := extractors.NewRegistry(plaintext.New(), html.New(), pdf.New())
	connector := filesystem.New(dir, registry,
		filesystem.WithManifest(manifest),
		filesystem.WithDefaultLocale(cfg.Ingest.Locale),
	)

	workers := ingestWorkers
	if workers <= 0 {
		workers = cfg.Ingest.Workers
	}
	ingestor := services.NewIngestService(store, embedder,
		chunker.New(
			chunker.WithMaxChars(cfg.Ingest.MaxChars),
			chunker.WithOverlap(cfg.Ingest.Overlap),
		),
		services.WithStateStore(state),
		services.WithProcessors(postprocessors.NewCleaner()),
		services.WithWorkers(workers),
	)

	report, err := ingestor.IngestSource(ctx, connector)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	cmd.Printf("Ingested %d documents (%d chunks), %d skipped, %d errors\n",
		report.DocumentsProcessed, report.ChunksWritten,
		report.DocumentsSkipped, report.ErrorCount)

	if !ingestWatch {
		return nil
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", dir)
	docs, errs, err := connector.Watch(ctx)
	if err != nil {
		return err
	}
	for docs != nil || errs != nil {
		select {
		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			written, err := ingestor.IngestDocument(ctx, doc)
			if err != nil {
				logger.Warn("re-ingesting %s: %v", doc.DocID, err)
				continue
			}
			if written > 0 {
				cmd.Printf("Re-ingested %s: %d chunks\n", doc.DocID, written)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
