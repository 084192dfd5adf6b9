package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/logger"
)

// debounceWindow batches the burst of write events an editor or download
// produces for a single file.
const debounceWindow = 500 * time.Millisecond

// Watch streams a source document every time a supported file under the
// root is created or modified. The stream ends when ctx is cancelled.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.SourceDocument, <-chan error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := addRecursive(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, nil, err
	}

	docs := make(chan domain.SourceDocument)
	errs := make(chan error)

	go func() {
		defer close(docs)
		defer close(errs)
		defer watcher.Close()

		pending := make(map[string]time.Time)
		ticker := time.NewTicker(debounceWindow)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if event.Has(fsnotify.Create) {
						if err := addRecursive(watcher, event.Name); err != nil {
							logger.Warn("watching new directory %s: %v", event.Name, err)
						}
					}
					continue
				}
				if strings.HasPrefix(filepath.Base(event.Name), ".") {
					continue
				}
				pending[event.Name] = time.Now()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case errs <- fmt.Errorf("watch: %w", err):
				case <-ctx.Done():
					return
				}

			case now := <-ticker.C:
				for path, seen := range pending {
					if now.Sub(seen) < debounceWindow {
						continue
					}
					delete(pending, path)

					doc, err := c.load(ctx, path)
					if err != nil {
						if errors.Is(err, domain.ErrUnsupportedFormat) {
							continue
						}
						select {
						case errs <- fmt.Errorf("loading %s: %w", path, err):
						case <-ctx.Done():
							return
						}
						continue
					}
					select {
					case docs <- doc:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return docs, errs, nil
}

// addRecursive watches a directory and every subdirectory under it.
// fsnotify watches are not recursive on their own.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
